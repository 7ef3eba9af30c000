package discio

import (
	"fmt"
	"io"

	"github.com/opencontainers/go-digest"
)

// Checksum computes the canonical digest of f's entire logical byte
// stream, reading through whatever translation layers f is built from.
// The stream is read sequentially from the start; the seek position is
// restored afterwards.
//
// Files whose size is unknown return ErrUnavailable.
func Checksum(f File) (digest.Digest, error) {
	size, err := f.Size()
	if err != nil {
		return "", err
	}
	cur, err := Tell(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), io.LimitReader(f, size))
	if err != nil {
		return "", err
	}
	if n != size {
		return "", fmt.Errorf("discio: checksum read %d of %d bytes: %w", n, size, io.ErrUnexpectedEOF)
	}
	if _, err := f.Seek(cur, io.SeekStart); err != nil {
		return "", err
	}
	return digester.Digest(), nil
}
