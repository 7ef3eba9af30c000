package discio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// gzipHeaderLen and gzipTrailerLen are the fixed sizes of a single-member
// gzip stream's framing: a 10-byte header and an 8-byte trailer holding
// CRC32 plus the little-endian uncompressed size modulo 2^32.
const (
	gzipHeaderLen  = 10
	gzipTrailerLen = 8
)

// sniffGzip checks whether f holds a gzip stream with a trustworthy
// trailer and, if so, returns a decompression stream positioned at the
// start. It returns nil when the file should be read as raw bytes.
//
// The trailer size is accepted only when it is at least the stream length
// minus the fixed framing overhead. A corrupted trailer that happens to
// pass this check will silently misreport Size; the check is not validated
// against the actual decompressed stream.
func sniffGzip(f *os.File, rawSize int64) *gzipStream {
	if rawSize <= gzipHeaderLen+gzipTrailerLen {
		return nil
	}

	var magic [2]byte
	if _, err := f.ReadAt(magic[:], 0); err != nil {
		return nil
	}
	if magic[0] != 0x1F || magic[1] != 0x8B {
		return nil
	}

	var trailer [4]byte
	if _, err := f.ReadAt(trailer[:], rawSize-4); err != nil {
		return nil
	}
	uncompressed := int64(binary.LittleEndian.Uint32(trailer[:]))
	if uncompressed < rawSize-(gzipHeaderLen+gzipTrailerLen) {
		return nil
	}

	gz := &gzipStream{f: f, rawSize: rawSize, size: uncompressed}
	if err := gz.reset(); err != nil {
		return nil
	}
	return gz
}

// gzipStream adapts a gzip member to the File position model. The
// compressed bytes are consumed through an io.SectionReader so the
// decompression position is independent of the raw handle's seek offset.
//
// Forward seeks discard decompressed bytes; backward seeks restart the
// stream from the beginning, mirroring zlib's gzseek.
type gzipStream struct {
	f       *os.File
	zr      *gzip.Reader
	pos     int64
	rawSize int64
	size    int64 // trailer-declared uncompressed size
}

func (gz *gzipStream) reset() error {
	src := io.NewSectionReader(gz.f, 0, gz.rawSize)
	if gz.zr == nil {
		zr, err := gzip.NewReader(src)
		if err != nil {
			return err
		}
		zr.Multistream(false)
		gz.zr = zr
	} else if err := gz.zr.Reset(src); err != nil {
		return err
	}
	gz.pos = 0
	return nil
}

func (gz *gzipStream) Read(p []byte) (int, error) {
	n, err := gz.zr.Read(p)
	gz.pos += int64(n)
	return n, err
}

func (gz *gzipStream) Seek(off int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = off
	case io.SeekCurrent:
		target = gz.pos + off
	case io.SeekEnd:
		target = gz.size + off
	default:
		return 0, fmt.Errorf("%w: seek whence %d", ErrInvalidArgument, whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("%w: seek to %d", ErrInvalidArgument, target)
	}

	if target < gz.pos {
		if err := gz.reset(); err != nil {
			return 0, err
		}
	}
	if err := gz.discard(target - gz.pos); err != nil {
		return gz.pos, err
	}
	// Positions past the end of the stream are permitted; reads there
	// return io.EOF.
	gz.pos = target
	return target, nil
}

// discard consumes n decompressed bytes. Hitting the end of the stream
// early is not an error; the position still advances to the target.
func (gz *gzipStream) discard(n int64) error {
	if n <= 0 {
		return nil
	}
	copied, err := io.CopyN(io.Discard, gz.zr, n)
	gz.pos += copied
	if err == io.EOF {
		return nil
	}
	return err
}

// ReadAt reads from an absolute offset. The seek position is preserved,
// at the cost of a stream restart when off precedes it.
func (gz *gzipStream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrInvalidArgument, off)
	}
	cur := gz.pos
	if _, err := gz.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(gz, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if _, serr := gz.Seek(cur, io.SeekStart); serr != nil && err == nil {
		err = serr
	}
	return n, err
}

func (gz *gzipStream) close() {
	if gz.zr != nil {
		gz.zr.Close()
		gz.zr = nil
	}
}
