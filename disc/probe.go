package disc

import (
	"fmt"
	"io"

	"github.com/discio/discio"
)

// ProbeLen is the number of header bytes handed to format probes.
const ProbeLen = 0x20

// Format describes one supported container format: a header probe and a
// constructor. The probe must not touch the file; it judges the fixed
// header bytes alone so a generic opener can select a format cheaply.
type Format struct {
	Name  string
	Probe func(header []byte) bool
	Open  func(f discio.File, opts ...Option) (*Reader, error)
}

// formats is the immutable dispatch table of known container formats.
// Probed in order; first match wins.
var formats = []Format{
	cisoFormat,
	wuxFormat,
}

// Formats returns the supported container formats.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// Detect returns the format whose probe matches the given header bytes.
func Detect(header []byte) (Format, bool) {
	for _, f := range formats {
		if f.Probe(header) {
			return f, true
		}
	}
	return Format{}, false
}

// Open sniffs f's header and opens it with the matching format's reader.
// An unrecognized header fails with ErrUnknownFormat; a header the format
// claims but cannot parse fails with ErrInvalidFormat.
func Open(f discio.File, opts ...Option) (*Reader, error) {
	header := make([]byte, ProbeLen)
	if _, err := f.ReadAt(header, 0); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: file shorter than %d bytes", ErrUnknownFormat, ProbeLen)
		}
		return nil, fmt.Errorf("disc: read header: %w", err)
	}

	format, ok := Detect(header)
	if !ok {
		return nil, ErrUnknownFormat
	}
	r, err := format.Open(f, opts...)
	if err != nil {
		return nil, err
	}
	r.format = format.Name
	return r, nil
}
