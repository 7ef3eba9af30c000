// Package testutil provides in-memory test doubles for the discio.File
// contract.
package testutil

import (
	"errors"
	"fmt"
	"io"
)

// MemFile is an in-memory file for tests. It records how often ReadAt and
// Close are called so tests can assert on caching and ownership behavior.
type MemFile struct {
	Data     []byte
	Writable bool

	// SizeErr, when set, is returned by Size. Used to exercise parents
	// whose size is unavailable.
	SizeErr error

	ReadAtCalls int
	CloseCalls  int

	pos    int64
	closed bool
}

// NewMemFile creates a read-only MemFile over data.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{Data: data}
}

func (m *MemFile) Read(p []byte) (int, error) {
	n, err := m.ReadAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *MemFile) ReadAt(p []byte, off int64) (int, error) {
	m.ReadAtCalls++
	if m.closed {
		return 0, errors.New("testutil: read of closed MemFile")
	}
	if off < 0 {
		return 0, errors.New("testutil: negative offset")
	}
	if off >= int64(len(m.Data)) {
		return 0, io.EOF
	}
	n := copy(p, m.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *MemFile) Write(p []byte) (int, error) {
	n, err := m.WriteAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *MemFile) WriteAt(p []byte, off int64) (int, error) {
	if !m.Writable {
		return 0, errors.New("testutil: MemFile is not writable")
	}
	if end := off + int64(len(p)); end > int64(len(m.Data)) {
		grown := make([]byte, end)
		copy(grown, m.Data)
		m.Data = grown
	}
	return copy(m.Data[off:], p), nil
}

func (m *MemFile) Seek(off int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = off
	case io.SeekCurrent:
		target = m.pos + off
	case io.SeekEnd:
		target = int64(len(m.Data)) + off
	default:
		return 0, fmt.Errorf("testutil: seek whence %d", whence)
	}
	if target < 0 {
		return 0, errors.New("testutil: negative position")
	}
	m.pos = target
	return target, nil
}

func (m *MemFile) Size() (int64, error) {
	if m.SizeErr != nil {
		return 0, m.SizeErr
	}
	return int64(len(m.Data)), nil
}

func (m *MemFile) Truncate(size int64) error {
	if !m.Writable {
		return errors.New("testutil: MemFile is not writable")
	}
	if size < int64(len(m.Data)) {
		m.Data = m.Data[:size]
		if m.pos > size {
			m.pos = size
		}
	}
	return nil
}

func (m *MemFile) IsOpen() bool { return !m.closed }

func (m *MemFile) Close() error {
	m.CloseCalls++
	if m.closed {
		return errors.New("testutil: MemFile closed twice")
	}
	m.closed = true
	return nil
}
