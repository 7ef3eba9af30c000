package discio

import (
	"io"
	"sync/atomic"
)

// File is the random-access capability every layer implements and consumes.
//
// ReadAt and WriteAt address the file's own logical byte space and do not
// disturb the seek position. Read, Write, and Seek share one position per
// handle; see the package documentation for the single-owner rule.
//
// Size returns the total logical length, which for layered implementations
// is the length of the exposed address space rather than anything physical:
// a bounded view reports its window length, a sparse disc reader reports
// its declared uncompressed size.
type File interface {
	io.Reader
	io.ReaderAt
	io.Writer
	io.WriterAt
	io.Seeker
	io.Closer

	// Size returns the total logical length of the file.
	// It returns ErrUnavailable when the length is unknown.
	Size() (int64, error)

	// Truncate resizes the file. Read-only handles return ErrNotWritable.
	// If the current position lies beyond the new size, it is clamped.
	Truncate(size int64) error

	// IsOpen reports whether the handle is usable.
	IsOpen() bool
}

// Tell returns the current position of f.
func Tell(f io.Seeker) (int64, error) {
	return f.Seek(0, io.SeekCurrent)
}

// ReadByte reads a single byte from f at the current position.
func ReadByte(f File) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// UnreadByte rewinds f by one byte. It is a pure position decrement, not a
// push-back buffer: UnreadByte at position 0 fails with ErrInvalidArgument
// and leaves the position unchanged.
func UnreadByte(f File) error {
	pos, err := Tell(f)
	if err != nil {
		return err
	}
	if pos <= 0 {
		return ErrInvalidArgument
	}
	_, err = f.Seek(pos-1, io.SeekStart)
	return err
}

// Shared wraps a File with an atomic reference count so nested views can
// share one underlying handle. Ref takes a new hold, Close releases one;
// the wrapped file is closed exactly once, when the last hold is released.
//
// All holds share the wrapped handle's seek position.
type Shared struct {
	f    File
	refs *atomic.Int64
}

// Share wraps f with an initial hold count of one.
func Share(f File) *Shared {
	refs := new(atomic.Int64)
	refs.Store(1)
	return &Shared{f: f, refs: refs}
}

// Ref takes an additional hold on the underlying file.
func (s *Shared) Ref() *Shared {
	s.refs.Add(1)
	return &Shared{f: s.f, refs: s.refs}
}

// Close releases one hold. The underlying file is closed when the last
// hold is released; further calls return ErrClosed.
func (s *Shared) Close() error {
	n := s.refs.Add(-1)
	switch {
	case n == 0:
		return s.f.Close()
	case n < 0:
		s.refs.Add(1)
		return ErrClosed
	}
	return nil
}

// IsOpen reports whether any hold remains and the wrapped file is open.
func (s *Shared) IsOpen() bool {
	return s.refs.Load() > 0 && s.f.IsOpen()
}

func (s *Shared) Read(p []byte) (int, error)                { return s.f.Read(p) }
func (s *Shared) ReadAt(p []byte, off int64) (int, error)   { return s.f.ReadAt(p, off) }
func (s *Shared) Write(p []byte) (int, error)               { return s.f.Write(p) }
func (s *Shared) WriteAt(p []byte, off int64) (int, error)  { return s.f.WriteAt(p, off) }
func (s *Shared) Seek(off int64, whence int) (int64, error) { return s.f.Seek(off, whence) }
func (s *Shared) Size() (int64, error)                      { return s.f.Size() }
func (s *Shared) Truncate(size int64) error                 { return s.f.Truncate(size) }

// Interface compliance.
var _ File = (*Shared)(nil)

// retain takes a hold on f when it is reference counted. The second return
// reports whether the caller now owns a hold it must release on Close.
func retain(f File) (File, bool) {
	if s, ok := f.(*Shared); ok {
		return s.Ref(), true
	}
	return f, false
}
