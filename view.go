package discio

import (
	"errors"
	"fmt"
	"io"
)

// window is the shared core of View and Partition: a contiguous sub-range
// [off, off+length) of a parent File exposed as a zero-based file.
type window struct {
	parent File
	owns   bool // holds a Shared ref that Close must release
	off    int64
	length int64
	pos    int64
	closed bool
}

func newWindow(parent File, off, length int64) (window, error) {
	if off < 0 || length < 0 {
		return window{}, fmt.Errorf("%w: offset %d length %d", ErrInvalidArgument, off, length)
	}

	// Bounds are validated eagerly when the parent knows its size and
	// lazily (by per-read clamping in the parent) when it does not.
	psize, err := parent.Size()
	switch {
	case err == nil:
		// off and length are non-negative; comparing against the parent
		// size this way cannot overflow.
		if length > psize || off > psize-length {
			return window{}, fmt.Errorf("%w: [%d, +%d) in parent of size %d",
				ErrOutOfRange, off, length, psize)
		}
	case errors.Is(err, ErrUnavailable):
	default:
		return window{}, err
	}

	p, owns := retain(parent)
	return window{parent: p, owns: owns, off: off, length: length}, nil
}

func (w *window) Read(p []byte) (int, error) {
	n, err := w.ReadAt(p, w.pos)
	w.pos += int64(n)
	return n, err
}

// ReadAt reads from the window's zero-based address space. Requests are
// clamped at the window boundary: the read comes up short there rather
// than leaking adjacent parent bytes.
func (w *window) ReadAt(p []byte, off int64) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: read at %d", ErrInvalidArgument, off)
	}
	if off >= w.length {
		return 0, io.EOF
	}
	short := false
	if max := w.length - off; int64(len(p)) > max {
		p = p[:max]
		short = true
	}
	n, err := w.parent.ReadAt(p, w.off+off)
	if err == nil && short {
		err = io.EOF
	}
	return n, err
}

func (w *window) Seek(off int64, whence int) (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = off
	case io.SeekCurrent:
		target = w.pos + off
	case io.SeekEnd:
		target = w.length + off
	default:
		return 0, fmt.Errorf("%w: seek whence %d", ErrInvalidArgument, whence)
	}
	if target < 0 {
		return 0, fmt.Errorf("%w: seek to %d", ErrInvalidArgument, target)
	}
	w.pos = target
	return target, nil
}

// Size returns the window length. The parent is not consulted.
func (w *window) Size() (int64, error) {
	if w.closed {
		return 0, ErrClosed
	}
	return w.length, nil
}

func (w *window) IsOpen() bool {
	return !w.closed && w.parent.IsOpen()
}

// Close releases the window's hold on the parent, when it owns one.
func (w *window) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	if w.owns {
		return w.parent.Close()
	}
	return nil
}

// View exposes [off, off+length) of a parent File as a standalone
// zero-based File. Writes pass through to the parent, clamped at the
// window boundary.
type View struct {
	window
}

// Interface compliance.
var _ File = (*View)(nil)

// NewView creates a view of [off, off+length) in parent.
//
// Construction fails with ErrOutOfRange if the range exceeds the parent's
// reported size; parents whose size is unavailable are checked lazily per
// read. If parent is a *Shared handle the view takes its own hold.
func NewView(parent File, off, length int64) (*View, error) {
	w, err := newWindow(parent, off, length)
	if err != nil {
		return nil, err
	}
	return &View{window: w}, nil
}

// Offset returns where the view's zero address maps in its parent.
func (v *View) Offset() int64 { return v.off }

func (v *View) Write(p []byte) (int, error) {
	n, err := v.WriteAt(p, v.pos)
	v.pos += int64(n)
	return n, err
}

// WriteAt writes into the window's address space. Writes that would cross
// the window boundary are clamped and report io.ErrShortWrite.
func (v *View) WriteAt(p []byte, off int64) (int, error) {
	if v.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("%w: write at %d", ErrInvalidArgument, off)
	}
	if off >= v.length {
		return 0, io.ErrShortWrite
	}
	short := false
	if max := v.length - off; int64(len(p)) > max {
		p = p[:max]
		short = true
	}
	n, err := v.parent.WriteAt(p, v.off+off)
	if err == nil && short {
		err = io.ErrShortWrite
	}
	return n, err
}

// Truncate is not supported: a view's length is fixed at construction.
func (v *View) Truncate(int64) error {
	return ErrNotWritable
}
