package discio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"
)

// Mode controls how OpenFile opens the underlying path. Modes combine as
// flags; combinations other than the documented ones are rejected with
// ErrInvalidArgument.
type Mode int

const (
	// ModeRead opens an existing file read-only.
	ModeRead Mode = 1 << iota

	// ModeWrite allows writes. Combined with ModeRead it opens an existing
	// file read-write.
	ModeWrite

	// ModeCreate creates the file, truncating it if it exists. Implies
	// read-write access.
	ModeCreate

	// ModeGzip enables transparent gzip decompression. Only valid together
	// with ModeRead; if the file does not carry a trustworthy gzip stream
	// it is read as raw bytes.
	ModeGzip

	// ModeDeviceWrite opts in to writing block or character devices.
	// Opening a regular file with this flag fails with ErrNoDevice.
	ModeDeviceWrite
)

func (m Mode) writable() bool {
	return m&(ModeWrite|ModeCreate) != 0
}

// osFlags maps a Mode to os.OpenFile flags. Returns false for unsupported
// combinations.
func (m Mode) osFlags() (int, bool) {
	switch m &^ ModeDeviceWrite {
	case ModeRead:
		return os.O_RDONLY, true
	case ModeRead | ModeGzip:
		return os.O_RDONLY, true
	case ModeRead | ModeWrite:
		return os.O_RDWR, true
	case ModeRead | ModeWrite | ModeCreate, ModeCreate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, true
	default:
		return 0, false
	}
}

// OsFile is a File backed by the native filesystem.
//
// When opened with ModeGzip and the file begins with the gzip magic and a
// consistent trailer, reads are routed through a decompression stream and
// Size reports the trailer-declared uncompressed length. Otherwise OsFile
// is a thin layer over os.File.
type OsFile struct {
	f        *os.File
	path     string
	mode     Mode
	isDevice bool
	gz       *gzipStream // non-nil when transparent decompression is active
}

// Interface compliance.
var _ File = (*OsFile)(nil)

// OpenFile opens the named path with the given mode.
//
// Not-found and permission failures surface fs.ErrNotExist and
// fs.ErrPermission through the returned error. Opening a directory fails
// with ErrIsDirectory. Writing a device requires ModeDeviceWrite; without
// it a writable open of a device fails with ErrNotWritable.
func OpenFile(path string, mode Mode) (*OsFile, error) {
	flags, ok := mode.osFlags()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported open mode %#x", ErrInvalidArgument, int(mode))
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("discio: open %s: %w", path, unwrapPathError(err))
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("discio: open %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("discio: open %s: %w", path, ErrIsDirectory)
	}

	of := &OsFile{
		f:        f,
		path:     path,
		mode:     mode,
		isDevice: isDeviceFile(f, info),
	}

	if mode&ModeDeviceWrite != 0 && !of.isDevice {
		f.Close()
		return nil, fmt.Errorf("discio: open %s: %w", path, ErrNoDevice)
	}
	if of.isDevice && mode.writable() && mode&ModeDeviceWrite == 0 {
		f.Close()
		return nil, fmt.Errorf("discio: open %s: device write requires opt-in: %w", path, ErrNotWritable)
	}

	if mode&ModeGzip != 0 {
		// Detection failure is not an error: the file is read as raw bytes.
		of.gz = sniffGzip(f, info.Size())
	}
	return of, nil
}

// unwrapPathError strips the os.PathError wrapper so callers match the
// fs sentinels without seeing the path twice.
func unwrapPathError(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// Path returns the path the file was opened with.
func (of *OsFile) Path() string { return of.path }

// IsDevice reports whether the OS classified the opened handle as a block
// or character device.
func (of *OsFile) IsDevice() bool { return of.isDevice }

// IsCompressed reports whether reads are routed through the transparent
// gzip decompression stream.
func (of *OsFile) IsCompressed() bool { return of.gz != nil }

// IsOpen reports whether the handle is usable.
func (of *OsFile) IsOpen() bool { return of.f != nil }

func (of *OsFile) Read(p []byte) (int, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if of.gz != nil {
		return of.gz.Read(p)
	}
	return of.f.Read(p)
}

func (of *OsFile) ReadAt(p []byte, off int64) (int, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if of.gz != nil {
		return of.gz.ReadAt(p, off)
	}
	return of.f.ReadAt(p, off)
}

func (of *OsFile) Write(p []byte) (int, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if !of.mode.writable() || of.gz != nil {
		return 0, ErrNotWritable
	}
	return of.f.Write(p)
}

func (of *OsFile) WriteAt(p []byte, off int64) (int, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if !of.mode.writable() || of.gz != nil {
		return 0, ErrNotWritable
	}
	return of.f.WriteAt(p, off)
}

// Seek sets the position. Seeking past the current size is allowed and
// defines a hole that is realized only on write.
func (of *OsFile) Seek(off int64, whence int) (int64, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if of.gz != nil {
		return of.gz.Seek(off, whence)
	}
	pos, err := of.f.Seek(off, whence)
	if err != nil {
		// The OS rejects a seek that resolves to a negative position with
		// EINVAL. Genuine I/O failures pass through untouched.
		if errors.Is(err, syscall.EINVAL) {
			return pos, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
		}
		return pos, err
	}
	return pos, nil
}

// Size returns the file length. For the decompression path this is the
// trailer-declared uncompressed size; otherwise it is measured by seeking
// to the end and restoring the position, so Tell is unaffected.
func (of *OsFile) Size() (int64, error) {
	if of.f == nil {
		return 0, ErrClosed
	}
	if of.gz != nil {
		return of.gz.size, nil
	}

	cur, err := of.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := of.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := of.f.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	return end, nil
}

// Truncate resizes the file. If the current position lies beyond the new
// size it is clamped to the new size.
func (of *OsFile) Truncate(size int64) error {
	if of.f == nil {
		return ErrClosed
	}
	if !of.mode.writable() || of.gz != nil {
		return ErrNotWritable
	}
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidArgument, size)
	}

	pos, err := of.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := of.f.Sync(); err != nil {
		return err
	}
	if err := of.f.Truncate(size); err != nil {
		return err
	}
	if pos > size {
		if _, err := of.f.Seek(size, io.SeekStart); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the handle. The decompression stream, when present, is
// released first.
func (of *OsFile) Close() error {
	if of.f == nil {
		return ErrClosed
	}
	if of.gz != nil {
		of.gz.close()
		of.gz = nil
	}
	err := of.f.Close()
	of.f = nil
	return err
}
