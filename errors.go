package discio

import "errors"

// Sentinel errors returned by File implementations. OS-level failures
// (not-found, permission) surface the standard io/fs sentinels through
// wrapping and are matched with errors.Is.
var (
	// ErrClosed is returned by operations on a closed handle.
	ErrClosed = errors.New("discio: file is closed")

	// ErrNotWritable is returned by write operations on handles that were
	// not opened for writing, including the gzip decompression path.
	ErrNotWritable = errors.New("discio: file is not writable")

	// ErrInvalidArgument is returned for unsupported open modes and seeks
	// that would produce a negative position.
	ErrInvalidArgument = errors.New("discio: invalid argument")

	// ErrUnavailable is returned by Size when the total length is unknown,
	// such as a streaming decompression state without a trusted trailer.
	ErrUnavailable = errors.New("discio: size unavailable")

	// ErrOutOfRange is returned when a view is constructed past the bounds
	// of its parent.
	ErrOutOfRange = errors.New("discio: range exceeds parent bounds")

	// ErrIsDirectory is returned when the opened path is a directory.
	ErrIsDirectory = errors.New("discio: is a directory")

	// ErrNoDevice is returned when a device-only open mode is applied to a
	// path that the OS does not report as a block or character device.
	ErrNoDevice = errors.New("discio: not a device file")
)
