//go:build unix

package discio

import (
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// isDeviceFile reports whether the opened handle is a block or character
// device. Classification failures are treated as "not a device".
func isDeviceFile(f *os.File, info fs.FileInfo) bool {
	var st unix.Stat_t
	if err := unix.Fstat(int(f.Fd()), &st); err != nil {
		return info.Mode()&fs.ModeDevice != 0
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFBLK, unix.S_IFCHR:
		return true
	}
	return false
}
