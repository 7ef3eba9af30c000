//go:build !unix

package discio

import (
	"io/fs"
	"os"
)

// isDeviceFile reports whether the opened handle is a block or character
// device, using the portable mode bits.
func isDeviceFile(_ *os.File, info fs.FileInfo) bool {
	return info.Mode()&fs.ModeDevice != 0
}
