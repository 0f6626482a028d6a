package ui

import (
	"io"
	"os"
	"runtime"
)

// OpenTTY opens the controlling terminal, used for keyboard input when stdin is a
// pipe.
func OpenTTY() (io.ReadWriteCloser, error) {
	if runtime.GOOS == "windows" {
		return os.OpenFile("CONIN$", os.O_RDWR, 0)
	}
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
