//go:build !windows

package output

import (
	"syscall"
	"unsafe"
)

// winsize mirrors the kernel struct filled by TIOCGWINSZ.
type winsize struct {
	rows   uint16
	cols   uint16
	xpixel uint16
	ypixel uint16
}

// consoleWidth asks the tty on stdout for its column count. Zero means
// stdout is not a terminal.
func consoleWidth() int {
	ws := &winsize{}
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(syscall.Stdout),
		uintptr(syscall.TIOCGWINSZ),
		uintptr(unsafe.Pointer(ws)))
	if errno != 0 {
		return 0
	}
	return int(ws.cols)
}
