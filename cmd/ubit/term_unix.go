// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

//go:build linux || darwin

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

var termRestore unix.Termios

// enterRawTerm puts stdin into unbuffered, no-echo mode. Signals are kept.
func enterRawTerm() (err error) {
	termios, err := unix.IoctlGetTermios(int(os.Stdin.Fd()), ioctlGetTermios)
	if err != nil {
		return
	}

	termRestore = *termios
	termstate := *termios

	termstate.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	termstate.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	termstate.Cflag &^= unix.CSIZE | unix.PARENB
	termstate.Cflag |= unix.CS8

	termstate.Cc[unix.VMIN] = 1
	termstate.Cc[unix.VTIME] = 0

	err = unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlSetTermios, &termstate)
	return
}

// exitRawTerm restores the terminal mode saved by enterRawTerm.
func exitRawTerm() {
	unix.IoctlSetTermios(int(os.Stdin.Fd()), ioctlSetTermios, &termRestore)
}
