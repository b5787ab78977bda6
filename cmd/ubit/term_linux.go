// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"golang.org/x/sys/unix"
)

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)
