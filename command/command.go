// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package command decodes host command codes and applies them to the bridge
// state.
package command

import (
	"fmt"
)

// Command codes, as found in the last byte of an inbound packet.
const (
	CODE_RUN        = byte(0) // Execute the instruction buffer.
	CODE_QUIT       = byte(1) // Leave the listening state.
	CODE_RESET      = byte(2) // Restart the device.
	CODE_CLEAR      = byte(3) // Clear registers and buffer.
	CODE_STORE      = byte(4) // Store to slot 0. Codes 4 to 7 address slots 0 to 3.
	CODE_STORE_LAST = byte(7) // Store to slot 3.
	CODE_SYNC       = byte(8) // Report state without changing it.
)

// Kind of a decoded command.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	KIND_RUN     = Kind(iota) // run
	KIND_QUIT                 // quit
	KIND_RESET                // reset
	KIND_CLEAR                // clear
	KIND_STORE                // store
	KIND_SYNC                 // sync
	KIND_INVALID              // invalid
)

// Command is a decoded command code.
type Command struct {
	Kind Kind // Operation to perform.
	Slot int  // Slot index for KIND_STORE, 0 to 3.
	Code byte // Raw command code.
}

// Decode a raw command code.
func Decode(code byte) (cmd Command) {
	cmd.Code = code

	switch {
	case code == CODE_RUN:
		cmd.Kind = KIND_RUN
	case code == CODE_QUIT:
		cmd.Kind = KIND_QUIT
	case code == CODE_RESET:
		cmd.Kind = KIND_RESET
	case code == CODE_CLEAR:
		cmd.Kind = KIND_CLEAR
	case code >= CODE_STORE && code <= CODE_STORE_LAST:
		cmd.Kind = KIND_STORE
		cmd.Slot = int(code - CODE_STORE)
	case code == CODE_SYNC:
		cmd.Kind = KIND_SYNC
	default:
		cmd.Kind = KIND_INVALID
	}

	return
}

// String returns the command as text.
func (cmd Command) String() string {
	switch cmd.Kind {
	case KIND_STORE:
		return fmt.Sprintf("%v[%d]", cmd.Kind, cmd.Slot)
	case KIND_INVALID:
		return fmt.Sprintf("%v(%d)", cmd.Kind, cmd.Code)
	}
	return cmd.Kind.String()
}
