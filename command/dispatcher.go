// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package command

import (
	"io"
	"log"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/display"
	"github.com/ezrec/ubit/engine"
	"github.com/ezrec/ubit/wire"
)

// INVALID_INDICATOR is shown on the display for an unknown command code.
const INVALID_INDICATOR = "Z"

// Outcome tells the connection what to do after a command.
type Outcome int

const (
	OUTCOME_CONTINUE = Outcome(iota) // Read the next packet.
	OUTCOME_QUIT                     // Leave the listening state.
	OUTCOME_RESET                    // The device was restarted.
)

// Resetter restarts the device. On hardware Reset does not return; a
// simulated restart returns, and the caller reinitialises its state.
type Resetter interface {
	Reset()
}

// Dispatcher applies commands to the bridge state.
//
// Run, clear and sync send a full reply and refresh the display. Store sends
// the register records only. Quit, reset and invalid codes send nothing.
type Dispatcher struct {
	Verbose bool // If set, logs each command.

	State    *buffer.State
	Engine   engine.Engine
	Display  display.Display
	Resetter Resetter
}

// Dispatch applies a command, writing any reply to w. The only error is a
// failed write to w.
func (d *Dispatcher) Dispatch(w io.Writer, cmd Command) (outcome Outcome, err error) {
	if d.Verbose {
		log.Printf("command: %v", cmd)
	}

	switch cmd.Kind {
	case KIND_RUN:
		d.Engine.Execute(&d.State.Registers, &d.State.Instructions)
		err = d.reply(w, cmd)
	case KIND_QUIT:
		outcome = OUTCOME_QUIT
	case KIND_RESET:
		d.Resetter.Reset()
		outcome = OUTCOME_RESET
	case KIND_CLEAR:
		d.State.Clear()
		err = d.reply(w, cmd)
	case KIND_STORE:
		// Decode bounds the slot, so Store cannot fail here.
		err = d.State.Store(cmd.Slot)
		if err != nil {
			return
		}
		err = wire.WriteRecords(w, &d.State.Registers)
		if err != nil {
			err = &ErrReply{Command: cmd, Err: err}
		}
	case KIND_SYNC:
		err = d.reply(w, cmd)
	default:
		d.Display.Show(display.Text(INVALID_INDICATOR))
	}

	return
}

// reply sends the full reply, then shows the registers.
func (d *Dispatcher) reply(w io.Writer, cmd Command) (err error) {
	err = wire.WriteReply(w, d.State)
	if err != nil {
		err = &ErrReply{Command: cmd, Err: err}
	}

	d.Display.Show(display.Render(display.MODE_REGISTERS, &d.State.Registers))

	return
}
