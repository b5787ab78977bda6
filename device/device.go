// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package device implements the connection state machine of the bridge.
//
// A Device serialises every event source through a single loop: connect and
// disconnect events from the transport, packets read from the connected
// host, and the two buttons. Button events are always handled before any
// other pending event. Packets are processed one at a time, and the next
// packet is read only once the previous one has been dispatched.
package device

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/command"
	"github.com/ezrec/ubit/display"
	"github.com/ezrec/ubit/engine"
	"github.com/ezrec/ubit/wire"
)

const (
	READY_INDICATOR      = "R" // Shown after power on and reset.
	DISCONNECT_INDICATOR = "D" // Shown when the transport disconnects.

	BUTTON_QUEUE = 8 // Button presses buffered before they are dropped.
)

// Button is one of the two device buttons.
type Button int

const (
	BUTTON_A = Button(iota) // Loads the default program.
	BUTTON_B                // Shows the status marker.
)

func (b Button) String() string {
	switch b {
	case BUTTON_A:
		return "A"
	case BUTTON_B:
		return "B"
	}
	return "?"
}

// Device is the bridge between a host connection and the execution engine.
type Device struct {
	Verbose bool // If set, enables verbose logging.

	State    *buffer.State    // Buffer, registers and stack.
	Engine   engine.Engine    // Executes the run command.
	Display  display.Display  // LED matrix.
	Resetter command.Resetter // Restarts the device.

	connected atomic.Bool
	session   *session

	buttons     chan Button
	connects    chan *session
	disconnects chan struct{}
}

// NewDevice creates a new device.
func NewDevice(eng engine.Engine, disp display.Display, resetter command.Resetter) (dev *Device) {
	dev = &Device{
		State:    buffer.NewState(),
		Engine:   eng,
		Display:  disp,
		Resetter: resetter,

		buttons:     make(chan Button, BUTTON_QUEUE),
		connects:    make(chan *session, 1),
		disconnects: make(chan struct{}, 1),
	}

	return
}

// Reset the device state as at power on, and show the ready indicator.
func (dev *Device) Reset() {
	if dev.Verbose {
		log.Printf("device: reset")
	}

	dev.State.Reset()
	dev.Display.Show(display.Text(READY_INDICATOR))
}

// Connected reports whether a host connection is being served.
func (dev *Device) Connected() bool {
	return dev.connected.Load()
}

// Connect delivers a connect event for conn. The returned channel is closed
// when the session ends. Only one connection is served at a time; a connect
// while listening is refused, and its channel is closed straight away.
func (dev *Device) Connect(conn io.ReadWriter) <-chan struct{} {
	s := newSession(conn)
	dev.connects <- s
	return s.done
}

// Disconnect delivers a disconnect event. The connection flag is cleared at
// once, so no further packet is dispatched, but a read already blocked in
// the transport is not interrupted.
func (dev *Device) Disconnect() {
	dev.connected.Store(false)

	select {
	case dev.disconnects <- struct{}{}:
	default:
	}
}

// Press delivers a button press.
func (dev *Device) Press(b Button) {
	select {
	case dev.buttons <- b:
	default:
		log.Printf("device: button %v dropped", b)
	}
}

// Run the device until ctx is done.
func (dev *Device) Run(ctx context.Context) error {
	for {
		done, err := dev.Tick(ctx)
		if done {
			return err
		}
	}
}

// Tick waits for and handles a single event.
func (dev *Device) Tick(ctx context.Context) (done bool, err error) {
	// Buttons take priority over everything else.
	select {
	case b := <-dev.buttons:
		dev.press(b)
		return
	default:
	}

	var packets <-chan wire.Packet
	var errs <-chan error
	if dev.session != nil {
		packets = dev.session.packets
		errs = dev.session.errs
	}

	select {
	case <-ctx.Done():
		done = true
		err = ctx.Err()
	case b := <-dev.buttons:
		dev.press(b)
	case s := <-dev.connects:
		dev.open(s)
	case <-dev.disconnects:
		dev.disconnected()
	case p := <-packets:
		dev.receive(p)
	case read_err := <-errs:
		if !errors.Is(read_err, io.EOF) {
			log.Printf("device: read: %v", read_err)
		}
		dev.connected.Store(false)
		dev.disconnected()
	}

	return
}

func (dev *Device) press(b Button) {
	if dev.Verbose {
		log.Printf("device: button %v", b)
	}

	switch b {
	case BUTTON_A:
		dev.State.Instructions.LoadDefault()
	case BUTTON_B:
		dev.Display.Show(display.Marker())
	}
}

func (dev *Device) open(s *session) {
	if dev.session != nil {
		log.Printf("device: already connected, connection refused")
		s.end()
		return
	}

	if dev.Verbose {
		log.Printf("device: connected")
	}

	// A disconnect queued before this connect belongs to an earlier session.
	select {
	case <-dev.disconnects:
	default:
	}

	dev.session = s
	dev.connected.Store(true)

	go s.read()
}

func (dev *Device) disconnected() {
	if dev.Verbose {
		log.Printf("device: disconnected")
	}

	dev.close()
	dev.Display.Show(display.Text(DISCONNECT_INDICATOR))
}

// close ends the current session, if any.
func (dev *Device) close() {
	dev.connected.Store(false)

	if dev.session == nil {
		return
	}

	dev.session.end()
	dev.session = nil
}

// receive dispatches one packet from the host.
func (dev *Device) receive(p wire.Packet) {
	s := dev.session

	// The connection flag is checked between packets only.
	if !dev.connected.Load() {
		dev.close()
		return
	}

	dev.State.Instructions.Receive(p[:])
	cmd := command.Decode(dev.State.Instructions.Command())

	dispatcher := command.Dispatcher{
		Verbose:  dev.Verbose,
		State:    dev.State,
		Engine:   dev.Engine,
		Display:  dev.Display,
		Resetter: dev.Resetter,
	}

	outcome, err := dispatcher.Dispatch(s.conn, cmd)
	if err != nil {
		log.Printf("device: %v", err)
		dev.close()
		return
	}

	switch outcome {
	case command.OUTCOME_QUIT:
		if dev.Verbose {
			log.Printf("device: quit")
		}
		dev.close()
	case command.OUTCOME_RESET:
		dev.close()
		dev.Reset()
	default:
		s.next <- struct{}{}
	}
}
