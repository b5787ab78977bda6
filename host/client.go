// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package host implements the host side of the bridge protocol: building
// command packets and assembling the device's replies into a register view.
package host

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/command"
	"github.com/ezrec/ubit/wire"
)

const (
	MAX_INSTRUCTIONS = 8                 // Instructions accepted by Execute.
	LOCATION_COUNT   = buffer.SLOT_COUNT // Memory locations accepted by Store.

	// RETURN_INSTRUCTION ('bx ip') is appended to every executed program.
	RETURN_INSTRUCTION = uint16(0x4760)
)

// State is the host's view of the device.
type State struct {
	Registers [buffer.GENERAL_COUNT]int32 // r0-r7
	Psr       uint32                      // Processor status register.
	Sp        int32                       // Stack pointer.
	Memory    [wire.RECORD_WORDS]int32    // Words of the peek window.
}

// Apply a reply record to the state.
func (st *State) Apply(reply wire.Reply) {
	switch reply.Tag {
	case 1:
		copy(st.Registers[0:4], reply.Words[:])
	case 2:
		copy(st.Registers[4:8], reply.Words[:])
	case 3:
		st.Psr = uint32(reply.Words[0])
		st.Sp = reply.Words[1]
	case wire.MEMORY_TAG:
		st.Memory = reply.Words
	}
}

// String returns the state as text.
func (st *State) String() (text string) {
	regs := buffer.Registers{}
	copy(regs[:], st.Registers[:])
	regs[buffer.REG_PSR] = int32(st.Psr)
	regs[buffer.REG_SP] = st.Sp

	text = regs.String()
	for n, word := range st.Memory {
		val := uint32(word)
		text += fmt.Sprintf("% 5s: %04X_%04X %d\n", fmt.Sprintf("m%d", n), val>>16, val&0xffff, word)
	}

	return
}

// deadliner is implemented by connections that support read timeouts.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// Client sends commands to a device and tracks its state.
type Client struct {
	Verbose bool          // If set, logs packets.
	Timeout time.Duration // Reply timeout, if the connection supports one.
	State   State         // Last reported device state.

	conn io.ReadWriter
}

// NewClient creates a client on a connection to a device.
func NewClient(conn io.ReadWriter) *Client {
	return &Client{
		conn: conn,
	}
}

// Execute runs up to MAX_INSTRUCTIONS instructions on the device.
func (c *Client) Execute(program []uint16) (state State, err error) {
	if len(program) > MAX_INSTRUCTIONS {
		err = ErrTooManyInstructions(len(program))
		return
	}

	payload := make([]byte, 0, 2*(len(program)+1))
	for _, ins := range program {
		payload = binary.LittleEndian.AppendUint16(payload, ins)
	}
	payload = binary.LittleEndian.AppendUint16(payload, RETURN_INSTRUCTION)

	return c.request(command.CODE_RUN, payload, wire.RECORD_COUNT+1)
}

// Store writes a word into one of the device's memory locations.
func (c *Client) Store(location int, word uint32) (state State, err error) {
	if location < 0 || location >= LOCATION_COUNT {
		err = ErrLocationRange(location)
		return
	}

	payload := binary.LittleEndian.AppendUint32(nil, word)

	return c.request(command.CODE_STORE+byte(location), payload, wire.RECORD_COUNT)
}

// Clear the device's registers and memory.
func (c *Client) Clear() (State, error) {
	return c.request(command.CODE_CLEAR, nil, wire.RECORD_COUNT+1)
}

// Sync fetches the device state.
func (c *Client) Sync() (State, error) {
	return c.request(command.CODE_SYNC, nil, wire.RECORD_COUNT+1)
}

// Reset restarts the device. There is no reply.
func (c *Client) Reset() error {
	return c.send(command.CODE_RESET, nil)
}

// Quit ends the device's session. There is no reply.
func (c *Client) Quit() error {
	return c.send(command.CODE_QUIT, nil)
}

func (c *Client) request(code byte, payload []byte, replies int) (state State, err error) {
	err = c.send(code, payload)
	if err != nil {
		return
	}

	err = c.receive(replies)
	state = c.State
	return
}

func (c *Client) send(code byte, payload []byte) (err error) {
	p, err := wire.NewPacket(code, payload)
	if err != nil {
		return
	}

	if c.Verbose {
		log.Printf("host: send % x", p[:])
	}

	_, err = c.conn.Write(p[:])
	return
}

// receive reads a reply of count records. A reply of RECORD_COUNT records
// holds register records only.
func (c *Client) receive(count int) (err error) {
	if dl, ok := c.conn.(deadliner); ok && c.Timeout > 0 {
		err = dl.SetReadDeadline(time.Now().Add(c.Timeout))
		if err != nil {
			return
		}
		defer dl.SetReadDeadline(time.Time{})
	}

	data := make([]byte, wire.REPLY_SIZE)
	for range count {
		_, err = io.ReadFull(c.conn, data)
		if err != nil {
			return
		}

		if c.Verbose {
			log.Printf("host: recv % x", data)
		}

		var reply wire.Reply
		reply, err = wire.Decode(data)
		if err != nil {
			return
		}

		if count == wire.RECORD_COUNT && reply.Tag == wire.MEMORY_TAG {
			err = ErrUnexpectedRecord(reply.Tag)
			return
		}

		c.State.Apply(reply)
	}

	return
}
