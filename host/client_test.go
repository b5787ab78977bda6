package host

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/command"
	"github.com/ezrec/ubit/device"
	"github.com/ezrec/ubit/display"
	"github.com/ezrec/ubit/engine"
	"github.com/ezrec/ubit/wire"
)

// canned replays prepared replies and records what is sent.
type canned struct {
	replies *bytes.Buffer
	sent    bytes.Buffer
}

func (c *canned) Read(data []byte) (int, error) {
	return c.replies.Read(data)
}

func (c *canned) Write(data []byte) (int, error) {
	return c.sent.Write(data)
}

func newCanned(st *buffer.State, full bool) *canned {
	replies := &bytes.Buffer{}
	if full {
		wire.WriteReply(replies, st)
	} else {
		wire.WriteRecords(replies, &st.Registers)
	}
	return &canned{replies: replies}
}

func TestClient_Execute(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	st := buffer.NewState()
	st.Registers[0] = 5
	st.Registers[7] = -7
	st.Registers[buffer.REG_PSR] = int32(buffer.PSR_Z)
	copy(st.Instructions[buffer.SLOT_BASE:], []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff})

	conn := newCanned(st, true)
	c := NewClient(conn)

	state, err := c.Execute([]uint16{0x2005, 0x2107})
	require.NoError(err)

	sent := conn.sent.Bytes()
	require.Len(sent, wire.PACKET_SIZE)
	assert.Equal([]byte{0x05, 0x20, 0x07, 0x21, 0x60, 0x47, 0x00}, sent[:7])
	assert.Equal(command.CODE_RUN, sent[buffer.COMMAND_OFFSET])

	assert.Equal(int32(5), state.Registers[0])
	assert.Equal(int32(-7), state.Registers[7])
	assert.Equal(buffer.PSR_Z, state.Psr)
	assert.Equal(int32(buffer.STACK_TOP), state.Sp)
	assert.Equal([4]int32{1, -1, 0, 0}, state.Memory)
	assert.Equal(state, c.State)
}

func TestClient_Execute_TooMany(t *testing.T) {
	assert := assert.New(t)

	conn := newCanned(buffer.NewState(), true)
	c := NewClient(conn)

	_, err := c.Execute(make([]uint16, MAX_INSTRUCTIONS+1))
	assert.Equal(ErrTooManyInstructions(MAX_INSTRUCTIONS+1), err)
	assert.Zero(conn.sent.Len())
}

func TestClient_Store(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	conn := newCanned(buffer.NewState(), false)
	c := NewClient(conn)

	_, err := c.Store(3, 0xdeadbeef)
	require.NoError(err)

	sent := conn.sent.Bytes()
	require.Len(sent, wire.PACKET_SIZE)
	assert.Equal([]byte{0xef, 0xbe, 0xad, 0xde, 0x00}, sent[:5])
	assert.Equal(byte(7), sent[buffer.COMMAND_OFFSET])

	_, err = c.Store(LOCATION_COUNT, 0)
	assert.Equal(ErrLocationRange(LOCATION_COUNT), err)
	_, err = c.Store(-1, 0)
	assert.Equal(ErrLocationRange(-1), err)
}

func TestClient_Store_Unexpected(t *testing.T) {
	assert := assert.New(t)

	// A full reply where only register records are expected.
	replies := &bytes.Buffer{}
	data := (&wire.MemoryRecord{}).Encode()
	replies.Write(data[:])

	c := NewClient(&canned{replies: replies})
	_, err := c.Store(0, 1)
	assert.Equal(ErrUnexpectedRecord(wire.MEMORY_TAG), err)
}

func TestClient_Commands(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		Code byte
		Call func(c *Client) error
	}{
		{Code: command.CODE_CLEAR, Call: func(c *Client) (err error) { _, err = c.Clear(); return }},
		{Code: command.CODE_SYNC, Call: func(c *Client) (err error) { _, err = c.Sync(); return }},
		{Code: command.CODE_RESET, Call: func(c *Client) error { return c.Reset() }},
		{Code: command.CODE_QUIT, Call: func(c *Client) error { return c.Quit() }},
	}

	for _, entry := range table {
		conn := newCanned(buffer.NewState(), true)
		c := NewClient(conn)

		err := entry.Call(c)
		assert.NoError(err)

		expect := make([]byte, wire.PACKET_SIZE)
		expect[buffer.COMMAND_OFFSET] = entry.Code
		assert.Equal(expect, conn.sent.Bytes())
	}
}

func TestClient_ShortReply(t *testing.T) {
	assert := assert.New(t)

	rec := wire.Record{Tag: 1}
	data := rec.Encode()
	replies := bytes.NewBuffer(data[:])
	replies.Write(make([]byte, 10))

	c := NewClient(&canned{replies: replies})
	_, err := c.Sync()
	assert.ErrorIs(err, io.ErrUnexpectedEOF)
}

func TestState_String(t *testing.T) {
	assert := assert.New(t)

	st := &State{Sp: buffer.STACK_TOP}
	st.Memory[1] = -2

	text := st.String()
	assert.Contains(text, "   sp: 2000_03FC\n")
	assert.Contains(text, "   m1: FFFF_FFFE -2\n")
}

// movs executes 'movs rd, #imm8' instructions up to the first 'bx ip'.
func movs(regs *buffer.Registers, ins *buffer.Instructions) {
	for n := 0; n+2 <= buffer.PACKET_SIZE; n += 2 {
		op := binary.LittleEndian.Uint16(ins[n:])
		if op == RETURN_INSTRUCTION {
			return
		}
		if op>>11 == 0b00100 {
			regs[(op>>8)&7] = int32(op & 0xff)
		}
	}
}

func TestClient_Device(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dev := device.NewDevice(engine.Func(movs), &display.Console{Output: io.Discard}, nil)
	dev.Reset()
	go dev.Run(ctx)

	conn, link := net.Pipe()
	defer conn.Close()
	defer link.Close()
	done := dev.Connect(link)

	c := NewClient(conn)
	c.Timeout = 5 * time.Second

	state, err := c.Clear()
	require.NoError(err)
	assert.Equal(int32(buffer.STACK_TOP), state.Sp)
	assert.Equal([8]int32{}, state.Registers)

	state, err = c.Store(0, 0x04030201)
	require.NoError(err)
	assert.Equal([4]int32{}, state.Memory)

	_, err = c.Store(2, 0xffffffff)
	require.NoError(err)

	state, err = c.Sync()
	require.NoError(err)
	assert.Equal([4]int32{0x04030201, 0, -1, 0}, state.Memory)

	program, err := ParseProgram("2005/2163/*r7/2741")
	require.NoError(err)
	state, err = c.Execute(program)
	require.NoError(err)
	assert.Equal(int32(5), state.Registers[0])
	assert.Equal(int32(0x63), state.Registers[1])
	assert.Equal(int32(0x41), state.Registers[7])

	err = c.Quit()
	require.NoError(err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end")
	}
	assert.False(dev.Connected())
}
