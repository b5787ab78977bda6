// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package wire encodes and decodes the fixed size packets exchanged between
// the host tool and the bridge.
//
// The host sends 20 byte packets, 19 bytes of payload followed by a command
// code. A full reply is four 20 byte packets, sent as separate writes: three
// register records tagged 1, 2 and 3, each carrying four words of the register
// block, and one memory record tagged 4 carrying the instruction buffer peek
// window. All words are little-endian.
package wire

import (
	"io"

	"github.com/ezrec/ubit/buffer"
	"github.com/ezrec/ubit/internal"
)

const (
	PACKET_SIZE  = buffer.PACKET_SIZE        // Inbound packet size.
	PAYLOAD_SIZE = buffer.COMMAND_OFFSET     // Inbound payload before the command code.
	REPLY_SIZE   = 20                        // Size of every outbound packet.
	RECORD_WORDS = 4                         // Register words per record.
	RECORD_COUNT = buffer.REGISTER_COUNT / 4 // Records covering the register block.
	MEMORY_TAG   = 4                         // Tag of the memory record.
	WORD_OFFSET  = 4                         // Offset of the data words in a reply.
)

// Packet is a single inbound packet.
type Packet [PACKET_SIZE]byte

// NewPacket builds a packet from a command code and a zero padded payload.
func NewPacket(command byte, payload []byte) (p Packet, err error) {
	if len(payload) > PAYLOAD_SIZE {
		err = ErrPayloadSize
		return
	}

	copy(p[:], payload)
	p[buffer.COMMAND_OFFSET] = command
	return
}

// Command returns the command code of the packet.
func (p *Packet) Command() byte {
	return p[buffer.COMMAND_OFFSET]
}

// Record is one register report record.
type Record struct {
	Tag   int32               // Sequence tag, 1 to RECORD_COUNT.
	Words [RECORD_WORDS]int32 // Register words.
}

// Records splits the register block into its tagged records.
func Records(regs *buffer.Registers) (records [RECORD_COUNT]Record) {
	for n := range records {
		records[n].Tag = int32(n + 1)
		copy(records[n].Words[:], regs[n*RECORD_WORDS:(n+1)*RECORD_WORDS])
	}
	return
}

// Encode the record for the wire.
func (rec *Record) Encode() (data [REPLY_SIZE]byte) {
	internal.PutWords(data[:], rec.Tag)
	internal.PutWords(data[WORD_OFFSET:], rec.Words[:]...)
	return
}

// MemoryRecord carries the peek window of the instruction buffer.
type MemoryRecord struct {
	Window [buffer.WINDOW_SIZE]byte
}

// Encode the memory record for the wire. Bytes 1 to 3 are always zero.
func (mem *MemoryRecord) Encode() (data [REPLY_SIZE]byte) {
	data[0] = MEMORY_TAG
	copy(data[WORD_OFFSET:], mem.Window[:])
	return
}

// WriteRecords sends the three register records, one write each.
func WriteRecords(w io.Writer, regs *buffer.Registers) (err error) {
	for _, rec := range Records(regs) {
		data := rec.Encode()
		_, err = w.Write(data[:])
		if err != nil {
			return
		}
	}
	return
}

// WriteMemory sends the memory record.
func WriteMemory(w io.Writer, ins *buffer.Instructions) (err error) {
	mem := MemoryRecord{Window: ins.Window()}
	data := mem.Encode()
	_, err = w.Write(data[:])
	return
}

// WriteReply sends a full reply: the register records, then the memory record.
func WriteReply(w io.Writer, st *buffer.State) (err error) {
	err = WriteRecords(w, &st.Registers)
	if err != nil {
		return
	}

	err = WriteMemory(w, &st.Instructions)
	return
}

// Reply is a decoded outbound packet. Register records and the memory record
// share the same shape: a tag in the first byte and four words.
type Reply struct {
	Tag   byte
	Words [RECORD_WORDS]int32
}

// Decode a single outbound packet.
func Decode(data []byte) (reply Reply, err error) {
	if len(data) != REPLY_SIZE {
		err = ErrReplySize(len(data))
		return
	}

	reply.Tag = data[0]
	if reply.Tag < 1 || reply.Tag > MEMORY_TAG {
		err = ErrReplyTag(reply.Tag)
		return
	}

	for n, word := range internal.Words(data[WORD_OFFSET:]) {
		reply.Words[n] = word
	}
	return
}
