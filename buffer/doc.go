// Package buffer implements the storage shared between the host protocol and
// the instruction execution engine.
//
// The instruction buffer is 256 bytes. The first 20 bytes hold the most
// recently received packet (byte 19 is the command code), and the remainder
// is persistent storage addressed in 4-byte slots starting at byte 20.
//
// The register block holds twelve 32-bit words: general registers r0-r7, the
// processor status register, the stack pointer, and two reserved words. The
// stack is 256 words, and only its top address is visible to the engine,
// through the stack pointer.
package buffer
