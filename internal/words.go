// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package internal

import (
	"encoding/binary"
	"iter"
)

// Words iterates over the complete little-endian 32-bit words of data,
// yielding the word index and its signed value.
func Words(data []byte) iter.Seq2[int, int32] {
	return func(yield func(int, int32) bool) {
		for n := 0; n+4 <= len(data); n += 4 {
			if !yield(n/4, int32(binary.LittleEndian.Uint32(data[n:]))) {
				return // Stop if the consumer stops
			}
		}
	}
}

// PutWords stores words into data as little-endian 32-bit values.
// data must have room for all of the words.
func PutWords(data []byte, words ...int32) {
	for n, word := range words {
		binary.LittleEndian.PutUint32(data[n*4:], uint32(word))
	}
}
