// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"context"
	"io"
	"log"

	"github.com/ezrec/ubit/device"
)

type presser interface {
	Press(b device.Button)
}

// readButtons presses a button for each 'a' or 'b' read from r, until r
// fails or ctx is done.
func readButtons(ctx context.Context, r io.Reader, dev presser) {
	br := bufio.NewReader(r)
	for ctx.Err() == nil {
		c, err := br.ReadByte()
		if err != nil {
			if err != io.EOF {
				log.Printf("ubit: buttons: %v", err)
			}
			return
		}

		switch c {
		case 'a', 'A':
			dev.Press(device.BUTTON_A)
		case 'b', 'B':
			dev.Press(device.BUTTON_B)
		}
	}
}
