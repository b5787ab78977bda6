// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package display maps the register block onto the 5x5 LED matrix.
package display

import (
	"io"
	"strings"
	"sync"

	"github.com/ezrec/ubit/buffer"
)

const (
	WIDTH   = 5   // Matrix columns.
	HEIGHT  = 5   // Matrix rows.
	LED_ON  = 255 // Brightness of a lit LED.
	LED_OFF = 0   // Brightness of a dark LED.

	CHAR_MIN = 31 // r7 values above this are shown as a character.
)

// Mode selects what Render shows.
type Mode int

const (
	MODE_REGISTERS = Mode(0) // Register view.
	MODE_MARKER    = Mode(1) // Fixed status marker.
)

// Grid of LED brightness values, indexed [y][x].
type Grid [HEIGHT][WIDTH]uint8

// Frame is one image for the matrix: either a grid or a line of text.
type Frame struct {
	Grid Grid
	Text string // If set, shown instead of the grid.
}

// Pixel returns the brightness at (x, y).
func (fr *Frame) Pixel(x, y int) uint8 {
	return fr.Grid[y][x]
}

// SetPixel sets the brightness at (x, y).
func (fr *Frame) SetPixel(x, y int, value uint8) {
	fr.Grid[y][x] = value
}

// String returns the frame as text, one line per row.
func (fr *Frame) String() string {
	if fr.Text != "" {
		return "[" + fr.Text + "]\n"
	}

	var sb strings.Builder
	for y := range HEIGHT {
		for x := range WIDTH {
			if fr.Grid[y][x] != LED_OFF {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Text returns a frame showing a line of text.
func Text(text string) Frame {
	return Frame{Text: text}
}

// Marker returns the status marker frame: only (0, 4) lit.
func Marker() (fr Frame) {
	fr.SetPixel(0, 4, LED_ON)
	return
}

// psrMask are the PSR flags shown on row 4, from x=4 leftwards.
var psrMask = [4]uint32{
	buffer.PSR_V,
	buffer.PSR_C,
	buffer.PSR_Z,
	buffer.PSR_N,
}

// Registers returns the register view of regs.
//
// If r7 is above CHAR_MIN its low byte is shown as a character. Otherwise
// rows 0-3 show the low five bits of r0-r3, bit 0 at x=4, and row 4 shows the
// V, C, Z and N flags of the PSR at x=4 down to x=1.
func Registers(regs *buffer.Registers) (fr Frame) {
	if regs[buffer.REG_CHAR] > CHAR_MIN {
		fr.Text = string(rune(byte(regs[buffer.REG_CHAR] & 0xff)))
		return
	}

	for y := range 4 {
		reg := regs[y]
		for i := 1; i <= 5; i++ {
			if reg&(1<<(i-1)) != 0 {
				fr.SetPixel(5-i, y, LED_ON)
			}
		}
	}

	psr := regs.Psr()
	for z := 1; z <= 4; z++ {
		if psr&psrMask[z-1] != 0 {
			fr.SetPixel(5-z, 4, LED_ON)
		}
	}

	return
}

// Render the frame for a display mode.
func Render(mode Mode, regs *buffer.Registers) Frame {
	if mode == MODE_MARKER {
		return Marker()
	}

	return Registers(regs)
}

// Display is the LED matrix.
type Display interface {
	// Show replaces the displayed image.
	Show(frame Frame)
}

// Console writes each frame to a text stream.
type Console struct {
	Output io.Writer

	mutex sync.Mutex
}

var _ Display = (*Console)(nil)

// Show writes the frame.
func (con *Console) Show(frame Frame) {
	con.mutex.Lock()
	defer con.mutex.Unlock()

	io.WriteString(con.Output, frame.String())
}
