// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package window shows the LED matrix in a desktop window, and maps the
// A and B keys onto the device buttons.
package window

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ezrec/ubit/device"
	"github.com/ezrec/ubit/display"
)

const (
	CELL_SIZE  = 40                         // Pixels per LED cell.
	LED_SIZE   = 24                         // Pixels per LED.
	SCREEN_W   = display.WIDTH * CELL_SIZE  // Logical screen width.
	SCREEN_H   = display.HEIGHT * CELL_SIZE // Logical screen height.
	TEXT_SCALE = 10                         // Glyph scale in text frames.
)

var (
	colorBackground = color.RGBA{0x10, 0x10, 0x10, 0xff}
	colorText       = color.RGBA{0xff, 0x20, 0x20, 0xff}
)

// keys maps keyboard keys to device buttons.
var keys = map[ebiten.Key]device.Button{
	ebiten.KeyA: device.BUTTON_A,
	ebiten.KeyB: device.BUTTON_B,
}

// Window is an ebiten game showing the most recent frame.
type Window struct {
	Press func(b device.Button) // Called for each button press.

	mutex sync.Mutex
	frame display.Frame

	text      string        // Text of the cached glyph image.
	textImage *ebiten.Image // Glyphs of text, unscaled.
}

var _ display.Display = (*Window)(nil)
var _ ebiten.Game = (*Window)(nil)

// New creates a window. press may be nil.
func New(press func(b device.Button)) *Window {
	return &Window{
		Press: press,
	}
}

// Show replaces the displayed frame.
func (win *Window) Show(frame display.Frame) {
	win.mutex.Lock()
	defer win.mutex.Unlock()

	win.frame = frame
}

// Frame returns the displayed frame.
func (win *Window) Frame() display.Frame {
	win.mutex.Lock()
	defer win.mutex.Unlock()

	return win.frame
}

// Update delivers button presses.
func (win *Window) Update() error {
	if win.Press == nil {
		return nil
	}

	for key, b := range keys {
		if inpututil.IsKeyJustPressed(key) {
			win.Press(b)
		}
	}

	return nil
}

// Draw the frame.
func (win *Window) Draw(screen *ebiten.Image) {
	screen.Fill(colorBackground)

	fr := win.Frame()
	if fr.Text != "" {
		if win.textImage == nil || win.text != fr.Text {
			win.text = fr.Text
			win.textImage = ebiten.NewImageFromImage(glyphs(fr.Text))
		}

		size := win.textImage.Bounds().Size()
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(TEXT_SCALE, TEXT_SCALE)
		op.GeoM.Translate(float64(SCREEN_W-size.X*TEXT_SCALE)/2, float64(SCREEN_H-size.Y*TEXT_SCALE)/2)
		screen.DrawImage(win.textImage, op)
		return
	}

	for y := range display.HEIGHT {
		for x := range display.WIDTH {
			led := screen.SubImage(ledRect(x, y)).(*ebiten.Image)
			led.Fill(ledColor(fr.Pixel(x, y)))
		}
	}
}

// Layout returns the fixed logical screen size.
func (win *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return SCREEN_W, SCREEN_H
}

// ledRect is the screen area of the LED at (x, y).
func ledRect(x, y int) image.Rectangle {
	margin := (CELL_SIZE - LED_SIZE) / 2
	x0 := x*CELL_SIZE + margin
	y0 := y*CELL_SIZE + margin
	return image.Rect(x0, y0, x0+LED_SIZE, y0+LED_SIZE)
}

// ledColor is the colour of an LED at a brightness.
func ledColor(value uint8) color.RGBA {
	if value == display.LED_OFF {
		return color.RGBA{0x30, 0x08, 0x08, 0xff}
	}
	dim := uint8(uint16(value) * 0x20 / 0xff)
	return color.RGBA{value, dim, dim, 0xff}
}

// glyphs renders text in the 7x13 fixed font.
func glyphs(text string) *image.RGBA {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()

	img := image.NewRGBA(image.Rect(0, 0, width, face.Height))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(colorText),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(text)

	return img
}
