// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tebeka/atexit"

	"github.com/ezrec/ubit/command"
	"github.com/ezrec/ubit/device"
	"github.com/ezrec/ubit/display"
	"github.com/ezrec/ubit/display/window"
	"github.com/ezrec/ubit/engine"
	"github.com/ezrec/ubit/link"
)

const (
	EXIT_RESET = 3 // Exit status requesting a restart from the supervisor.
)

var _ link.Disconnector = (*device.Device)(nil)

// softReset restarts the device in place.
type softReset struct{}

func (softReset) Reset() {
	log.Printf("ubit: reset")
}

// exitReset restarts the device by exiting, as the hardware does.
type exitReset struct{}

func (exitReset) Reset() {
	log.Printf("ubit: reset, exiting")
	atexit.Exit(EXIT_RESET)
}

func main() {
	var addr string
	var tty string
	var baud uint
	var script string
	var gui bool
	var restart bool
	var keys bool
	var verbose bool

	flag.StringVar(&addr, "l", "localhost:5150", "TCP address to listen on")
	flag.StringVar(&tty, "tty", "", "Serial port to use instead of TCP")
	flag.UintVar(&baud, "baud", 115200, "Serial port baud rate")
	flag.StringVar(&script, "script", "", "Starlark .star engine script")
	flag.BoolVar(&gui, "gui", false, "Show the LED matrix in a window")
	flag.BoolVar(&restart, "restart", false, fmt.Sprintf("Exit with status %d on reset", EXIT_RESET))
	flag.BoolVar(&keys, "k", false, "Read buttons 'a' and 'b' from the terminal")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	var eng engine.Engine = engine.Nop{}
	if len(script) != 0 {
		inf, err := os.Open(script)
		if err != nil {
			log.Fatalf("%v: %v", script, err)
		}
		s, err := engine.NewScript(script, inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v", err)
		}
		s.Verbose = verbose
		eng = s
	}

	var resetter command.Resetter = softReset{}
	if restart {
		resetter = exitReset{}
	}

	var win *window.Window
	var disp display.Display = &display.Console{Output: os.Stdout}
	if gui {
		win = window.New(nil)
		disp = win
	}

	dev := device.NewDevice(eng, disp, resetter)
	dev.Verbose = verbose
	if win != nil {
		win.Press = dev.Press
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	atexit.Register(cancel)

	if keys {
		err := enterRawTerm()
		if err != nil {
			atexit.Fatalf("ubit: terminal: %v", err)
		}
		atexit.Register(exitRawTerm)
		go readButtons(ctx, os.Stdin, dev)
	}

	if len(tty) != 0 {
		port, err := link.OpenSerial(tty, baud)
		if err != nil {
			atexit.Fatalf("ubit: %v", err)
		}
		atexit.Register(func() { port.Close() })
		go link.Attach(ctx, port, dev)
	} else {
		srv, err := link.Listen(addr, dev)
		if err != nil {
			atexit.Fatalf("ubit: %v", err)
		}
		srv.Verbose = verbose
		log.Printf("ubit: listening on %v", srv.Addr())
		go srv.Serve(ctx)
	}

	dev.Reset()

	if win == nil {
		err := dev.Run(ctx)
		if verbose {
			log.Printf("ubit: %v", err)
		}
		atexit.Exit(0)
	}

	// The window owns the main goroutine.
	go func() {
		dev.Run(ctx)
		atexit.Exit(0)
	}()

	ebiten.SetWindowTitle("micro:bit")
	ebiten.SetWindowSize(window.SCREEN_W*2, window.SCREEN_H*2)
	err := ebiten.RunGame(win)
	if err != nil {
		atexit.Fatalf("ubit: %v", err)
	}
	atexit.Exit(0)
}
