// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ezrec/ubit/host"
	"github.com/ezrec/ubit/link"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %v [options] command [args]

Commands:
  exec PROGRAM          Execute up to 8 instructions, e.g. '2005/2107'
  exec @FILE            Assemble and execute Thumb source, '@-' for stdin
  store LOCATION WORD   Store a hexadecimal word in memory location 0-3
  clear                 Clear registers and memory
  sync                  Show the device state
  reset                 Restart the device
  quit                  End the device session

Options:
`, os.Args[0])
	flag.PrintDefaults()
}

// parseExec parses a hexadecimal program, or assembles the Thumb source file
// named after an '@'.
func parseExec(arg string) (program []uint16, err error) {
	name, ok := strings.CutPrefix(arg, "@")
	if !ok {
		return host.ParseProgram(arg)
	}

	var input io.Reader = os.Stdin
	if name != "-" {
		var inf *os.File
		inf, err = os.Open(name)
		if err != nil {
			return
		}
		defer inf.Close()
		input = inf
	}

	asm := &host.Assembler{}
	return asm.Parse(input)
}

// run a single command on the client.
func run(c *host.Client, args []string) (state host.State, reply bool, err error) {
	name := strings.ToLower(args[0])
	args = args[1:]

	expect := map[string]int{
		"exec":  1,
		"store": 2,
		"clear": 0,
		"sync":  0,
		"reset": 0,
		"quit":  0,
	}

	count, ok := expect[name]
	if !ok {
		err = ErrCommandUnknown(name)
		return
	}
	if len(args) != count {
		err = &ErrArgumentCount{Command: name, Want: count, Got: len(args)}
		return
	}

	reply = true
	switch name {
	case "exec":
		var program []uint16
		program, err = parseExec(args[0])
		if err != nil {
			return
		}
		state, err = c.Execute(program)
	case "store":
		var location int
		location, err = strconv.Atoi(args[0])
		if err != nil {
			err = &ErrLocation{Text: args[0], Err: err}
			return
		}
		var word uint32
		word, err = host.ParseWord(args[1])
		if err != nil {
			return
		}
		state, err = c.Store(location, word)
	case "clear":
		state, err = c.Clear()
	case "sync":
		state, err = c.Sync()
	case "reset":
		reply = false
		err = c.Reset()
	case "quit":
		reply = false
		err = c.Quit()
	}

	return
}

func main() {
	var addr string
	var tty string
	var baud uint
	var timeout time.Duration
	var verbose bool

	flag.StringVar(&addr, "addr", "localhost:5150", "Device TCP address")
	flag.StringVar(&tty, "tty", "", "Serial port to use instead of TCP")
	flag.UintVar(&baud, "baud", 115200, "Serial port baud rate")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "Reply timeout")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Usage = usage

	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var conn io.ReadWriteCloser
	var err error
	if len(tty) != 0 {
		conn, err = link.OpenSerial(tty, baud)
	} else {
		conn, err = net.DialTimeout("tcp", addr, timeout)
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
	defer conn.Close()

	c := host.NewClient(conn)
	c.Verbose = verbose
	c.Timeout = timeout

	state, reply, err := run(c, flag.Args())
	if err != nil {
		conn.Close()
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	if reply {
		fmt.Print(state.String())
	}
}
