// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package link connects host transports to a device: TCP connections, where
// accept and close are the connect and disconnect events, and serial ports,
// which are always connected.
package link

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

const (
	RECONNECT_DELAY = 100 * time.Millisecond // First pause before reconnecting.
	RECONNECT_MAX   = 10 * time.Second       // Longest pause before reconnecting.
)

// Connector serves host connections. The returned channel is closed when
// the connection is no longer being served.
type Connector interface {
	Connect(conn io.ReadWriter) <-chan struct{}
}

// Disconnector is a Connector that accepts disconnect events. It is told
// when a transport stops serving a connection that is still open.
type Disconnector interface {
	Disconnect()
}

// disconnect sends a disconnect event, if the connector accepts them.
func disconnect(connector Connector) {
	if d, ok := connector.(Disconnector); ok {
		d.Disconnect()
	}
}

// Server accepts TCP host connections, serving one at a time.
type Server struct {
	Verbose bool // If set, logs connections.

	connector Connector
	listener  net.Listener
	closed    atomic.Bool
}

// Listen creates a server listening on a TCP address.
func Listen(addr string, connector Connector) (srv *Server, err error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return
	}

	srv = &Server{
		connector: connector,
		listener:  listener,
	}

	return
}

// Addr returns the listening address.
func (srv *Server) Addr() net.Addr {
	return srv.listener.Addr()
}

// Close stops the server.
func (srv *Server) Close() error {
	srv.closed.Store(true)
	return srv.listener.Close()
}

// Serve accepts connections until ctx is done or the server is closed. Each
// connection is handed to the connector, and closed once it is no longer
// served. Further clients wait in the listen backlog meanwhile.
func (srv *Server) Serve(ctx context.Context) (err error) {
	stop := context.AfterFunc(ctx, func() {
		srv.Close()
	})
	defer stop()

	for {
		var conn net.Conn
		conn, err = srv.listener.Accept()
		if err != nil {
			if srv.closed.Load() {
				err = ctx.Err()
				return
			}
			log.Printf("link: accept: %v", err)
			return
		}

		if srv.Verbose {
			log.Printf("link: %v connected", conn.RemoteAddr())
		}

		select {
		case <-srv.connector.Connect(conn):
		case <-ctx.Done():
			disconnect(srv.connector)
		}

		if srv.Verbose {
			log.Printf("link: %v closed", conn.RemoteAddr())
		}
		conn.Close()
	}
}

// Attach serves an always connected transport until ctx is done,
// connecting again whenever a session ends. Sessions that end quickly, as
// on a failed port, are retried with a doubling delay up to RECONNECT_MAX.
func Attach(ctx context.Context, conn io.ReadWriter, connector Connector) error {
	delay := RECONNECT_DELAY
	for {
		start := time.Now()
		select {
		case <-connector.Connect(conn):
		case <-ctx.Done():
			disconnect(connector)
			return ctx.Err()
		}

		var pause time.Duration
		pause, delay = backoff(delay, time.Since(start))

		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// backoff returns the pause after a session that was served for served, and
// the delay to use after the next session.
func backoff(delay, served time.Duration) (pause, next time.Duration) {
	if served >= RECONNECT_MAX {
		delay = RECONNECT_DELAY
	}

	pause = delay
	next = min(2*delay, RECONNECT_MAX)
	return
}

// OpenSerial opens a serial port at 8N1.
func OpenSerial(port string, baud uint) (rwc io.ReadWriteCloser, err error) {
	if port == "" {
		err = &ErrSerial{Port: port, Err: errors.New(f("no port name"))}
		return
	}

	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        baud,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	rwc, err = serial.Open(options)
	if err != nil {
		err = &ErrSerial{Port: port, Err: err}
		return
	}

	return
}
