// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package device

import (
	"io"

	"github.com/ezrec/ubit/wire"
)

// session is one connection to the host.
type session struct {
	conn io.ReadWriter

	packets chan wire.Packet // Packets read from conn.
	errs    chan error       // Read failure.
	next    chan struct{}    // Permits the next read.
	done    chan struct{}    // Closed when the session ends.
}

func newSession(conn io.ReadWriter) *session {
	return &session{
		conn:    conn,
		packets: make(chan wire.Packet),
		errs:    make(chan error, 1),
		next:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// read delivers packets from the connection, one at a time. The next read
// starts only once the previous packet has been processed. A read blocked in
// the transport is not interrupted when the session ends; it returns when the
// transport is closed.
func (s *session) read() {
	for {
		var p wire.Packet
		_, err := io.ReadFull(s.conn, p[:])
		if err != nil {
			select {
			case s.errs <- err:
			case <-s.done:
			}
			return
		}

		select {
		case s.packets <- p:
		case <-s.done:
			return
		}

		select {
		case <-s.next:
		case <-s.done:
			return
		}
	}
}

// end the session.
func (s *session) end() {
	close(s.done)
}
