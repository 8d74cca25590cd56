// Copyright © 2024 The rebug authors

// Package dapserver exposes a stepping engine over the Debug Adapter
// Protocol.  It translates between the DAP wire format and the
// debugger.Engine suspension model.
//
// Two transports are supported: TCP, where the server accepts a single
// client connection, and stdio, for editors that launch the adapter as
// a child process.
package dapserver

import (
	"bufio"
	"io"
	"net"
	"sync"

	"github.com/google/go-dap"
	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/script"
	"github.com/sirupsen/logrus"
)

// Server speaks DAP on behalf of a debugger engine.
type Server struct {
	engine *debugger.Engine
	store  *debugger.Store
	log    logrus.FieldLogger

	mu     sync.Mutex
	seq    int
	writer io.Writer

	done chan struct{}
}

// Option configures a new Server.
type Option func(*Server)

// WithLogger routes session diagnostics through log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// New returns a server wrapping the engine.  The session store, when
// non-nil, is exposed to the client as an extra variable scope.
func New(engine *debugger.Engine, store *debugger.Store, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		store:  store,
		log:    logrus.StandardLogger(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServeTCP listens on addr and serves a single DAP client, blocking
// until the client disconnects.
func (s *Server) ServeTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close() //nolint:errcheck
	return s.ServeListener(ln)
}

// ServeListener accepts one connection and serves DAP messages on it.
func (s *Server) ServeListener(ln net.Listener) error {
	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close() //nolint:errcheck
	return s.Serve(conn, conn)
}

// ServeStdio serves DAP messages on a reader and writer pair, typically
// os.Stdin and os.Stdout.
func (s *Server) ServeStdio(r io.Reader, w io.Writer) error {
	return s.Serve(r, w)
}

// Serve processes DAP messages from r, writing responses and events to
// w, until disconnect or EOF.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()

	h := newHandler(s)
	defer h.stop()
	buf := bufio.NewReader(r)
	for {
		select {
		case <-s.done:
			return nil
		default:
		}
		msg, err := dap.ReadProtocolMessage(buf)
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		h.handle(msg)
	}
}

// NotifyExited reports evaluation completion to the client.  The caller
// that owns the evaluation goroutine invokes this when the goroutine
// finishes.
func (s *Server) NotifyExited(ret *script.Value) {
	h := &handler{server: s}
	code := 0
	if ret != nil && ret.Kind == script.KError {
		code = 1
	}
	exited := &dap.ExitedEvent{Event: h.newEvent("exited")}
	exited.Body.ExitCode = code
	s.send(exited)
	s.send(&dap.TerminatedEvent{Event: h.newEvent("terminated")})
}

func (s *Server) send(msg dap.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer == nil {
		return nil
	}
	return dap.WriteProtocolMessage(s.writer, msg)
}

func (s *Server) nextSeq() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Server) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
