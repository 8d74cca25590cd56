// Copyright © 2024 The rebug authors

package dapserver

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/google/go-dap"
	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/script"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClient struct {
	t    *testing.T
	conn net.Conn
	buf  *bufio.Reader
	seq  int
	// backlog holds messages read past while waiting for another type;
	// events and responses interleave nondeterministically.
	backlog []dap.Message
}

func newTestClient(t *testing.T, conn net.Conn) *testClient {
	return &testClient{t: t, conn: conn, buf: bufio.NewReader(conn)}
}

func (c *testClient) send(msg dap.Message) {
	c.t.Helper()
	require.NoError(c.t, dap.WriteProtocolMessage(c.conn, msg))
}

func (c *testClient) request(command string) dap.Request {
	c.seq++
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{Seq: c.seq, Type: "request"},
		Command:         command,
	}
}

// expect returns the next message of the wanted type, buffering any
// other messages read along the way so later expectations still see
// them.
func expect[T dap.Message](c *testClient) T {
	c.t.Helper()
	for i, msg := range c.backlog {
		if want, ok := msg.(T); ok {
			c.backlog = append(c.backlog[:i], c.backlog[i+1:]...)
			return want
		}
	}
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(c.t, c.conn.SetReadDeadline(deadline))
	for {
		msg, err := dap.ReadProtocolMessage(c.buf)
		require.NoError(c.t, err)
		if want, ok := msg.(T); ok {
			return want
		}
		c.backlog = append(c.backlog, msg)
	}
}

func startSession(t *testing.T, src string) (*testClient, *debugger.Engine, chan *script.Value) {
	t.Helper()
	env := script.NewEnv(nil)
	engine := debugger.NewEngine(debugger.WithStopOnEntry())
	env.Runtime.Debugger = engine

	forms, err := env.Runtime.Reader.Read("dap.rebug", src)
	require.NoError(t, err)
	env.Runtime.Library.Put("dap.rebug", src)
	scope := env.Child()
	engine.PushRoot(debugger.NewFrameCode(debugger.RootFrameName, debugger.RootFrameName, "dap.rebug", forms), scope)

	store := debugger.NewStore()
	server := New(engine, store)
	serverConn, clientConn := net.Pipe()
	go func() {
		_ = server.Serve(serverConn, serverConn)
	}()
	t.Cleanup(func() { _ = clientConn.Close() })

	done := make(chan *script.Value, 1)
	go func() {
		done <- scope.EvalBody(forms)
	}()
	return newTestClient(t, clientConn), engine, done
}

func TestServerInitialize(t *testing.T) {
	client, _, _ := startSession(t, "(+ 1 2)")

	client.send(&dap.InitializeRequest{Request: client.request("initialize")})
	resp := expect[*dap.InitializeResponse](client)
	assert.True(t, resp.Success)
	assert.True(t, resp.Body.SupportsConfigurationDoneRequest)
	expect[*dap.InitializedEvent](client)
}

func TestServerStopAndStep(t *testing.T) {
	src := `(defun f (x)
  (+ x 1))
(f 41)`
	client, _, done := startSession(t, src)

	client.send(&dap.InitializeRequest{Request: client.request("initialize")})
	expect[*dap.InitializedEvent](client)

	// The engine stops on entry at the first statement.
	stopped := expect[*dap.StoppedEvent](client)
	assert.Equal(t, "entry", stopped.Body.Reason)

	client.send(&dap.ThreadsRequest{Request: client.request("threads")})
	threads := expect[*dap.ThreadsResponse](client)
	require.Len(t, threads.Body.Threads, 1)

	st := &dap.StackTraceRequest{Request: client.request("stackTrace")}
	client.send(st)
	frames := expect[*dap.StackTraceResponse](client)
	require.NotEmpty(t, frames.Body.StackFrames)
	assert.Equal(t, debugger.RootFrameName, frames.Body.StackFrames[0].Name)

	// Step over the defun, landing on the call.
	client.send(&dap.NextRequest{Request: client.request("next")})
	expect[*dap.NextResponse](client)
	stopped = expect[*dap.StoppedEvent](client)
	assert.Equal(t, "step", stopped.Body.Reason)

	// Continue to completion.
	client.send(&dap.ContinueRequest{Request: client.request("continue")})
	expect[*dap.ContinueResponse](client)

	select {
	case ret := <-done:
		assert.True(t, script.Equal(script.Int(42), ret), ret.String())
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation did not finish")
	}
}

func TestServerVariablesAndEvaluate(t *testing.T) {
	src := `(defun f (x)
  (+ x 1)
  (* x 2))
(f 20)`
	client, _, done := startSession(t, src)

	client.send(&dap.InitializeRequest{Request: client.request("initialize")})
	expect[*dap.StoppedEvent](client)

	// Step into the function so locals exist.
	client.send(&dap.NextRequest{Request: client.request("next")})
	expect[*dap.StoppedEvent](client)
	client.send(&dap.StepInRequest{Request: client.request("stepIn")})
	expect[*dap.StoppedEvent](client)

	client.send(&dap.StackTraceRequest{Request: client.request("stackTrace")})
	frames := expect[*dap.StackTraceResponse](client)
	require.GreaterOrEqual(t, len(frames.Body.StackFrames), 2)
	assert.Equal(t, "f", frames.Body.StackFrames[0].Name)
	frameID := frames.Body.StackFrames[0].Id

	scopesReq := &dap.ScopesRequest{Request: client.request("scopes")}
	scopesReq.Arguments.FrameId = frameID
	client.send(scopesReq)
	scopes := expect[*dap.ScopesResponse](client)
	require.NotEmpty(t, scopes.Body.Scopes)

	varsReq := &dap.VariablesRequest{Request: client.request("variables")}
	varsReq.Arguments.VariablesReference = scopes.Body.Scopes[0].VariablesReference
	client.send(varsReq)
	vars := expect[*dap.VariablesResponse](client)
	byName := map[string]string{}
	for _, v := range vars.Body.Variables {
		byName[v.Name] = v.Value
	}
	assert.Equal(t, "20", byName["x"])

	evalReq := &dap.EvaluateRequest{Request: client.request("evaluate")}
	evalReq.Arguments.Expression = "(* x 3)"
	evalReq.Arguments.FrameId = frameID
	client.send(evalReq)
	eval := expect[*dap.EvaluateResponse](client)
	require.True(t, eval.Success, eval.Message)
	assert.Equal(t, "60", eval.Body.Result)

	client.send(&dap.ContinueRequest{Request: client.request("continue")})
	expect[*dap.ContinueResponse](client)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("evaluation did not finish")
	}
}

func TestServerLogsUnhandledMessages(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()
	server := New(debugger.NewEngine(), nil, WithLogger(logger))
	serverConn, clientConn := net.Pipe()
	go func() { _ = server.Serve(serverConn, serverConn) }()
	t.Cleanup(func() { _ = clientConn.Close() })
	client := newTestClient(t, clientConn)

	// Attach is not supported; the initialize response that follows
	// guarantees the handler processed it.
	client.send(&dap.AttachRequest{Request: client.request("attach")})
	client.send(&dap.InitializeRequest{Request: client.request("initialize")})
	expect[*dap.InitializeResponse](client)

	require.NotEmpty(t, hook.Entries)
	assert.Contains(t, hook.Entries[0].Message, "unhandled dap message type")
}

func TestServerDisconnectAborts(t *testing.T) {
	client, _, done := startSession(t, "(defun f (x) x)\n(f 1)")

	client.send(&dap.InitializeRequest{Request: client.request("initialize")})
	expect[*dap.StoppedEvent](client)

	client.send(&dap.DisconnectRequest{Request: client.request("disconnect")})
	expect[*dap.TerminatedEvent](client)

	select {
	case ret := <-done:
		require.Equal(t, script.KError, ret.Kind)
		assert.Equal(t, script.AbortCondition, ret.Condition())
	case <-time.After(5 * time.Second):
		t.Fatal("debuggee did not unwind")
	}
}
