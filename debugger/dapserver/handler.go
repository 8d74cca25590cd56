// Copyright © 2024 The rebug authors

package dapserver

import (
	"sync"

	"github.com/google/go-dap"
	"github.com/luthersystems/rebug/debugger"
)

// Variable reference bases encode the scope type; the frame id is added
// on: ref = base + frameID.
const (
	scopeLocalBase   = 1000
	scopeSessionBase = 3000
)

const mainThreadID = 1

// handler dispatches incoming DAP messages against the engine.
type handler struct {
	server *Server

	mu     sync.Mutex
	paused bool
	// frames is the snapshot taken at the last stop, outermost first.
	frames []*debugger.Frame

	stopDone chan struct{}
}

func newHandler(s *Server) *handler {
	h := &handler{
		server:   s,
		stopDone: make(chan struct{}),
	}
	// Forward engine stops to the client as stopped events.
	go func() {
		for {
			select {
			case event := <-s.engine.Stopped():
				h.mu.Lock()
				h.paused = true
				h.frames = s.engine.Frames()
				h.mu.Unlock()
				h.sendStoppedEvent(event.Reason)
			case <-h.stopDone:
				return
			}
		}
	}()
	return h
}

func (h *handler) stop() {
	select {
	case <-h.stopDone:
	default:
		close(h.stopDone)
	}
}

func (h *handler) send(msg dap.Message) {
	if err := h.server.send(msg); err != nil {
		h.server.log.WithError(err).Error("dap send failed")
	}
}

func (h *handler) handle(msg dap.Message) {
	switch req := msg.(type) {
	case *dap.InitializeRequest:
		h.onInitialize(req)
	case *dap.SetBreakpointsRequest:
		h.onSetBreakpoints(req)
	case *dap.ConfigurationDoneRequest:
		h.onConfigurationDone(req)
	case *dap.ThreadsRequest:
		h.onThreads(req)
	case *dap.StackTraceRequest:
		h.onStackTrace(req)
	case *dap.ScopesRequest:
		h.onScopes(req)
	case *dap.VariablesRequest:
		h.onVariables(req)
	case *dap.ContinueRequest:
		h.onContinue(req)
	case *dap.NextRequest:
		h.onNext(req)
	case *dap.StepInRequest:
		h.onStepIn(req)
	case *dap.StepOutRequest:
		h.onStepOut(req)
	case *dap.PauseRequest:
		h.onPause(req)
	case *dap.EvaluateRequest:
		h.onEvaluate(req)
	case *dap.DisconnectRequest:
		h.onDisconnect(req)
	default:
		h.server.log.Warnf("unhandled dap message type %T", msg)
	}
}

func (h *handler) onInitialize(req *dap.InitializeRequest) {
	resp := &dap.InitializeResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	resp.Body = dap.Capabilities{
		SupportsConfigurationDoneRequest: true,
		SupportsConditionalBreakpoints:   true,
		SupportsEvaluateForHovers:        true,
		SupportTerminateDebuggee:         true,
	}
	h.send(resp)
	h.send(&dap.InitializedEvent{Event: h.newEvent("initialized")})
}

func (h *handler) onSetBreakpoints(req *dap.SetBreakpointsRequest) {
	file := req.Arguments.Source.Path
	if file == "" {
		file = req.Arguments.Source.Name
	}
	lines := make([]int, len(req.Arguments.Breakpoints))
	for i, bp := range req.Arguments.Breakpoints {
		lines[i] = bp.Line
	}
	h.server.engine.SetLineBreakpoints(file, lines)

	resp := &dap.SetBreakpointsResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	resp.Body.Breakpoints = translateBreakpoints(file, lines)
	h.send(resp)
}

func (h *handler) onConfigurationDone(req *dap.ConfigurationDoneRequest) {
	resp := &dap.ConfigurationDoneResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)
}

func (h *handler) onThreads(req *dap.ThreadsRequest) {
	resp := &dap.ThreadsResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	resp.Body.Threads = []dap.Thread{{Id: mainThreadID, Name: "script"}}
	h.send(resp)
}

func (h *handler) onStackTrace(req *dap.StackTraceRequest) {
	resp := &dap.StackTraceResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)

	frames := h.snapshotFrames()
	dapFrames := translateStackFrames(frames)
	resp.Body.TotalFrames = len(dapFrames)

	start := req.Arguments.StartFrame
	if start > len(dapFrames) {
		start = len(dapFrames)
	}
	end := len(dapFrames)
	if req.Arguments.Levels > 0 && start+req.Arguments.Levels < end {
		end = start + req.Arguments.Levels
	}
	resp.Body.StackFrames = dapFrames[start:end]
	h.send(resp)
}

func (h *handler) onScopes(req *dap.ScopesRequest) {
	resp := &dap.ScopesResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	scopes := []dap.Scope{{
		Name:               "Local",
		VariablesReference: scopeLocalBase + req.Arguments.FrameId,
	}}
	if h.server.store != nil {
		scopes = append(scopes, dap.Scope{
			Name:               "Sessions",
			VariablesReference: scopeSessionBase + req.Arguments.FrameId,
			Expensive:          true,
		})
	}
	resp.Body.Scopes = scopes
	h.send(resp)
}

func (h *handler) onVariables(req *dap.VariablesRequest) {
	resp := &dap.VariablesResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)

	ref := req.Arguments.VariablesReference
	switch {
	case ref >= scopeSessionBase:
		resp.Body.Variables = translateSessions(h.server.store)
	case ref >= scopeLocalBase:
		frame := h.frameByID(ref - scopeLocalBase)
		resp.Body.Variables = translateVariables(debugger.InspectLocals(frame))
	}
	h.send(resp)
}

func (h *handler) onContinue(req *dap.ContinueRequest) {
	resp := &dap.ContinueResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	resp.Body.AllThreadsContinued = true
	h.send(resp)
	h.resume(h.server.engine.Continue)
}

func (h *handler) onNext(req *dap.NextRequest) {
	resp := &dap.NextResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)
	h.resume(h.server.engine.StepOver)
}

func (h *handler) onStepIn(req *dap.StepInRequest) {
	resp := &dap.StepInResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)
	h.resume(h.server.engine.StepInto)
}

func (h *handler) onStepOut(req *dap.StepOutRequest) {
	resp := &dap.StepOutResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)
	h.resume(h.server.engine.StepOut)
}

func (h *handler) onPause(req *dap.PauseRequest) {
	resp := &dap.PauseResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)
	h.server.engine.RequestPause()
}

func (h *handler) onEvaluate(req *dap.EvaluateRequest) {
	resp := &dap.EvaluateResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)

	frame := h.frameByID(req.Arguments.FrameId)
	if frame == nil {
		frame = h.topFrame()
	}
	ret, err := debugger.EvalInContext(frame, req.Arguments.Expression)
	if err != nil {
		resp.Success = false
		resp.Message = err.Error()
	} else {
		resp.Body.Result = debugger.FormatValue(ret)
		resp.Body.Type = ret.Kind.String()
	}
	h.send(resp)
}

func (h *handler) onDisconnect(req *dap.DisconnectRequest) {
	resp := &dap.DisconnectResponse{}
	resp.Response = h.newResponse(req.Seq, req.Command)
	h.send(resp)

	h.server.engine.Disable()
	h.mu.Lock()
	paused := h.paused
	h.paused = false
	h.mu.Unlock()
	if paused {
		// Unblock the evaluation goroutine so the debuggee can exit.
		h.server.engine.Abort()
	}
	h.send(&dap.TerminatedEvent{Event: h.newEvent("terminated")})
	h.server.close()
}

// resume forwards a step action to the suspended evaluation goroutine.
// Requests arriving while the debuggee is running are dropped; the
// engine has no one waiting for an action then.
func (h *handler) resume(action func()) {
	h.mu.Lock()
	if !h.paused {
		h.mu.Unlock()
		return
	}
	h.paused = false
	h.frames = nil
	h.mu.Unlock()
	action()
}

func (h *handler) snapshotFrames() []*debugger.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// frameByID resolves a DAP frame id (1-based, innermost first) against
// the stop snapshot.
func (h *handler) frameByID(id int) *debugger.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := len(h.frames) - id
	if id < 1 || idx < 0 || idx >= len(h.frames) {
		return nil
	}
	return h.frames[idx]
}

func (h *handler) topFrame() *debugger.Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[len(h.frames)-1]
}

func (h *handler) sendStoppedEvent(reason debugger.StopReason) {
	evt := &dap.StoppedEvent{Event: h.newEvent("stopped")}
	evt.Body.Reason = string(reason)
	evt.Body.ThreadId = mainThreadID
	evt.Body.AllThreadsStopped = true
	h.send(evt)
}

func (h *handler) newResponse(reqSeq int, command string) dap.Response {
	return dap.Response{
		ProtocolMessage: dap.ProtocolMessage{Seq: h.server.nextSeq(), Type: "response"},
		RequestSeq:      reqSeq,
		Success:         true,
		Command:         command,
	}
}

func (h *handler) newEvent(event string) dap.Event {
	return dap.Event{
		ProtocolMessage: dap.ProtocolMessage{Seq: h.server.nextSeq(), Type: "event"},
		Event:           event,
	}
}
