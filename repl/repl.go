// Copyright © 2024 The rebug authors

// Package repl implements the interactive surfaces: a line-editing
// read-eval-print loop with colon commands for capturing call bindings,
// and a single-key stepping surface driving the frame navigator.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"github.com/luthersystems/rebug/debugger"
	"github.com/luthersystems/rebug/script"
)

type config struct {
	stdin  io.ReadCloser
	stderr io.WriteCloser
}

func newConfig(opts ...Option) *config {
	config := &config{}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

type Option func(*config)

// WithStdin allows overriding the input to the REPL.
func WithStdin(stdin io.ReadCloser) Option {
	return func(c *config) {
		c.stdin = stdin
	}
}

// WithStderr allows overriding the output to the REPL.
func WithStderr(stderr io.WriteCloser) Option {
	return func(c *config) {
		c.stderr = stderr
	}
}

// RunRepl runs a repl in a fresh environment.
func RunRepl(prompt string, opts ...Option) {
	env := script.NewEnv(nil)
	RunEnv(env, prompt, opts...)
}

// RunEnv runs a repl with env as a root environment.
func RunEnv(env *script.Env, prompt string, opts ...Option) {
	if env.Parent != nil {
		errlnf("REPL environment is not a root environment.")
		os.Exit(1)
	}

	cfg := newConfig(opts...)
	if cfg.stderr != nil {
		env.Runtime.Stderr = cfg.stderr
	}

	store := debugger.NewStore()
	store.Install(env)

	histFile := historyPath()
	ensureHistoryFilePermissions(histFile)
	rlCfg := &readline.Config{
		Stdout:            env.Runtime.Stderr,
		Stderr:            env.Runtime.Stderr,
		Prompt:            prompt,
		HistoryFile:       histFile,
		HistorySearchFold: true,
		AutoComplete:      &symbolCompleter{env: env},
	}
	if cfg.stdin != nil {
		rlCfg.Stdin = cfg.stdin
	}
	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		panic(err)
	}
	defer rl.Close() //nolint:errcheck // best-effort cleanup

	r := &repl{
		env:   env,
		store: store,
		out:   env.Runtime.Stderr,
		stdin: cfg.stdin,
	}
	for {
		line, err := rl.ReadSlice()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			break
		}
		src := strings.TrimSpace(string(line))
		if src == "" {
			continue
		}
		if strings.HasPrefix(src, ":") {
			if r.command(src) {
				break
			}
			continue
		}
		r.n++
		name := fmt.Sprintf("repl-%d", r.n)
		val := env.LoadString(name, src)
		if val.Kind == script.KError {
			renderError(r.out, env, val)
		} else {
			fmt.Fprintln(r.out, val) //nolint:errcheck // best-effort REPL output
		}
	}
}

// repl holds the state of one interactive session.
type repl struct {
	env   *script.Env
	store *debugger.Store
	out   io.Writer
	stdin io.ReadCloser
	n     int // input counter, names library entries
}

// nextName returns a fresh library name so each input's source text
// stays recoverable for capture and diagnostics.
func (r *repl) nextName(kind string) string {
	r.n++
	return fmt.Sprintf("%s-%d", kind, r.n)
}

// command dispatches a colon command, reporting whether the REPL should
// exit.
func (r *repl) command(line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case ":quit", ":q":
		return true
	case ":help", ":h":
		r.showHelp()
	case ":load":
		r.doLoad(rest)
	case ":stash":
		r.doStash(rest)
	case ":stack":
		r.doStack(rest)
	case ":sessions":
		r.showSessions()
	case ":debug":
		r.doDebug(rest)
	default:
		r.errlnf("unknown command %s (try :help)", cmd)
	}
	return false
}

func (r *repl) doLoad(path string) {
	if path == "" {
		r.errlnf("usage: :load <file>")
		return
	}
	val := r.env.LoadFile(path)
	if val.Kind == script.KError {
		renderError(r.out, r.env, val)
		return
	}
	fmt.Fprintln(r.out, val) //nolint:errcheck // best-effort REPL output
}

// doStash captures the first call expression in the input: its resolved
// argument bindings are stored under a fresh session identifier and a
// replacement expression over the callee's body is printed.
func (r *repl) doStash(src string) {
	if src == "" {
		r.errlnf("usage: :stash (f args...)")
		return
	}
	name := r.nextName("stash")
	// Aim at the first call expression so inputs led by a special form,
	// like a conditional guarding the call, still reach the capture.
	cursor, err := debugger.FirstCallOffset(r.env, name, src)
	if err != nil {
		r.errlnf("%v", err)
		return
	}
	captured, err := debugger.CaptureAt(r.env, r.store, name, src, cursor)
	if err != nil {
		r.errlnf("%v", err)
		return
	}
	fmt.Fprintf(r.out, "session %s captured from %s\n", captured.Set.ID, captured.Set.FuncName) //nolint:errcheck
	for _, b := range captured.Set.Bindings {
		fmt.Fprintf(r.out, "  %-20s = %s\n", b.Name, debugger.FormatValue(b.Value)) //nolint:errcheck
	}
	fmt.Fprintln(r.out, captured.Replacement) //nolint:errcheck // best-effort REPL output
}

// doStack evaluates an expression expected to fault and captures
// bindings for every recoverable level of the fault's call chain.
func (r *repl) doStack(src string) {
	if src == "" {
		r.errlnf("usage: :stack <expr>")
		return
	}
	ids, fault, err := debugger.CaptureStack(r.env, r.store, r.nextName("stack"), src)
	if err != nil {
		r.errlnf("%v", err)
		return
	}
	if fault == nil {
		fmt.Fprintln(r.out, "no fault: nothing captured") //nolint:errcheck
		return
	}
	renderError(r.out, r.env, fault)
	for i, id := range ids {
		set, err := r.store.Get(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(r.out, "  #%d  %s  %s\n", i+1, set.FuncName, id) //nolint:errcheck
	}
}

func (r *repl) showSessions() {
	ids := r.store.IDs()
	if len(ids) == 0 {
		fmt.Fprintln(r.out, "(no sessions)") //nolint:errcheck
		return
	}
	for _, id := range ids {
		set, err := r.store.Get(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(r.out, "  %s  %s  %s\n", id, set.FuncName, set.CallText) //nolint:errcheck
	}
}

// doDebug runs program text under the stepping navigator.
func (r *repl) doDebug(src string) {
	if src == "" {
		r.errlnf("usage: :debug <expr>")
		return
	}
	opts := []DebugOption{WithDebugOutput(r.out)}
	if r.stdin != nil {
		opts = append(opts, WithDebugInput(r.stdin))
	}
	val, err := RunNavigator(r.env, r.nextName("debug"), src, opts...)
	if err != nil {
		if ev := script.ErrorVal(err); ev != nil {
			renderError(r.out, r.env, ev)
		} else {
			r.errlnf("%v", err)
		}
		return
	}
	if val != nil {
		fmt.Fprintln(r.out, val) //nolint:errcheck // best-effort REPL output
	}
}

func (r *repl) showHelp() {
	help := `Commands:
  :stash (f args...)   Capture a call's bindings and print a replacement
  :stack <expr>        Capture bindings for every level of a fault
  :sessions            List captured binding sessions
  :debug <expr>        Step through evaluation interactively
  :load <file>         Load and evaluate a source file
  :help                Show this help
  :quit                Exit

Other input is evaluated as an expression.  Captured bindings are
available via (` + debugger.BindingFun + ` "id" 'name).`
	fmt.Fprintln(r.out, help) //nolint:errcheck
}

func (r *repl) errlnf(format string, v ...interface{}) {
	if !strings.HasSuffix(format, "\n") {
		format += "\n"
	}
	fmt.Fprintf(r.out, format, v...) //nolint:errcheck
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".rebug_history")
}

// ensureHistoryFilePermissions restricts the history file to the owner,
// creating it when absent.
func ensureHistoryFilePermissions(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600) //#nosec G304
		if err != nil {
			return
		}
		f.Close() //nolint:errcheck,gosec // best-effort creation
		return
	}
	_ = os.Chmod(path, 0600) //nolint:errcheck // best-effort restriction
}

func errlnf(format string, v ...interface{}) {
	if strings.HasSuffix(format, "\n") {
		errf(format, v...)
		return
	}
	errf(format+"\n", v...)
}

func errf(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...) //nolint:errcheck
}
