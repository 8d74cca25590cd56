// Copyright © 2024 The rebug authors

package debugger

import (
	"sync"

	"github.com/google/uuid"
	"github.com/luthersystems/rebug/script"
)

// Binding is one captured argument: the parameter name and the value it
// was bound to at dispatch time.
type Binding struct {
	Name  string
	Value *script.Value
}

// BindingSet holds the resolved argument bindings captured from one
// intercepted call, in parameter declaration order.
type BindingSet struct {
	ID       string
	FuncName string
	CallText string
	Bindings []Binding
}

// Lookup returns the captured value bound to a parameter name.
func (s *BindingSet) Lookup(name string) (*script.Value, bool) {
	for _, b := range s.Bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// Names returns the parameter names in declaration order.
func (s *BindingSet) Names() []string {
	names := make([]string, len(s.Bindings))
	for i, b := range s.Bindings {
		names[i] = b.Name
	}
	return names
}

// Store keeps captured binding sets keyed by session identifier.  It is
// safe for concurrent use so a REPL can read while an evaluation
// goroutine stores.
type Store struct {
	mu    sync.Mutex
	sets  map[string]*BindingSet
	order []string
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{sets: make(map[string]*BindingSet)}
}

// Put stores a binding set, allocating a fresh session identifier when
// the set has none, and returns the identifier.
func (s *Store) Put(set *BindingSet) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if _, ok := s.sets[set.ID]; !ok {
		s.order = append(s.order, set.ID)
	}
	s.sets[set.ID] = set
	return set.ID
}

// Get returns the binding set stored under id, or ErrNotFound.
func (s *Store) Get(id string) (*BindingSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return set, nil
}

// IDs returns all stored session identifiers in insertion order.
func (s *Store) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// BindingFun is the name of the builtin a replacement expression uses to
// destructure a stored binding set.
const BindingFun = "rebug-binding"

// Install registers the rebug-binding builtin in env's scope so
// replacement expressions emitted against this store can be evaluated
// there.
func (s *Store) Install(env *script.Env) {
	env.Put(BindingFun, script.NewBuiltin(BindingFun, func(env *script.Env, args []*script.Value) *script.Value {
		if len(args) != 2 || args[0].Kind != script.KString || args[1].Kind != script.KSymbol {
			return env.ConditionErrorf("type-error", "%s expects a session id string and a symbol", BindingFun)
		}
		set, err := s.Get(args[0].Str)
		if err != nil {
			return env.ConditionErrorf("missing-session", "no session %s", args[0].Str)
		}
		v, ok := set.Lookup(args[1].Str)
		if !ok {
			return env.ConditionErrorf("missing-binding", "session %s has no binding %s", args[0].Str, args[1].Str)
		}
		return v
	}))
}
