// Package luavm provides the sandboxed Lua runtime for script plugins.
package luavm

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	lua "github.com/yuin/gopher-lua"
)

// DefaultCallTimeout bounds a single hook call into Lua. Long-running Lua
// code is interrupted via the state's context.
const DefaultCallTimeout = 5 * time.Second

// ErrStateClosed is returned when using a closed state.
var ErrStateClosed = errors.New("lua state is closed")

// State wraps a gopher-lua LState for plugin execution.
//
// gopher-lua's LState is not goroutine-safe; the mutex serializes all access
// from Go. The sandbox opens only side-effect-free standard libraries: io,
// os, debug and package stay closed so scripts cannot reach outside the
// process.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool
}

// NewState creates a sandboxed Lua state.
func NewState() *State {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	// Base library (print, type, pairs, ipairs, ...), plus the safe subset.
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// Close the escape hatches base leaves open.
	for _, fn := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(fn, lua.LNil)
	}

	return &State{L: L}
}

// LoadFile compiles and runs a Lua script file in the state.
func (s *State) LoadFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if err := s.L.DoFile(path); err != nil {
		return errors.Wrap(err, "executing lua script")
	}

	return nil
}

// GlobalFuncs returns all global functions whose name passes the filter.
func (s *State) GlobalFuncs(filter func(name string) bool) map[string]*lua.LFunction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*lua.LFunction)

	if s.closed {
		return out
	}

	s.L.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}

		fn, ok := v.(*lua.LFunction)
		if !ok || !filter(string(name)) {
			return
		}

		out[string(name)] = fn
	})

	return out
}

// GlobalTable returns a named global table converted to a Go map, or nil.
func (s *State) GlobalTable(name string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	tbl, ok := s.L.GetGlobal(name).(*lua.LTable)
	if !ok {
		return nil
	}

	m, _ := ToGo(tbl).(map[string]any)

	return m
}

// CallFunc invokes a Lua function with the given Go arguments, converting
// values across the boundary. A Lua error or timeout is returned as a Go
// error; a Lua nil result converts to Go nil.
func (s *State) CallFunc(ctx context.Context, fn *lua.LFunction, args ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	callCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc

		callCtx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)

		defer cancel()
	}

	s.L.SetContext(callCtx)
	defer s.L.RemoveContext()

	s.L.Push(fn)

	for _, arg := range args {
		s.L.Push(ToLua(s.L, arg))
	}

	if err := s.L.PCall(len(args), 1, nil); err != nil {
		return nil, errors.Wrap(err, "lua hook call failed")
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)

	if ret == lua.LNil {
		return nil, nil
	}

	return ToGo(ret), nil
}

// Close tears down the Lua state.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	s.L.Close()

	return nil
}
