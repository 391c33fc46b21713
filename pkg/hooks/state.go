package hooks

import (
	"sync"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// State is a hook cell holding a value of type T.
// Get, Set and Update are safe for concurrent use.
type State[T any] struct {
	mu       sync.Mutex
	value    T
	schedule func()
}

// UseState returns the state cell for the current hook slot, initialized
// to initial on the first render.
func UseState[T any](cx vdom.Context, initial T) *State[T] {
	return cx.UseHook(func() any {
		return &State[T]{value: initial, schedule: cx.ScheduleUpdate()}
	}).(*State[T])
}

// UseStateFunc is like UseState but computes the initial value lazily.
func UseStateFunc[T any](cx vdom.Context, init func() T) *State[T] {
	return cx.UseHook(func() any {
		return &State[T]{value: init(), schedule: cx.ScheduleUpdate()}
	}).(*State[T])
}

// Get returns the current value.
func (s *State[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set stores v and marks the owning scope dirty.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.schedule()
}

// Update applies fn to the current value and marks the owning scope dirty.
func (s *State[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.mu.Unlock()
	s.schedule()
}

// Setter returns a function that calls Set.
func (s *State[T]) Setter() func(T) {
	return s.Set
}

// Reducer is a state cell updated by dispatching actions.
type Reducer[S, A any] struct {
	state   *State[S]
	reducer func(S, A) S
}

// UseReducer returns a reducer cell. The reducer function is refreshed on
// every render so it may close over render-time values.
func UseReducer[S, A any](cx vdom.Context, reducer func(S, A) S, initial S) *Reducer[S, A] {
	r := cx.UseHook(func() any {
		return &Reducer[S, A]{state: &State[S]{value: initial, schedule: cx.ScheduleUpdate()}}
	}).(*Reducer[S, A])
	r.reducer = reducer
	return r
}

// Get returns the current state.
func (r *Reducer[S, A]) Get() S {
	return r.state.Get()
}

// Dispatch reduces action into the state and marks the owning scope dirty.
func (r *Reducer[S, A]) Dispatch(action A) {
	reduce := r.reducer
	r.state.Update(func(s S) S { return reduce(s, action) })
}
