package scope

import (
	"errors"
	"testing"

	"github.com/vango-dev/vtree/pkg/vdom"
)

type recordingScheduler struct {
	scheduled []Ref
	canceled  []vdom.ScopeID
}

func (r *recordingScheduler) Schedule(ref Ref)        { r.scheduled = append(r.scheduled, ref) }
func (r *recordingScheduler) Cancel(id vdom.ScopeID) { r.canceled = append(r.canceled, id) }

type disposeLog struct {
	name string
	log  *[]string
}

func (d *disposeLog) Dispose() { *d.log = append(*d.log, d.name) }

func TestUseHookOrder(t *testing.T) {
	a := NewArena(nil)
	inits := 0
	var first, second any
	comp := vdom.PureFunc(func(cx vdom.Context) *vdom.VNode {
		first = cx.UseHook(func() any { inits++; return new(int) })
		second = cx.UseHook(func() any { inits++; return new(string) })
		return vdom.Div()
	})
	s := a.CreateRoot(comp, nil)

	if _, err := a.Run(s.ID()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	p1, p2 := first, second
	if _, err := a.Run(s.ID()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if inits != 2 {
		t.Errorf("init calls = %d, want 2", inits)
	}
	if first != p1 || second != p2 {
		t.Error("hook cells changed identity between renders")
	}
	if s.HookCount() != 2 {
		t.Errorf("HookCount() = %d, want 2", s.HookCount())
	}
	if s.Renders() != 2 {
		t.Errorf("Renders() = %d, want 2", s.Renders())
	}
}

func TestRunNormalizes(t *testing.T) {
	a := NewArena(nil)
	s := a.CreateRoot(vdom.PureFunc(func(vdom.Context) *vdom.VNode { return nil }), nil)
	node, err := a.Run(s.ID())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if node.Kind != vdom.KindPlaceholder {
		t.Errorf("Kind = %v, want KindPlaceholder", node.Kind)
	}
}

func TestRunErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("returned error", func(t *testing.T) {
		a := NewArena(nil)
		s := a.CreateRoot(vdom.Func(func(vdom.Context) (*vdom.VNode, error) { return nil, boom }), nil)
		_, err := a.Run(s.ID())
		var re *RenderError
		if !errors.As(err, &re) {
			t.Fatalf("error = %v, want *RenderError", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("error does not wrap boom: %v", err)
		}
		if re.Scope != s.ID() {
			t.Errorf("Scope = %d, want %d", re.Scope, s.ID())
		}
	})

	t.Run("panic", func(t *testing.T) {
		a := NewArena(nil)
		s := a.CreateRoot(vdom.PureFunc(func(vdom.Context) *vdom.VNode { panic("bad") }), nil)
		_, err := a.Run(s.ID())
		if !errors.Is(err, ErrRenderPanic) {
			t.Fatalf("error = %v, want ErrRenderPanic", err)
		}
		var re *RenderError
		if errors.As(err, &re) && len(re.Stack) == 0 {
			t.Error("stack not captured")
		}
	})

	t.Run("removed scope", func(t *testing.T) {
		a := NewArena(nil)
		if _, err := a.Run(9); !errors.Is(err, ErrScopeRemoved) {
			t.Errorf("error = %v, want ErrScopeRemoved", err)
		}
	})
}

func TestScheduleUpdate(t *testing.T) {
	sched := &recordingScheduler{}
	a := NewArena(sched)
	root := a.CreateRoot(vdom.PureFunc(func(vdom.Context) *vdom.VNode { return nil }), nil)
	child := a.Create(root.ID(), vdom.PureFunc(func(vdom.Context) *vdom.VNode { return nil }), nil)

	update := child.ScheduleUpdate()
	update()

	if len(sched.scheduled) != 1 {
		t.Fatalf("scheduled = %v, want one entry", sched.scheduled)
	}
	got := sched.scheduled[0]
	if got.ID != child.ID() || got.Height != 1 || !a.Valid(got) {
		t.Errorf("ref = %+v, want valid ref to scope %d at height 1", got, child.ID())
	}
}
