package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vango-dev/vtree/pkg/hooks"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// demoApp is a component the serve command can host.
type demoApp struct {
	Name        string
	Description string
	Root        vdom.Component
}

var demoApps = map[string]demoApp{
	"counter": {
		Name:        "counter",
		Description: "A single counter with increment and decrement buttons",
		Root:        vdom.PureFunc(counterApp),
	},
	"todo": {
		Name:        "todo",
		Description: "A keyed todo list with add, toggle, remove and reorder",
		Root:        vdom.PureFunc(todoApp),
	},
	"clock": {
		Name:        "clock",
		Description: "A clock updated from a background goroutine",
		Root:        vdom.PureFunc(clockApp),
	},
}

func lookupApp(name string) (demoApp, bool) {
	app, ok := demoApps[name]
	return app, ok
}

func appNames() []string {
	names := make([]string, 0, len(demoApps))
	for name := range demoApps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func counterApp(cx vdom.Context) *vdom.VNode {
	count := hooks.UseState(cx, 0)
	step := func(d int) func(vdom.Event) {
		return func(vdom.Event) {
			count.Update(func(n int) int { return n + d })
		}
	}
	return vdom.Div(vdom.Class("counter"),
		vdom.Button(vdom.OnClick(step(-1)), "-"),
		vdom.Span(vdom.Textf("%d", count.Get())),
		vdom.Button(vdom.OnClick(step(1)), "+"),
	)
}

type todo struct {
	ID   int
	Text string
	Done bool
}

type todoAction struct {
	Kind string // add, toggle, remove, reverse, clear
	ID   int
	Text string
}

type todoState struct {
	Next  int
	Items []todo
}

func reduceTodos(s todoState, a todoAction) todoState {
	switch a.Kind {
	case "add":
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return s
		}
		s.Next++
		s.Items = append(append([]todo(nil), s.Items...), todo{ID: s.Next, Text: text})
	case "toggle":
		items := append([]todo(nil), s.Items...)
		for i := range items {
			if items[i].ID == a.ID {
				items[i].Done = !items[i].Done
			}
		}
		s.Items = items
	case "remove":
		items := make([]todo, 0, len(s.Items))
		for _, it := range s.Items {
			if it.ID != a.ID {
				items = append(items, it)
			}
		}
		s.Items = items
	case "reverse":
		items := make([]todo, len(s.Items))
		for i, it := range s.Items {
			items[len(s.Items)-1-i] = it
		}
		s.Items = items
	case "clear":
		items := make([]todo, 0, len(s.Items))
		for _, it := range s.Items {
			if !it.Done {
				items = append(items, it)
			}
		}
		s.Items = items
	}
	return s
}

func todoApp(cx vdom.Context) *vdom.VNode {
	list := hooks.UseReducer(cx, reduceTodos, todoState{})
	draft := hooks.UseState(cx, "")
	state := list.Get()

	remaining := 0
	for _, it := range state.Items {
		if !it.Done {
			remaining++
		}
	}

	return vdom.Div(vdom.Class("todo"),
		vdom.Form(
			vdom.OnSubmit(func(vdom.Event) {
				list.Dispatch(todoAction{Kind: "add", Text: draft.Get()})
				draft.Set("")
			}),
			vdom.Input(
				vdom.Type("text"),
				vdom.Value(draft.Get()),
				vdom.PlaceholderText("What needs doing?"),
				vdom.OnInput(func(e vdom.Event) { draft.Set(e.Value) }),
			),
		),
		vdom.Ul(vdom.Range(state.Items, func(it todo, _ int) *vdom.VNode {
			return vdom.Comp(vdom.PureFunc(todoItem), todoItemProps{Item: it, Dispatch: list.Dispatch}, vdom.Key(it.ID))
		})),
		vdom.P(vdom.Class("status"),
			vdom.Textf("%d of %d left", remaining, len(state.Items)),
			vdom.Button(vdom.OnClick(func(vdom.Event) { list.Dispatch(todoAction{Kind: "reverse"}) }), "Reverse"),
			vdom.If(remaining < len(state.Items),
				vdom.Button(vdom.OnClick(func(vdom.Event) { list.Dispatch(todoAction{Kind: "clear"}) }), "Clear done")),
		),
	)
}

type todoItemProps struct {
	Item     todo
	Dispatch func(todoAction)
}

func todoItem(cx vdom.Context) *vdom.VNode {
	p := cx.Props().(todoItemProps)
	class := "item"
	if p.Item.Done {
		class = "item done"
	}
	return vdom.Li(vdom.Class(class),
		vdom.Span(vdom.OnClick(func(vdom.Event) { p.Dispatch(todoAction{Kind: "toggle", ID: p.Item.ID}) }), p.Item.Text),
		vdom.Button(vdom.OnClick(func(vdom.Event) { p.Dispatch(todoAction{Kind: "remove", ID: p.Item.ID}) }), "x"),
	)
}

// clockInterval is how often the clock demo ticks.
var clockInterval = time.Second

func clockApp(cx vdom.Context) *vdom.VNode {
	now := hooks.UseStateFunc(cx, time.Now)
	stop := hooks.UseRef[chan struct{}](cx, nil)
	if stop.Current == nil {
		stop.Current = make(chan struct{})
		go tick(now, stop.Current)
	}
	hooks.UseCleanup(cx, func() { close(stop.Current) })

	return vdom.Div(vdom.Class("clock"),
		vdom.Span(now.Get().Format(time.TimeOnly)),
	)
}

func tick(now *hooks.State[time.Time], stop <-chan struct{}) {
	t := time.NewTicker(clockInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case v := <-t.C:
			now.Set(v)
		}
	}
}

func describeApps() string {
	var b strings.Builder
	for _, name := range appNames() {
		fmt.Fprintf(&b, "  %-8s %s\n", name, demoApps[name].Description)
	}
	return b.String()
}
