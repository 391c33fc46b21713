package vdom

import "testing"

func TestVKindString(t *testing.T) {
	tests := []struct {
		kind VKind
		want string
	}{
		{KindElement, "Element"},
		{KindText, "Text"},
		{KindFragment, "Fragment"},
		{KindComponent, "Component"},
		{KindPlaceholder, "Placeholder"},
		{VKind(255), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.want {
				t.Errorf("VKind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVNodeIsMountable(t *testing.T) {
	tests := []struct {
		name string
		node *VNode
		want bool
	}{
		{"nil", nil, false},
		{"element", Div(), true},
		{"text", Text("x"), true},
		{"placeholder", Placeholder(), true},
		{"fragment", Fragment(Div()), false},
		{"component", Comp(PureFunc(func(Context) *VNode { return nil }), nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.IsMountable(); got != tt.want {
				t.Errorf("IsMountable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("nil becomes placeholder", func(t *testing.T) {
		node := Normalize(nil)
		if node.Kind != KindPlaceholder {
			t.Errorf("Kind = %v, want KindPlaceholder", node.Kind)
		}
	})

	t.Run("nil children dropped", func(t *testing.T) {
		node := &VNode{Kind: KindElement, Tag: "div", Children: []*VNode{nil, Text("a"), nil}}
		Normalize(node)
		if len(node.Children) != 1 {
			t.Errorf("Children len = %v, want 1", len(node.Children))
		}
	})

	t.Run("empty nested fragment", func(t *testing.T) {
		inner := &VNode{Kind: KindFragment, Children: []*VNode{nil}}
		node := Normalize(Div(inner))
		got := node.Children[0]
		if len(got.Children) != 1 || got.Children[0].Kind != KindPlaceholder {
			t.Errorf("fragment children = %v, want one placeholder", got.Children)
		}
	})
}

func counterA(cx Context) *VNode { return Div() }
func counterB(cx Context) *VNode { return Span() }

type namedComp struct{}

func (namedComp) Render(Context) (*VNode, error) { return nil, nil }
func (namedComp) Name() string                   { return "Named" }

func TestSameComponent(t *testing.T) {
	if !SameComponent(PureFunc(counterA), PureFunc(counterA)) {
		t.Error("same function should match")
	}
	if SameComponent(PureFunc(counterA), PureFunc(counterB)) {
		t.Error("different functions should not match")
	}
	if SameComponent(PureFunc(counterA), namedComp{}) {
		t.Error("different types should not match")
	}
	if !SameComponent(namedComp{}, namedComp{}) {
		t.Error("same struct type should match")
	}
	if ComponentName(namedComp{}) != "Named" {
		t.Errorf("ComponentName = %q, want Named", ComponentName(namedComp{}))
	}
}
