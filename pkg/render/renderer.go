package render

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// RendererConfig configures HTML output.
type RendererConfig struct {
	// Pretty enables indented output. Only use it for debugging.
	Pretty bool

	// Indent is the string used per indentation level in pretty mode.
	// Defaults to two spaces.
	Indent string

	// MountIDs adds a data-mid attribute carrying each element's mount id.
	MountIDs bool

	// Listeners adds a data-on-<event> attribute per registered listener.
	Listeners bool
}

// Renderer writes document nodes as HTML.
type Renderer struct {
	config RendererConfig
}

// NewRenderer creates a Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// HTML renders the container's children with the default configuration.
func (d *Document) HTML() string {
	return NewRenderer(RendererConfig{}).RenderToString(d.root)
}

// RenderToString renders n and its subtree. The container renders as its
// children only.
func (r *Renderer) RenderToString(n *Node) string {
	var buf bytes.Buffer
	_ = r.RenderToWriter(&buf, n)
	return buf.String()
}

// RenderToWriter streams n and its subtree to w.
func (r *Renderer) RenderToWriter(w io.Writer, n *Node) error {
	sw := &stickyWriter{w: w}
	r.renderNode(sw, n, 0)
	return sw.err
}

// stickyWriter keeps the first write error and drops later writes.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) WriteString(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (r *Renderer) renderNode(w *stickyWriter, n *Node, depth int) {
	switch n.Kind {
	case NodeContainer:
		for _, c := range n.Children {
			r.renderNode(w, c, depth)
		}
	case NodeText:
		w.WriteString(escapeHTML(n.Text))
	case NodePlaceholder:
		w.WriteString("<!--placeholder-->")
	case NodeElement:
		r.renderElement(w, n, depth)
	}
}

func (r *Renderer) renderElement(w *stickyWriter, n *Node, depth int) {
	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}
	w.WriteString("<")
	w.WriteString(n.Tag)
	r.renderAttributes(w, n)
	w.WriteString(">")

	if vdom.IsVoidElement(n.Tag) {
		if r.config.Pretty {
			w.WriteString("\n")
		}
		return
	}

	block := r.config.Pretty && len(n.Children) > 0 && !inlineElements[n.Tag]
	if block {
		w.WriteString("\n")
	}
	for _, c := range n.Children {
		r.renderNode(w, c, depth+1)
	}
	if block {
		r.writeIndent(w, depth)
	}

	w.WriteString("</")
	w.WriteString(n.Tag)
	w.WriteString(">")
	if r.config.Pretty {
		w.WriteString("\n")
	}
}

func (r *Renderer) renderAttributes(w *stickyWriter, n *Node) {
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value := n.Attrs[k]
		if booleanAttrs[k] {
			if value == "true" || value == "" || value == k {
				w.WriteString(" " + k)
			}
			continue
		}
		w.WriteString(" " + k + `="` + escapeAttr(value) + `"`)
	}

	if r.config.MountIDs {
		w.WriteString(` data-mid="` + vdom.AttrString(int64(n.ID)) + `"`)
	}
	if r.config.Listeners {
		events := make([]string, 0, len(n.Listeners))
		for e := range n.Listeners {
			events = append(events, e)
		}
		sort.Strings(events)
		for _, e := range events {
			w.WriteString(` data-on-` + e + `="true"`)
		}
	}
}

func (r *Renderer) writeIndent(w *stickyWriter, depth int) {
	w.WriteString(strings.Repeat(r.config.Indent, depth))
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// inlineElements stay on one line in pretty output.
var inlineElements = map[string]bool{
	"a":      true,
	"b":      true,
	"br":     true,
	"code":   true,
	"em":     true,
	"i":      true,
	"label":  true,
	"small":  true,
	"span":   true,
	"strong": true,
}

// booleanAttrs render as a bare name when set.
var booleanAttrs = map[string]bool{
	"checked":  true,
	"disabled": true,
	"hidden":   true,
	"multiple": true,
	"readonly": true,
	"required": true,
	"selected": true,
}
