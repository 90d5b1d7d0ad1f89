// Package view renders the dashboard HTML as templ components. Interactive
// parts are driven by datastar attributes and patched over SSE.
package view

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// Element IDs targeted by SSE patches.
const (
	TableID   = "users-table"
	FiltersID = "filters"
	FormID    = "user-form"
	ToastID   = "toast"
)

// DatastarScript is the client bundle loaded by the layout.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// html accumulates markup and keeps the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with the value escaped.
func (h *html) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *html) flag(name string, on bool) {
	if on {
		h.raw(" ", name)
	}
}

func component(render func(h *html)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &html{w: w}
		render(h)
		return h.err
	})
}

// post builds a datastar POST action expression.
func post(path string) string {
	return "@post('" + path + "')"
}

func jsonAttr(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func classes(names ...string) string {
	out := names[:0:0]
	for _, n := range names {
		if n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}
