package view

import "github.com/a-h/templ"

// Toast kinds.
const (
	ToastSuccess = "success"
	ToastError   = "error"
	ToastInfo    = "info"
)

// Toast renders a transient notification into the toast slot.
func Toast(kind, message string) templ.Component {
	return component(func(h *html) {
		h.raw(`<div`)
		h.attr("id", ToastID)
		h.raw(`><div role="status"`)
		h.attr("class", classes("toast", "toast-"+kind))
		h.raw(`>`)
		h.text(message)
		h.raw(`</div></div>`)
	})
}
