package view

import (
	"github.com/a-h/templ"

	"consultant-dashboard/internal/dashboard"
	ucuser "consultant-dashboard/internal/usecase/user"
)

// Signals is the client-side state seeded into the page.
type Signals struct {
	Listing  dashboard.Listing `json:"listing"`
	Form     dashboard.Form    `json:"form"`
	FormOpen bool              `json:"formOpen"`
}

// PageData is everything the full dashboard page needs.
type PageData struct {
	Title       string
	Signals     Signals
	Page        dashboard.Page
	Consultants []ucuser.User
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{display:flex;justify-content:space-between;align-items:center;padding:1rem 2rem;background:#fff;border-bottom:1px solid #e4e7eb}
main{padding:1.5rem 2rem}
table{width:100%;border-collapse:collapse;background:#fff}
th,td{padding:.5rem .75rem;border-bottom:1px solid #e4e7eb;text-align:left;font-size:.9rem}
th button{background:none;border:0;font:inherit;font-weight:600;cursor:pointer;padding:0}
.filters,.pager{display:flex;gap:.75rem;align-items:center;margin:1rem 0}
.muted{color:#7b8794}
.panel{position:fixed;top:0;right:0;bottom:0;width:28rem;overflow:auto;background:#fff;box-shadow:-2px 0 12px rgba(0,0,0,.15);padding:1.5rem}
.panel label{display:block;margin:.6rem 0 .2rem;font-size:.85rem}
.panel input,.panel select{width:100%;padding:.4rem;box-sizing:border-box}
.toast{position:fixed;bottom:1.5rem;right:1.5rem;padding:.75rem 1rem;border-radius:.4rem;color:#fff;animation:fade 4s forwards}
.toast-success{background:#2f855a}.toast-error{background:#c53030}.toast-info{background:#2b6cb0}
@keyframes fade{0%,80%{opacity:1}100%{opacity:0;visibility:hidden}}
`

// Page renders the whole dashboard document.
func Page(d PageData) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="pt-BR"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(d.Title)
		h.raw(`</title><style>`, styles, `</style>`)
		h.raw(`<script type="module"`)
		h.attr("src", DatastarScript)
		h.raw(`></script></head>`)

		h.raw(`<body`)
		h.attr("data-signals", jsonAttr(d.Signals))
		h.raw(`><header><h1>`)
		h.text(d.Title)
		h.raw(`</h1><button`)
		h.attr("data-on:click", post("/dashboard/form/new"))
		h.raw(`>Novo usuário</button></header><main>`)

		renderFilters(h, d.Signals.Listing, d.Consultants)
		renderTable(h, d.Page, d.Signals.Listing)

		h.raw(`</main>`)
		renderForm(h, d.Signals.Form, d.Consultants)
		h.raw(`<div`)
		h.attr("id", ToastID)
		h.raw(`></div></body></html>`)
	})
}
