package view

import (
	"github.com/a-h/templ"

	"consultant-dashboard/internal/dashboard"
	ucuser "consultant-dashboard/internal/usecase/user"
)

// Form renders the create/edit side panel. Inputs are bound to the form
// signals; the panel only shows while formOpen is set.
func Form(f dashboard.Form, consultants []ucuser.User) templ.Component {
	return component(func(h *html) { renderForm(h, f, consultants) })
}

func renderForm(h *html, f dashboard.Form, consultants []ucuser.User) {
	h.raw(`<aside class="panel"`)
	h.attr("id", FormID)
	h.attr("data-show", "$formOpen")
	h.raw(` style="display:none"><h2>`)
	if f.IsEdit() {
		h.text("Editar usuário")
	} else {
		h.text("Novo usuário")
	}
	h.raw(`</h2>`)

	input(h, "Nome", "name", "text", "")
	input(h, "E-mail", "email", "email", "")
	input(h, "Telefone", "phone", "tel", "phone")
	input(h, "CPF", "cpf", "text", "cpf")
	input(h, "CEP", "cep", "text", "cep")
	input(h, "Endereço", "address", "text", "")
	input(h, "Complemento", "complement", "text", "")
	input(h, "Idade", "age", "number", "")

	h.raw(`<label>Tipo</label><select`)
	h.attr("data-bind", "form.type")
	h.raw(`>`)
	option(h, "CLIENT", "Cliente", f.Type != "CONSULTANT")
	option(h, "CONSULTANT", "Consultor", f.Type == "CONSULTANT")
	h.raw(`</select>`)

	h.raw(`<div`)
	h.attr("data-show", "$form.type == 'CLIENT'")
	h.raw(`><label>Consultor</label><select`)
	h.attr("data-bind", "form.consultantId")
	h.raw(`>`)
	option(h, dashboard.NoConsultant, "Sem consultor", f.ConsultantID == dashboard.NoConsultant)
	for _, c := range consultants {
		if c.ID == f.UserID {
			continue
		}
		option(h, c.ID, c.Name, f.ConsultantID == c.ID)
	}
	h.raw(`</select></div>`)

	h.raw(`<p><button`)
	h.attr("data-on:click", post("/dashboard/form/submit"))
	h.raw(`>Salvar</button> <button`)
	h.attr("data-on:click", "$formOpen = false")
	h.raw(`>Cancelar</button></p></aside>`)
}

// input renders a labelled input bound to form.<signal>. A non-empty mask
// field posts every keystroke for server-side masking.
func input(h *html, label, signal, kind, mask string) {
	h.raw(`<label>`)
	h.text(label)
	h.raw(`</label><input`)
	h.attr("type", kind)
	h.attr("data-bind", "form."+signal)
	if mask != "" {
		h.attr("data-on:input", post("/dashboard/form/format?field="+mask))
	}
	h.raw(`>`)
}
