package view

import (
	"github.com/a-h/templ"

	"consultant-dashboard/internal/dashboard"
	ucuser "consultant-dashboard/internal/usecase/user"
	"consultant-dashboard/pkg/format"
)

type column struct {
	field string
	label string
}

var columns = []column{
	{"name", "Nome"},
	{"email", "E-mail"},
	{"phone", "Telefone"},
	{"cpf", "CPF"},
	{"age", "Idade"},
	{"address", "Endereço"},
	{"consultant", "Consultor"},
	{"createdAt", "Criado em"},
}

// Filters renders the text and consultant filters.
func Filters(l dashboard.Listing, consultants []ucuser.User) templ.Component {
	return component(func(h *html) { renderFilters(h, l, consultants) })
}

func renderFilters(h *html, l dashboard.Listing, consultants []ucuser.User) {
	h.raw(`<div class="filters"`)
	h.attr("id", FiltersID)
	h.raw(`><input type="search" placeholder="Buscar por nome, e-mail, CPF ou telefone"`)
	h.attr("data-bind", "listing.query")
	h.attr("data-on:input__debounce.250ms", post("/dashboard/table"))
	h.raw(`><select`)
	h.attr("data-bind", "listing.consultant")
	h.attr("data-on:change", post("/dashboard/table"))
	h.raw(`>`)
	option(h, dashboard.AllConsultants, "Todos os consultores", l.Consultant == dashboard.AllConsultants)
	for _, c := range consultants {
		option(h, c.ID, c.Name, l.Consultant == c.ID)
	}
	h.raw(`</select><button`)
	h.attr("data-show", "$listing.query != '' || $listing.consultant != 'all'")
	h.attr("data-on:click", post("/dashboard/filters/clear"))
	h.raw(`>Limpar filtros</button></div>`)
}

func option(h *html, value, label string, selected bool) {
	h.raw(`<option`)
	h.attr("value", value)
	h.flag("selected", selected)
	h.raw(`>`)
	h.text(label)
	h.raw(`</option>`)
}

// Table renders the users table with its pager.
func Table(p dashboard.Page, l dashboard.Listing) templ.Component {
	return component(func(h *html) { renderTable(h, p, l) })
}

func renderTable(h *html, p dashboard.Page, l dashboard.Listing) {
	h.raw(`<section`)
	h.attr("id", TableID)
	h.raw(`><table><thead><tr><th><input type="checkbox" aria-label="Selecionar página"`)
	h.flag("checked", p.AllSelected(l))
	h.attr("data-on:change", post("/dashboard/select-page"))
	h.raw(`></th>`)
	for _, col := range columns {
		h.raw(`<th><button`)
		h.attr("data-on:click", post("/dashboard/sort?field="+col.field))
		h.raw(`>`)
		h.text(col.label)
		h.text(sortMark(l, col.field))
		h.raw(`</button></th>`)
	}
	h.raw(`<th>Tipo</th><th></th></tr></thead><tbody>`)

	if len(p.Rows) == 0 {
		h.raw(`<tr><td colspan="11" class="muted">Nenhum usuário encontrado.</td></tr>`)
	}
	for _, u := range p.Rows {
		renderRow(h, u, l.IsSelected(u.ID))
	}
	h.raw(`</tbody></table>`)

	renderPager(h, p, l)
	h.raw(`</section>`)
}

func sortMark(l dashboard.Listing, field string) string {
	if l.SortField != field {
		return ""
	}
	if l.SortDir == dashboard.SortDesc {
		return " ↓"
	}
	return " ↑"
}

func renderRow(h *html, u ucuser.User, selected bool) {
	h.raw(`<tr`)
	h.attr("id", "user-"+u.ID)
	h.raw(`><td><input type="checkbox"`)
	h.flag("checked", selected)
	h.attr("data-on:change", post("/dashboard/select?id="+u.ID))
	h.raw(`></td>`)

	cell(h, u.Name)
	cell(h, u.Email)
	cell(h, format.Phone(u.Phone))
	cell(h, format.CPF(u.CPF))
	if u.Age != nil {
		cell(h, itoa(*u.Age))
	} else {
		cell(h, "-")
	}
	addr := u.Address
	if u.Complement != nil && *u.Complement != "" {
		addr += ", " + *u.Complement
	}
	cell(h, addr+" ("+format.CEP(u.CEP)+")")
	if u.Consultant != nil {
		cell(h, u.Consultant.Name)
	} else {
		cell(h, "-")
	}
	cell(h, u.CreatedAt.Format("02/01/2006"))
	cell(h, typeLabel(u.Type))

	h.raw(`<td><button`)
	h.attr("data-on:click", post("/dashboard/users/"+u.ID+"/edit"))
	h.raw(`>Editar</button> <button`)
	h.attr("data-name", u.Name)
	h.attr("data-on:click", "confirm('Excluir ' + el.dataset.name + '?') && "+post("/dashboard/users/"+u.ID+"/delete"))
	h.raw(`>Excluir</button></td></tr>`)
}

func cell(h *html, s string) {
	h.raw(`<td>`)
	h.text(s)
	h.raw(`</td>`)
}

func typeLabel(t string) string {
	if t == "CONSULTANT" {
		return "Consultor"
	}
	return "Cliente"
}

func renderPager(h *html, p dashboard.Page, l dashboard.Listing) {
	h.raw(`<div class="pager"><span class="muted">`)
	h.text(itoa(p.SelectedCount) + " de " + itoa(p.Filtered) + " selecionado(s)")
	h.raw(`</span><label>Linhas por página <select`)
	h.attr("data-on:change", "@post('/dashboard/page-size?size=' + evt.target.value)")
	h.raw(`>`)
	for _, size := range dashboard.PageSizes {
		option(h, itoa(size), itoa(size), size == l.PageSize)
	}
	h.raw(`</select></label><span>Página `)
	h.text(itoa(p.Index+1) + " de " + itoa(p.Count))
	h.raw(`</span>`)

	pageButton(h, "«", 0, !p.HasPrev)
	pageButton(h, "‹", p.Index-1, !p.HasPrev)
	pageButton(h, "›", p.Index+1, !p.HasNext)
	pageButton(h, "»", p.Count-1, !p.HasNext)
	h.raw(`</div>`)
}

func pageButton(h *html, label string, to int, disabled bool) {
	h.raw(`<button`)
	h.flag("disabled", disabled)
	h.attr("data-on:click", post("/dashboard/page?to="+itoa(to)))
	h.raw(`>`)
	h.text(label)
	h.raw(`</button>`)
}
