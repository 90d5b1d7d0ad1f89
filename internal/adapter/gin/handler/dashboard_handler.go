package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	datastar "github.com/starfederation/datastar-go/datastar"
	"go.uber.org/zap"

	"consultant-dashboard/internal/adapter/web/view"
	"consultant-dashboard/internal/dashboard"
	"consultant-dashboard/internal/usecase/user"
	apperrors "consultant-dashboard/pkg/errors"
	"consultant-dashboard/pkg/logger"
)

// Toast texts shown after a successful write.
const (
	MsgCreated = "Usuário criado com sucesso!"
	MsgUpdated = "Usuário atualizado com sucesso!"
	MsgDeleted = "Usuário excluído com sucesso!"
)

// DashboardTitle is the page heading.
const DashboardTitle = "Consultores e Clientes"

// DashboardHandler serves the HTML dashboard. State lives in client signals;
// every interaction posts them back and receives SSE patches.
type DashboardHandler struct {
	uc      user.Usecase
	lookup  AddressLookup
	tracker *dashboard.LookupTracker
	log     *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler instance
func NewDashboardHandler(uc user.Usecase, lookup AddressLookup, tracker *dashboard.LookupTracker, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		uc:      uc,
		lookup:  lookup,
		tracker: tracker,
		log:     log,
	}
}

func (h *DashboardHandler) logf(ctx context.Context) *zap.Logger {
	return logger.WithContext(ctx, h.log)
}

// Index handles GET /
func (h *DashboardHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()

	users, err := h.uc.ListUsers(ctx, user.ListUsersRequest{})
	if err != nil {
		h.logf(ctx).Error("Dashboard Index failed", zap.Error(err))
		c.String(http.StatusInternalServerError, apperrors.PublicMessage(err))
		return
	}
	consultants, err := h.uc.ListConsultants(ctx)
	if err != nil {
		h.logf(ctx).Error("Dashboard Index failed", zap.Error(err))
		c.String(http.StatusInternalServerError, apperrors.PublicMessage(err))
		return
	}

	listing := dashboard.NewListing()
	page := listing.Apply(users)

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	err = view.Page(view.PageData{
		Title:       DashboardTitle,
		Signals:     view.Signals{Listing: listing, Form: dashboard.NewForm(uuid.NewString())},
		Page:        page,
		Consultants: consultants,
	}).Render(ctx, c.Writer)
	if err != nil {
		h.logf(ctx).Error("Dashboard Index render failed", zap.Error(err))
	}
}

func (h *DashboardHandler) readSignals(c *gin.Context) (view.Signals, bool) {
	var s view.Signals
	if err := datastar.ReadSignals(c.Request, &s); err != nil {
		h.logf(c.Request.Context()).Warn("Invalid dashboard signals", zap.Error(err))
		c.String(http.StatusBadRequest, "invalid signals")
		return s, false
	}
	s.Listing.Normalize()
	return s, true
}

func (h *DashboardHandler) toast(ctx context.Context, sse *datastar.ServerSentEventGenerator, kind, msg string) {
	if err := sse.PatchElementTempl(view.Toast(kind, msg)); err != nil {
		h.logf(ctx).Debug("toast patch failed", zap.Error(err))
	}
}

func (h *DashboardHandler) toastError(ctx context.Context, sse *datastar.ServerSentEventGenerator, err error) {
	h.toast(ctx, sse, view.ToastError, apperrors.PublicMessage(err))
}

// listingPatch holds the listing signals the server owns. Filters are only
// sent back when the server changed them, so typing is never overwritten.
func listingPatch(l dashboard.Listing, withFilters bool) map[string]any {
	p := map[string]any{
		"sortField": l.SortField,
		"sortDir":   l.SortDir,
		"page":      l.Page,
		"pageSize":  l.PageSize,
		"selected":  l.Selected,
	}
	if withFilters {
		p["query"] = l.Query
		p["consultant"] = l.Consultant
	}
	return map[string]any{"listing": p}
}

// updateListing applies mutate to the posted listing and patches the table.
// mutate sees the page as rendered before the change.
func (h *DashboardHandler) updateListing(c *gin.Context, op string, withFilters bool, mutate func(l *dashboard.Listing, current dashboard.Page)) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	h.logf(ctx).Debug("Dashboard " + op + " request")

	sse := datastar.NewSSE(c.Writer, c.Request)

	users, err := h.uc.ListUsers(ctx, user.ListUsersRequest{})
	if err != nil {
		h.logf(ctx).Error("Dashboard "+op+" failed", zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}

	l := s.Listing
	mutate(&l, l.Apply(users))
	page := l.Apply(users)

	if err := sse.PatchElementTempl(view.Table(page, l)); err != nil {
		h.logf(ctx).Debug("table patch failed", zap.Error(err))
		return
	}
	if err := sse.MarshalAndPatchSignals(listingPatch(l, withFilters)); err != nil {
		h.logf(ctx).Debug("signals patch failed", zap.Error(err))
	}
}

// Table handles POST /dashboard/table after a filter input changed.
func (h *DashboardHandler) Table(c *gin.Context) {
	h.updateListing(c, "Table", false, func(l *dashboard.Listing, _ dashboard.Page) {
		l.Page = 0
	})
}

// ClearFilters handles POST /dashboard/filters/clear
func (h *DashboardHandler) ClearFilters(c *gin.Context) {
	h.updateListing(c, "ClearFilters", true, func(l *dashboard.Listing, _ dashboard.Page) {
		l.ClearFilters()
	})
}

// Sort handles POST /dashboard/sort?field=
func (h *DashboardHandler) Sort(c *gin.Context) {
	field := c.Query("field")
	h.updateListing(c, "Sort", false, func(l *dashboard.Listing, _ dashboard.Page) {
		l.ToggleSort(field)
	})
}

// GoTo handles POST /dashboard/page?to=
func (h *DashboardHandler) GoTo(c *gin.Context) {
	to, err := strconv.Atoi(c.Query("to"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid page")
		return
	}
	h.updateListing(c, "GoTo", false, func(l *dashboard.Listing, _ dashboard.Page) {
		l.GoTo(to)
	})
}

// PageSize handles POST /dashboard/page-size?size=
func (h *DashboardHandler) PageSize(c *gin.Context) {
	size, err := strconv.Atoi(c.Query("size"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid page size")
		return
	}
	h.updateListing(c, "PageSize", false, func(l *dashboard.Listing, _ dashboard.Page) {
		l.SetPageSize(size)
	})
}

// SelectRow handles POST /dashboard/select?id=
func (h *DashboardHandler) SelectRow(c *gin.Context) {
	id := c.Query("id")
	h.updateListing(c, "SelectRow", false, func(l *dashboard.Listing, _ dashboard.Page) {
		if id != "" {
			l.ToggleRow(id)
		}
	})
}

// SelectPage handles POST /dashboard/select-page
func (h *DashboardHandler) SelectPage(c *gin.Context) {
	h.updateListing(c, "SelectPage", false, func(l *dashboard.Listing, current dashboard.Page) {
		l.ToggleAll(current.RowIDs())
	})
}

// openForm renders the panel for f and shows it.
func (h *DashboardHandler) openForm(ctx context.Context, sse *datastar.ServerSentEventGenerator, previous string, f dashboard.Form) {
	if previous != "" {
		h.tracker.Forget(previous)
	}

	consultants, err := h.uc.ListConsultants(ctx)
	if err != nil {
		h.logf(ctx).Error("Dashboard open form failed", zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}

	if err := sse.MarshalAndPatchSignals(map[string]any{"form": f}); err != nil {
		h.logf(ctx).Debug("signals patch failed", zap.Error(err))
		return
	}
	if err := sse.PatchElementTempl(view.Form(f, consultants)); err != nil {
		h.logf(ctx).Debug("form patch failed", zap.Error(err))
		return
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"formOpen": true})
}

// NewForm handles POST /dashboard/form/new
func (h *DashboardHandler) NewForm(c *gin.Context) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	h.logf(ctx).Info("Dashboard NewForm request")

	sse := datastar.NewSSE(c.Writer, c.Request)
	h.openForm(ctx, sse, s.Form.FormID, dashboard.NewForm(uuid.NewString()))
}

// EditForm handles POST /dashboard/users/:id/edit
func (h *DashboardHandler) EditForm(c *gin.Context) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	h.logf(ctx).Info("Dashboard EditForm request", zap.String("id", id))

	sse := datastar.NewSSE(c.Writer, c.Request)

	u, err := h.uc.GetUser(ctx, id)
	if err != nil {
		h.logf(ctx).Warn("Dashboard EditForm failed", zap.String("id", id), zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}
	h.openForm(ctx, sse, s.Form.FormID, dashboard.FormFromUser(uuid.NewString(), *u))
}

// Format handles POST /dashboard/form/format?field=cpf|phone|cep. A complete
// CEP triggers a lookup whose result is applied only if no newer keystroke
// arrived for the same form in the meantime.
func (h *DashboardHandler) Format(c *gin.Context) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	f := s.Form
	ctx := context.WithValue(c.Request.Context(), logger.FormIDKey, f.FormID)
	field := c.Query("field")

	f.Mask()
	var value string
	switch field {
	case "cpf":
		value = f.CPF
	case "phone":
		value = f.Phone
	case "cep":
		value = f.CEP
	default:
		c.String(http.StatusBadRequest, "unknown field")
		return
	}

	sse := datastar.NewSSE(c.Writer, c.Request)
	if err := sse.MarshalAndPatchSignals(map[string]any{"form": map[string]any{field: value}}); err != nil {
		h.logf(ctx).Debug("signals patch failed", zap.Error(err))
		return
	}

	if field != "cep" || f.FormID == "" {
		return
	}
	if !f.CEPComplete() {
		h.tracker.Invalidate(f.FormID)
		return
	}

	seq := h.tracker.Begin(f.FormID)
	addr, err := h.lookup.FetchAddress(ctx, f.CEP)
	if !h.tracker.IsLatest(f.FormID, seq) {
		h.logf(ctx).Debug("stale CEP lookup dropped", zap.String("cep", f.CEP), zap.Uint64("seq", seq))
		return
	}
	if err != nil {
		h.logf(ctx).Warn("CEP lookup failed", zap.String("cep", f.CEP), zap.Error(err))
		h.toast(ctx, sse, view.ToastError, lookupMessage(err))
		return
	}

	f.ApplyAddress(addr)
	patch := map[string]any{}
	if addr.Street != "" {
		patch["address"] = f.Address
	}
	if addr.Complement != "" {
		patch["complement"] = f.Complement
	}
	if len(patch) == 0 {
		return
	}
	if err := sse.MarshalAndPatchSignals(map[string]any{"form": patch}); err != nil {
		h.logf(ctx).Debug("signals patch failed", zap.Error(err))
	}
}

// Submit handles POST /dashboard/form/submit
func (h *DashboardHandler) Submit(c *gin.Context) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	f := s.Form
	ctx := context.WithValue(c.Request.Context(), logger.FormIDKey, f.FormID)
	h.logf(ctx).Info("Dashboard Submit request", zap.Bool("edit", f.IsEdit()))

	sse := datastar.NewSSE(c.Writer, c.Request)

	msg, err := h.save(ctx, &f)
	if err != nil {
		h.logf(ctx).Warn("Dashboard Submit failed", zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}

	h.tracker.Forget(f.FormID)
	if err := sse.MarshalAndPatchSignals(map[string]any{"formOpen": false}); err != nil {
		return
	}
	h.toast(ctx, sse, view.ToastSuccess, msg)
	h.refresh(ctx, sse, s.Listing)
}

func (h *DashboardHandler) save(ctx context.Context, f *dashboard.Form) (string, error) {
	if f.IsEdit() {
		req, err := f.UpdateRequest()
		if err != nil {
			return "", err
		}
		if _, err := h.uc.UpdateUser(ctx, req); err != nil {
			return "", err
		}
		return MsgUpdated, nil
	}

	req, err := f.CreateRequest()
	if err != nil {
		return "", err
	}
	if _, err := h.uc.CreateUser(ctx, req); err != nil {
		return "", err
	}
	return MsgCreated, nil
}

// Delete handles POST /dashboard/users/:id/delete
func (h *DashboardHandler) Delete(c *gin.Context) {
	s, ok := h.readSignals(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	h.logf(ctx).Info("Dashboard Delete request", zap.String("id", id))

	sse := datastar.NewSSE(c.Writer, c.Request)

	if err := h.uc.DeleteUser(ctx, id); err != nil {
		h.logf(ctx).Warn("Dashboard Delete failed", zap.String("id", id), zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}

	l := s.Listing
	if l.IsSelected(id) {
		l.ToggleRow(id)
	}
	h.toast(ctx, sse, view.ToastSuccess, MsgDeleted)
	h.refresh(ctx, sse, l)
}

// refresh re-renders the filters and table after a write. The consultant
// filter falls back to all when its consultant no longer exists.
func (h *DashboardHandler) refresh(ctx context.Context, sse *datastar.ServerSentEventGenerator, l dashboard.Listing) {
	users, err := h.uc.ListUsers(ctx, user.ListUsersRequest{})
	if err != nil {
		h.logf(ctx).Error("Dashboard refresh failed", zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}
	consultants, err := h.uc.ListConsultants(ctx)
	if err != nil {
		h.logf(ctx).Error("Dashboard refresh failed", zap.Error(err))
		h.toastError(ctx, sse, err)
		return
	}

	known := l.Consultant == dashboard.AllConsultants
	for _, c := range consultants {
		if c.ID == l.Consultant {
			known = true
			break
		}
	}
	if !known {
		l.SetConsultant(dashboard.AllConsultants)
	}

	page := l.Apply(users)
	if err := sse.PatchElementTempl(view.Filters(l, consultants)); err != nil {
		return
	}
	if err := sse.PatchElementTempl(view.Table(page, l)); err != nil {
		return
	}
	_ = sse.MarshalAndPatchSignals(listingPatch(l, !known))
}
