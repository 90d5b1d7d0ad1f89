package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"consultant-dashboard/internal/adapter/viacep"
	"consultant-dashboard/internal/adapter/web/view"
	"consultant-dashboard/internal/dashboard"
	"consultant-dashboard/internal/domain/address"
	usecase "consultant-dashboard/internal/usecase/user"
	pkgerrors "consultant-dashboard/pkg/errors"
)

const formID = "form-1"

type dashboardFixture struct {
	router  *gin.Engine
	uc      *MockUserUsecase
	lookup  *MockLookup
	tracker *dashboard.LookupTracker
}

func setupDashboard(t *testing.T) *dashboardFixture {
	gin.SetMode(gin.TestMode)
	f := &dashboardFixture{
		uc:      new(MockUserUsecase),
		lookup:  new(MockLookup),
		tracker: dashboard.NewLookupTracker(),
	}
	h := NewDashboardHandler(f.uc, f.lookup, f.tracker, zaptest.NewLogger(t))

	r := gin.New()
	r.GET("/", h.Index)
	r.POST("/dashboard/table", h.Table)
	r.POST("/dashboard/sort", h.Sort)
	r.POST("/dashboard/page", h.GoTo)
	r.POST("/dashboard/page-size", h.PageSize)
	r.POST("/dashboard/select", h.SelectRow)
	r.POST("/dashboard/select-page", h.SelectPage)
	r.POST("/dashboard/filters/clear", h.ClearFilters)
	r.POST("/dashboard/form/new", h.NewForm)
	r.POST("/dashboard/form/format", h.Format)
	r.POST("/dashboard/form/submit", h.Submit)
	r.POST("/dashboard/users/:id/edit", h.EditForm)
	r.POST("/dashboard/users/:id/delete", h.Delete)
	f.router = r
	return f
}

func (f *dashboardFixture) post(t *testing.T, path string, s view.Signals) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(s)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Datastar-Request", "true")
	f.router.ServeHTTP(w, req)
	return w
}

func (f *dashboardFixture) expectRefresh(users []usecase.User) {
	f.uc.On("ListUsers", mock.Anything, usecase.ListUsersRequest{}).Return(users, nil)
	f.uc.On("ListConsultants", mock.Anything).Return([]usecase.User{}, nil)
}

func signals() view.Signals {
	return view.Signals{Listing: dashboard.NewListing(), Form: dashboard.NewForm(formID)}
}

func rows() []usecase.User {
	return []usecase.User{
		{ID: "u1", Name: "Bruno", Email: "bruno@example.com", Type: "CLIENT"},
		{ID: "u2", Name: "Ana", Email: "ana@example.com", Type: "CONSULTANT"},
	}
}

func TestDashboard_Index(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, view.DatastarScript)
	assert.Contains(t, body, `id="users-table"`)
	assert.Contains(t, body, "Bruno")
}

func TestDashboard_IndexStorageError(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("ListUsers", mock.Anything, usecase.ListUsersRequest{}).
		Return(nil, pkgerrors.NewInternalError("failed to fetch users", assert.AnError))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to fetch users", w.Body.String())
}

func TestDashboard_Sort(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())

	w := f.post(t, "/dashboard/sort?field=name", signals())

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "datastar-patch-elements")
	assert.Contains(t, body, "Nome ↑")
	assert.Contains(t, body, `"sortField":"name"`)
	assert.Contains(t, body, `"sortDir":"asc"`)
	assert.NotContains(t, body, `"query"`, "filters typed by the operator are not echoed")
}

func TestDashboard_PageSizeAndGoTo(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())

	w := f.post(t, "/dashboard/page-size?size=20", signals())
	assert.Contains(t, w.Body.String(), `"pageSize":20`)

	w = f.post(t, "/dashboard/page?to=5", signals())
	assert.Contains(t, w.Body.String(), `"page":0`, "page is clamped")

	w = f.post(t, "/dashboard/page?to=x", signals())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard_Selection(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())

	w := f.post(t, "/dashboard/select?id=u1", signals())
	assert.Contains(t, w.Body.String(), `"selected":["u1"]`)

	s := signals()
	s.Listing.Selected = []string{"u1"}
	w = f.post(t, "/dashboard/select-page", s)
	assert.Contains(t, w.Body.String(), `"selected":["u1","u2"]`)
}

func TestDashboard_ClearFilters(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())

	s := signals()
	s.Listing.Query = "zzz"
	s.Listing.Consultant = "u2"
	w := f.post(t, "/dashboard/filters/clear", s)

	body := w.Body.String()
	assert.Contains(t, body, `"query":""`)
	assert.Contains(t, body, `"consultant":"all"`)
	assert.Contains(t, body, "Bruno")
}

func TestDashboard_BadSignals(t *testing.T) {
	f := setupDashboard(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/dashboard/sort?field=name", bytes.NewBufferString("{not json"))
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard_FormatMasksField(t *testing.T) {
	f := setupDashboard(t)

	s := signals()
	s.Form.CPF = "52998224725"
	w := f.post(t, "/dashboard/form/format?field=cpf", s)

	assert.Contains(t, w.Body.String(), `"cpf":"529.982.247-25"`)
	f.lookup.AssertNotCalled(t, "FetchAddress", mock.Anything, mock.Anything)
}

func TestDashboard_FormatUnknownField(t *testing.T) {
	f := setupDashboard(t)
	w := f.post(t, "/dashboard/form/format?field=email", signals())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboard_CEPLookupFillsAddress(t *testing.T) {
	f := setupDashboard(t)
	f.lookup.On("FetchAddress", mock.Anything, "01310-100").
		Return(&address.Address{Street: "Avenida Paulista", Complement: ""}, nil)

	s := signals()
	s.Form.CEP = "01310100"
	s.Form.Complement = "Apto 4"
	w := f.post(t, "/dashboard/form/format?field=cep", s)

	body := w.Body.String()
	assert.Contains(t, body, `"cep":"01310-100"`)
	assert.Contains(t, body, `"address":"Avenida Paulista"`)
	assert.NotContains(t, body, `"complement"`, "blank complement never overwrites")
}

func TestDashboard_CEPLookupStaleResultDropped(t *testing.T) {
	f := setupDashboard(t)
	f.lookup.On("FetchAddress", mock.Anything, "01310-100").
		Run(func(mock.Arguments) { f.tracker.Begin(formID) }).
		Return(&address.Address{Street: "Avenida Paulista"}, nil)

	s := signals()
	s.Form.CEP = "01310100"
	w := f.post(t, "/dashboard/form/format?field=cep", s)

	assert.NotContains(t, w.Body.String(), "Avenida Paulista")
}

func TestDashboard_CEPLookupError(t *testing.T) {
	f := setupDashboard(t)
	f.lookup.On("FetchAddress", mock.Anything, "99999-999").Return(nil, viacep.ErrNotFound)

	s := signals()
	s.Form.CEP = "99999999"
	w := f.post(t, "/dashboard/form/format?field=cep", s)

	body := w.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, "CEP não encontrado")
}

func TestDashboard_IncompleteCEPInvalidatesLookup(t *testing.T) {
	f := setupDashboard(t)
	inflight := f.tracker.Begin(formID)

	s := signals()
	s.Form.CEP = "0131"
	w := f.post(t, "/dashboard/form/format?field=cep", s)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.tracker.IsLatest(formID, inflight))
	f.lookup.AssertNotCalled(t, "FetchAddress", mock.Anything, mock.Anything)
}

func filledSignals() view.Signals {
	s := signals()
	s.FormOpen = true
	s.Form.Name = "Maria"
	s.Form.Email = "maria@example.com"
	s.Form.Phone = "(11) 98765-4321"
	s.Form.CPF = "529.982.247-25"
	s.Form.CEP = "01310-100"
	s.Form.Address = "Av. Paulista"
	return s
}

func TestDashboard_SubmitCreate(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())
	f.uc.On("CreateUser", mock.Anything, mock.MatchedBy(func(req usecase.CreateUserRequest) bool {
		return req.CPF == "52998224725" && req.Phone == "11987654321" && req.CEP == "01310100" && req.ConsultantID == nil
	})).Return(&usecase.User{ID: "u3"}, nil)

	w := f.post(t, "/dashboard/form/submit", filledSignals())

	body := w.Body.String()
	assert.Contains(t, body, `"formOpen":false`)
	assert.Contains(t, body, MsgCreated)
	assert.Contains(t, body, `id="users-table"`)
	f.uc.AssertExpectations(t)
}

func TestDashboard_SubmitUpdate(t *testing.T) {
	f := setupDashboard(t)
	f.expectRefresh(rows())
	f.uc.On("UpdateUser", mock.Anything, mock.MatchedBy(func(req usecase.UpdateUserRequest) bool {
		return req.ID == "u1" && req.ConsultantID != nil && *req.ConsultantID == ""
	})).Return(&usecase.User{ID: "u1"}, nil)

	s := filledSignals()
	s.Form.UserID = "u1"
	w := f.post(t, "/dashboard/form/submit", s)

	assert.Contains(t, w.Body.String(), MsgUpdated)
}

func TestDashboard_SubmitRejected(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, pkgerrors.NewAlreadyExistsError("user", usecase.MsgEmailExists))

	w := f.post(t, "/dashboard/form/submit", filledSignals())

	body := w.Body.String()
	assert.Contains(t, body, usecase.MsgEmailExists)
	assert.NotContains(t, body, `"formOpen":false`, "the form stays open")
	f.uc.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything)
}

func TestDashboard_EditForm(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("GetUser", mock.Anything, "u1").Return(&usecase.User{
		ID: "u1", Name: "Bruno", CPF: "52998224725", Type: "CLIENT",
	}, nil)
	f.uc.On("ListConsultants", mock.Anything).Return([]usecase.User{}, nil)

	prev := f.tracker.Begin(formID)
	w := f.post(t, "/dashboard/users/u1/edit", signals())

	body := w.Body.String()
	assert.Contains(t, body, `"userId":"u1"`)
	assert.Contains(t, body, `"cpf":"529.982.247-25"`)
	assert.Contains(t, body, "Editar usuário")
	assert.Contains(t, body, `"formOpen":true`)
	assert.False(t, f.tracker.IsLatest(formID, prev), "the previous form is forgotten")
}

func TestDashboard_EditMissingUser(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("GetUser", mock.Anything, "gone").
		Return(nil, pkgerrors.NewNotFoundError("user", usecase.MsgUserNotFound))

	w := f.post(t, "/dashboard/users/gone/edit", signals())
	assert.Contains(t, w.Body.String(), usecase.MsgUserNotFound)
}

func TestDashboard_NewForm(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("ListConsultants", mock.Anything).Return([]usecase.User{{ID: "c1", Name: "Ana"}}, nil)

	w := f.post(t, "/dashboard/form/new", signals())

	body := w.Body.String()
	assert.Contains(t, body, "Novo usuário")
	assert.Contains(t, body, `"formOpen":true`)
	assert.NotContains(t, body, `"formId":"`+formID+`"`, "a fresh form id is issued")
}

func TestDashboard_DeleteBlockedByClients(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("DeleteUser", mock.Anything, "u2").
		Return(pkgerrors.NewRuleViolationError("has_clients", usecase.MsgHasClients))

	w := f.post(t, "/dashboard/users/u2/delete", signals())

	body := w.Body.String()
	assert.Contains(t, body, "toast-error")
	assert.Contains(t, body, usecase.MsgHasClients)
}

func TestDashboard_Delete(t *testing.T) {
	f := setupDashboard(t)
	f.uc.On("DeleteUser", mock.Anything, "u1").Return(nil)
	f.expectRefresh(rows()[1:])

	s := signals()
	s.Listing.Selected = []string{"u1", "u2"}
	w := f.post(t, "/dashboard/users/u1/delete", s)

	body := w.Body.String()
	assert.Contains(t, body, MsgDeleted)
	assert.Contains(t, body, `"selected":["u2"]`)
	assert.NotContains(t, body, "Bruno")
}
