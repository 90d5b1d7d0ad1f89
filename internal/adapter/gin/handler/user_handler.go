package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"consultant-dashboard/internal/adapter/viacep"
	"consultant-dashboard/internal/usecase/user"
	"consultant-dashboard/pkg/logger"
)

// UserHandler handles the JSON API for users and CEP lookups
type UserHandler struct {
	uc     user.Usecase
	lookup AddressLookup
	log    *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, lookup AddressLookup, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:     uc,
		lookup: lookup,
		log:    log,
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Age          *int    `json:"age"`
	CPF          string  `json:"cpf"`
	CEP          string  `json:"cep"`
	Address      string  `json:"address"`
	Complement   *string `json:"complement"`
	Type         string  `json:"type"`
	ConsultantID *string `json:"consultantId"`
}

// UpdateUserRequest represents the HTTP request body for updating a user.
// Omitted fields are left unchanged; "" for consultantId or complement clears it.
type UpdateUserRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Age          *int    `json:"age"`
	CPF          *string `json:"cpf"`
	CEP          *string `json:"cep"`
	Address      *string `json:"address"`
	Complement   *string `json:"complement"`
	Type         *string `json:"type"`
	ConsultantID *string `json:"consultantId"`
}

func (h *UserHandler) logf(c *gin.Context) *zap.Logger {
	return logger.WithContext(c.Request.Context(), h.log)
}

// ListUsers handles GET /v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	req := user.ListUsersRequest{
		Type:  c.Query("type"),
		Query: c.Query("query"),
	}
	h.logf(c).Info("Gin ListUsers request", zap.String("type", req.Type), zap.String("query", req.Query))

	users, err := h.uc.ListUsers(c.Request.Context(), req)
	if err != nil {
		handleError(c, h.log, "ListUsers", err)
		return
	}
	ok(c, http.StatusOK, toUserResponses(users))
}

// GetUser handles GET /v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id := c.Param("id")
	h.logf(c).Info("Gin GetUser request", zap.String("id", id))

	u, err := h.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		handleError(c, h.log, "GetUser", err)
		return
	}
	ok(c, http.StatusOK, toUserResponse(*u))
}

// CreateUser handles POST /v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logf(c).Warn("Invalid create user request", zap.Error(err))
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logf(c).Info("Gin CreateUser request", zap.String("email", req.Email), zap.String("type", req.Type))

	u, err := h.uc.CreateUser(c.Request.Context(), user.CreateUserRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Age:          req.Age,
		CPF:          req.CPF,
		CEP:          req.CEP,
		Address:      req.Address,
		Complement:   req.Complement,
		Type:         req.Type,
		ConsultantID: req.ConsultantID,
	})
	if err != nil {
		handleError(c, h.log, "CreateUser", err)
		return
	}
	ok(c, http.StatusCreated, toUserResponse(*u))
}

// UpdateUser handles PATCH /v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id := c.Param("id")

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logf(c).Warn("Invalid update user request", zap.String("id", id), zap.Error(err))
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logf(c).Info("Gin UpdateUser request", zap.String("id", id))

	u, err := h.uc.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:           id,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Age:          req.Age,
		CPF:          req.CPF,
		CEP:          req.CEP,
		Address:      req.Address,
		Complement:   req.Complement,
		Type:         req.Type,
		ConsultantID: req.ConsultantID,
	})
	if err != nil {
		handleError(c, h.log, "UpdateUser", err)
		return
	}
	ok(c, http.StatusOK, toUserResponse(*u))
}

// DeleteUser handles DELETE /v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	h.logf(c).Info("Gin DeleteUser request", zap.String("id", id))

	if err := h.uc.DeleteUser(c.Request.Context(), id); err != nil {
		handleError(c, h.log, "DeleteUser", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id})
}

// ListConsultants handles GET /v1/consultants
func (h *UserHandler) ListConsultants(c *gin.Context) {
	h.logf(c).Info("Gin ListConsultants request")

	users, err := h.uc.ListConsultants(c.Request.Context())
	if err != nil {
		handleError(c, h.log, "ListConsultants", err)
		return
	}
	ok(c, http.StatusOK, toUserResponses(users))
}

// ListClients handles GET /v1/consultants/:id/clients
func (h *UserHandler) ListClients(c *gin.Context) {
	id := c.Param("id")
	h.logf(c).Info("Gin ListClients request", zap.String("consultant_id", id))

	users, err := h.uc.ListClientsByConsultant(c.Request.Context(), id)
	if err != nil {
		handleError(c, h.log, "ListClients", err)
		return
	}
	ok(c, http.StatusOK, toUserResponses(users))
}

// FetchAddress handles GET /v1/cep/:cep
func (h *UserHandler) FetchAddress(c *gin.Context) {
	cep := c.Param("cep")
	h.logf(c).Info("Gin FetchAddress request", zap.String("cep", cep))

	addr, err := h.lookup.FetchAddress(c.Request.Context(), cep)
	if err != nil {
		h.logf(c).Warn("Gin FetchAddress failed", zap.String("cep", cep), zap.Error(err))
		fail(c, lookupStatus(err), lookupMessage(err))
		return
	}

	ok(c, http.StatusOK, AddressResponse{
		CEP:          addr.CEP,
		Street:       addr.Street,
		Complement:   addr.Complement,
		Neighborhood: addr.Neighborhood,
		City:         addr.City,
		State:        addr.State,
	})
}

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, viacep.ErrInvalidCEP):
		return http.StatusBadRequest
	case errors.Is(err, viacep.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

// lookupMessage returns the operator-facing text of a lookup failure.
func lookupMessage(err error) string {
	for _, known := range []error{viacep.ErrInvalidCEP, viacep.ErrNotFound} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return viacep.ErrLookupFailed.Error()
}
