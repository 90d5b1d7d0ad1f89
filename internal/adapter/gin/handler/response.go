package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"consultant-dashboard/internal/domain/address"
	"consultant-dashboard/internal/usecase/user"
	apperrors "consultant-dashboard/pkg/errors"
	"consultant-dashboard/pkg/logger"
)

// AddressLookup resolves a CEP to an address.
type AddressLookup interface {
	FetchAddress(ctx context.Context, cep string) (*address.Address, error)
}

// Result is the envelope of every JSON response.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SummaryResponse is the short form of a related user.
type SummaryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Age          *int              `json:"age"`
	CPF          string            `json:"cpf"`
	CEP          string            `json:"cep"`
	Address      string            `json:"address"`
	Complement   *string           `json:"complement"`
	Type         string            `json:"type"`
	ConsultantID *string           `json:"consultantId"`
	Consultant   *SummaryResponse  `json:"consultant,omitempty"`
	Clients      []SummaryResponse `json:"clients"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// AddressResponse represents a resolved CEP
type AddressResponse struct {
	CEP          string `json:"cep"`
	Street       string `json:"street"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

func toUserResponse(u user.User) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Age:          u.Age,
		CPF:          u.CPF,
		CEP:          u.CEP,
		Address:      u.Address,
		Complement:   u.Complement,
		Type:         u.Type,
		ConsultantID: u.ConsultantID,
		Clients:      make([]SummaryResponse, len(u.Clients)),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Consultant != nil {
		resp.Consultant = &SummaryResponse{ID: u.Consultant.ID, Name: u.Consultant.Name, Email: u.Consultant.Email}
	}
	for i, c := range u.Clients {
		resp.Clients[i] = SummaryResponse{ID: c.ID, Name: c.Name, Email: c.Email}
	}
	return resp
}

func toUserResponses(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	return out
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Result{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, Result{Success: false, Error: message})
}

// handleError converts usecase errors to a failed Result. Internal causes are
// logged and never returned to the caller.
func handleError(c *gin.Context, log *zap.Logger, op string, err error) {
	status := apperrors.StatusOf(err)
	l := logger.WithContext(c.Request.Context(), log)
	if status >= 500 {
		l.Error("Gin "+op+" failed", zap.Error(err))
	} else {
		l.Warn("Gin "+op+" rejected", zap.Error(err))
	}
	fail(c, status, apperrors.PublicMessage(err))
}
