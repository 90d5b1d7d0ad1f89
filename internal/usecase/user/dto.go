package user

import (
	"time"

	domain "consultant-dashboard/internal/domain/user"
)

// CreateUserRequest represents the request payload for creating a new user.
// CPF, CEP and Phone may carry punctuation; they are reduced to digits before validation.
type CreateUserRequest struct {
	Name         string  `validate:"required,max=100"`
	Email        string  `validate:"required,email"`
	Phone        string  `validate:"required,min=10,max=13"`
	Age          *int    `validate:"omitnil,min=0,max=150"`
	CPF          string  `validate:"required,len=11"`
	CEP          string  `validate:"required,len=8"`
	Address      string  `validate:"required,max=255"`
	Complement   *string `validate:"omitnil,max=255"`
	Type         string  `validate:"required,oneof=CONSULTANT CLIENT"`
	ConsultantID *string
}

// UpdateUserRequest represents the request payload for a partial update.
// A nil field is left unchanged. An empty ConsultantID clears the link and an
// empty Complement clears the complement.
type UpdateUserRequest struct {
	ID           string  `validate:"required,uuid"`
	Name         *string `validate:"omitnil,min=1,max=100"`
	Email        *string `validate:"omitnil,email"`
	Phone        *string `validate:"omitnil,min=10,max=13"`
	Age          *int    `validate:"omitnil,min=0,max=150"`
	CPF          *string `validate:"omitnil,len=11"`
	CEP          *string `validate:"omitnil,len=8"`
	Address      *string `validate:"omitnil,min=1,max=255"`
	Complement   *string `validate:"omitnil,max=255"`
	Type         *string `validate:"omitnil,oneof=CONSULTANT CLIENT"`
	ConsultantID *string
}

// ListUsersRequest represents the request payload for listing users.
// An empty Type lists both roles.
type ListUsersRequest struct {
	Type  string `validate:"omitempty,oneof=CONSULTANT CLIENT"`
	Query string
}

// Summary is the short form of a related user.
type Summary struct {
	ID    string
	Name  string
	Email string
}

// User represents a user DTO (Data Transfer Object) for API responses.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Age          *int
	CPF          string
	CEP          string
	Address      string
	Complement   *string
	Type         string
	ConsultantID *string
	Consultant   *Summary
	Clients      []Summary
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func fromDomain(u domain.User) User {
	return User{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		Age:          u.Age,
		CPF:          u.CPF,
		CEP:          u.CEP,
		Address:      u.Address,
		Complement:   u.Complement,
		Type:         string(u.Type),
		ConsultantID: u.ConsultantID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromRelations(u *domain.WithRelations) User {
	out := fromDomain(u.User)
	if u.Consultant != nil {
		out.Consultant = &Summary{ID: u.Consultant.ID, Name: u.Consultant.Name, Email: u.Consultant.Email}
	}
	out.Clients = make([]Summary, len(u.Clients))
	for i, c := range u.Clients {
		out.Clients[i] = Summary{ID: c.ID, Name: c.Name, Email: c.Email}
	}
	return out
}
