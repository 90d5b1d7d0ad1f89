package user

import (
	"errors"
	"time"
)

// Type is the role tag of a user.
type Type string

const (
	TypeConsultant Type = "CONSULTANT"
	TypeClient     Type = "CLIENT"
)

// Valid reports whether t is one of the known roles.
func (t Type) Valid() bool {
	return t == TypeConsultant || t == TypeClient
}

// ErrNotFound is returned by repositories when a user does not exist.
var ErrNotFound = errors.New("user not found")

// ErrNotConsultant is returned by repositories when the store rejects a consultant link
// to a user whose type is not CONSULTANT.
var ErrNotConsultant = errors.New("referenced user is not a consultant")

// ErrHasClients is returned by repositories when the store rejects deleting a user
// that still has clients.
var ErrHasClients = errors.New("user has clients")

// ErrEmailTaken is returned by repositories when the unique email index rejects a write.
var ErrEmailTaken = errors.New("email already exists")

// ListFilter narrows a user listing. Zero values match everything.
type ListFilter struct {
	Type  Type   // Type restricts the listing to one role
	Query string // Query matches name, email, cpf or phone
}

// User represents a consultant or a client.
type User struct {
	ID           string    // ID is the immutable UUID of the user
	Name         string    // Name is the full name
	Email        string    // Email is the unique email address
	Phone        string    // Phone is stored digits-only
	Age          *int      // Age is optional
	CPF          string    // CPF is the national tax id, digits-only
	CEP          string    // CEP is the postal code, digits-only
	Address      string    // Address is the street address
	Complement   *string   // Complement is optional
	Type         Type      // Type is the role tag
	ConsultantID *string   // ConsultantID links a client to its consultant
	CreatedAt    time.Time // CreatedAt is set on insert
	UpdatedAt    time.Time // UpdatedAt is set on every write
}

// Summary is the short form of a related user.
type Summary struct {
	ID    string
	Name  string
	Email string
}

// WithRelations is a user together with its consultant and clients summaries.
type WithRelations struct {
	User
	Consultant *Summary
	Clients    []Summary
}

// HasClients reports whether any client references this user.
func (u *WithRelations) HasClients() bool {
	return len(u.Clients) > 0
}

// Fields carries the columns of a partial update. Nil means "leave unchanged".
// A non-nil ConsultantID pointing at an empty string clears the link.
type Fields struct {
	Name         *string
	Email        *string
	Phone        *string
	Age          *int
	CPF          *string
	CEP          *string
	Address      *string
	Complement   *string
	Type         *Type
	ConsultantID *string
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f == Fields{}
}
