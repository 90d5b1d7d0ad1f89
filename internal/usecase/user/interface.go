package user

import "context"

// Usecase defines the interface for user business logic operations.
type Usecase interface {
	ListUsers(ctx context.Context, in ListUsersRequest) ([]User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListConsultants(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	ListClientsByConsultant(ctx context.Context, consultantID string) ([]User, error)
}
