package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"consultant-dashboard/internal/domain/address"
	usecase "consultant-dashboard/internal/usecase/user"
)

// MockUserUsecase is a mock implementation of user.Usecase
type MockUserUsecase struct {
	mock.Mock
}

var _ usecase.Usecase = (*MockUserUsecase)(nil)

func (m *MockUserUsecase) ListUsers(ctx context.Context, req usecase.ListUsersRequest) ([]usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.User), args.Error(1)
}

func (m *MockUserUsecase) GetUser(ctx context.Context, id string) (*usecase.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) ListConsultants(ctx context.Context) ([]usecase.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.User), args.Error(1)
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, req usecase.CreateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, req usecase.UpdateUserRequest) (*usecase.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserUsecase) ListClientsByConsultant(ctx context.Context, consultantID string) ([]usecase.User, error) {
	args := m.Called(ctx, consultantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usecase.User), args.Error(1)
}

// MockLookup is a mock AddressLookup
type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) FetchAddress(ctx context.Context, cep string) (*address.Address, error) {
	args := m.Called(ctx, cep)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}
