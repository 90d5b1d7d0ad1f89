package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "consultant-dashboard/internal/domain/user"
	apperrors "consultant-dashboard/pkg/errors"
	"consultant-dashboard/pkg/format"
	"consultant-dashboard/pkg/logger"
)

// User-facing messages.
const (
	MsgUserNotFound       = "User not found"
	MsgConsultantNotFound = "Consultant not found"
	MsgNotAConsultant     = "The specified user is not a consultant"
	MsgHasClients         = "Cannot delete consultant with active clients. Please reassign or delete clients first."
	MsgTypeChangeBlocked  = "Cannot change the type of a consultant with active clients. Please reassign or delete clients first."
	MsgSelfConsultant     = "A user cannot be their own consultant"
	MsgEmailExists        = "email already exists"
)

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing the GORM store and its cached
// decorator to be used interchangeably.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error                                        // Create a new user, assigning its ID
	GetByID(ctx context.Context, id string) (*domain.WithRelations, error)                   // Retrieve user with relations by ID
	GetByEmail(ctx context.Context, email string) (*domain.User, error)                      // Retrieve user by email, nil if absent
	Update(ctx context.Context, id string, f domain.Fields) error                            // Write the supplied fields
	Delete(ctx context.Context, id string) error                                             // Delete user by ID
	List(ctx context.Context, filter domain.ListFilter) ([]domain.WithRelations, error)      // List users, newest first
	ListConsultants(ctx context.Context) ([]domain.WithRelations, error)                     // List consultants by name
	ListClientsByConsultant(ctx context.Context, consultantID string) ([]domain.User, error) // List a consultant's clients by name
}

// Service implements the business logic for consultant and client management.
// It provides a clean separation between the transport layer and data layer.
type Service struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

var _ Usecase = (*Service)(nil)

// New creates a new instance of Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a human-readable error.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("", err.Error())
	}

	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "len":
			messages = append(messages, fmt.Sprintf("%s must have exactly %s digits", e.Field(), e.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param()))
		case "uuid":
			messages = append(messages, fmt.Sprintf("%s must be a valid id", e.Field()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError("", strings.Join(messages, ", "))
}

// isID reports whether id is a well-formed user ID.
func (uc *Service) isID(id string) bool {
	return uc.validate.Var(id, "required,uuid") == nil
}

func digitsPtr(s *string) *string {
	if s == nil {
		return nil
	}
	d := format.Digits(*s)
	return &d
}

func nilIfEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// ListUsers retrieves users with their consultant and clients, newest first.
func (uc *Service) ListUsers(ctx context.Context, in ListUsersRequest) ([]User, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	log.Debug("listing users", zap.String("type", in.Type), zap.String("query", in.Query))

	users, err := uc.repo.List(ctx, domain.ListFilter{Type: domain.Type(in.Type), Query: in.Query})
	if err != nil {
		// Handle validation errors from repository layer
		if strings.Contains(err.Error(), "invalid search query") {
			log.Warn("invalid search query in usecase", zap.String("query", in.Query), zap.Error(err))
			return nil, apperrors.NewValidationError("query", strings.TrimPrefix(err.Error(), "invalid search query: "))
		}
		log.Error("failed to list users", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to fetch users", err)
	}

	out := make([]User, len(users))
	for i := range users {
		out[i] = fromRelations(&users[i])
	}
	return out, nil
}

// GetUser retrieves a user with relations by ID.
func (uc *Service) GetUser(ctx context.Context, id string) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	if !uc.isID(id) {
		log.Debug("malformed user id", zap.String("id", id))
		return nil, apperrors.NewNotFoundError("user", MsgUserNotFound)
	}

	u, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug("user not found", zap.String("id", id))
			return nil, apperrors.NewNotFoundError("user", MsgUserNotFound)
		}
		log.Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to fetch user", err)
	}

	out := fromRelations(u)
	return &out, nil
}

// ListConsultants retrieves all consultants with their clients, by name.
func (uc *Service) ListConsultants(ctx context.Context) ([]User, error) {
	consultants, err := uc.repo.ListConsultants(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list consultants", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to fetch consultants", err)
	}

	out := make([]User, len(consultants))
	for i := range consultants {
		out[i] = fromRelations(&consultants[i])
	}
	return out, nil
}

// ListClientsByConsultant retrieves the clients of a consultant, by name.
// An unknown consultant yields an empty list.
func (uc *Service) ListClientsByConsultant(ctx context.Context, consultantID string) ([]User, error) {
	if !uc.isID(consultantID) {
		return []User{}, nil
	}

	clients, err := uc.repo.ListClientsByConsultant(ctx, consultantID)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list clients",
			zap.String("consultant_id", consultantID),
			zap.Error(err),
		)
		return nil, apperrors.NewInternalError("failed to fetch clients", err)
	}

	out := make([]User, len(clients))
	for i, c := range clients {
		out[i] = fromDomain(c)
	}
	return out, nil
}

// checkConsultant verifies that id references an existing CONSULTANT.
// An id that cannot reference any user is reported as not found.
func (uc *Service) checkConsultant(ctx context.Context, log *zap.Logger, id string) error {
	if !uc.isID(id) {
		log.Warn("consultant not found", zap.String("consultant_id", id))
		return apperrors.NewNotFoundError("consultant", MsgConsultantNotFound)
	}

	consultant, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("consultant not found", zap.String("consultant_id", id))
			return apperrors.NewNotFoundError("consultant", MsgConsultantNotFound)
		}
		log.Error("failed to load consultant", zap.String("consultant_id", id), zap.Error(err))
		return apperrors.NewInternalError("failed to validate consultant", err)
	}

	if consultant.Type != domain.TypeConsultant {
		log.Warn("referenced user is not a consultant",
			zap.String("consultant_id", id),
			zap.String("type", string(consultant.Type)),
		)
		return apperrors.NewRuleViolationError("consultant_type", MsgNotAConsultant)
	}
	return nil
}

// checkEmail verifies that no other user owns email.
func (uc *Service) checkEmail(ctx context.Context, log *zap.Logger, email, selfID string) error {
	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if existing != nil && existing.ID != selfID {
		log.Warn("email already exists", zap.String("email", email), zap.String("existing_id", existing.ID))
		return apperrors.NewAlreadyExistsError("user", MsgEmailExists)
	}
	return nil
}

// storeError converts repository write errors into application errors.
func storeError(err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NewNotFoundError("user", MsgUserNotFound)
	case errors.Is(err, domain.ErrNotConsultant):
		return apperrors.NewRuleViolationError("consultant_type", MsgNotAConsultant)
	case errors.Is(err, domain.ErrEmailTaken):
		return apperrors.NewAlreadyExistsError("user", MsgEmailExists)
	default:
		return apperrors.NewInternalError(fallback, err)
	}
}

// CreateUser creates a consultant or client after normalizing and validating the request.
func (uc *Service) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	in.CPF = format.Digits(in.CPF)
	in.CEP = format.UnformatCEP(in.CEP)
	in.Phone = format.Digits(in.Phone)
	in.Complement = nilIfEmpty(in.Complement)
	in.ConsultantID = nilIfEmpty(in.ConsultantID)

	log.Info("creating user", zap.String("name", in.Name), zap.String("email", in.Email), zap.String("type", in.Type))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if in.ConsultantID != nil {
		if err := uc.checkConsultant(ctx, log, *in.ConsultantID); err != nil {
			return nil, err
		}
	}

	if domain.Type(in.Type) == domain.TypeClient && in.ConsultantID == nil {
		log.Warn("creating a client without a consultant", zap.String("email", in.Email))
	}

	if err := uc.checkEmail(ctx, log, in.Email, ""); err != nil {
		return nil, err
	}

	u := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Age:          in.Age,
		CPF:          in.CPF,
		CEP:          in.CEP,
		Address:      in.Address,
		Complement:   in.Complement,
		Type:         domain.Type(in.Type),
		ConsultantID: in.ConsultantID,
	}
	if err := uc.repo.Create(ctx, u); err != nil {
		log.Error("failed to create user", zap.Error(err))
		return nil, storeError(err, "failed to create user")
	}

	created, err := uc.repo.GetByID(ctx, u.ID)
	if err != nil {
		log.Error("failed to reload created user", zap.String("id", u.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	out := fromRelations(created)
	return &out, nil
}

// UpdateUser writes the supplied fields of an existing user.
func (uc *Service) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	log := logger.WithContext(ctx, uc.log)

	clearConsultant := in.ConsultantID != nil && strings.TrimSpace(*in.ConsultantID) == ""
	if clearConsultant {
		in.ConsultantID = nil
	}
	in.CPF = digitsPtr(in.CPF)
	in.Phone = digitsPtr(in.Phone)
	in.CEP = digitsPtr(in.CEP)

	log.Info("updating user", zap.String("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	existing, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("user not found", zap.String("id", in.ID))
			return nil, apperrors.NewNotFoundError("user", MsgUserNotFound)
		}
		log.Error("failed to load user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	fields := domain.Fields{
		Name:       in.Name,
		Email:      in.Email,
		Phone:      in.Phone,
		Age:        in.Age,
		CPF:        in.CPF,
		CEP:        in.CEP,
		Address:    in.Address,
		Complement: in.Complement,
	}
	if in.Type != nil {
		t := domain.Type(*in.Type)
		fields.Type = &t
	}

	if in.Email != nil && *in.Email != existing.Email {
		if err := uc.checkEmail(ctx, log, *in.Email, in.ID); err != nil {
			return nil, err
		}
	}

	switch {
	case clearConsultant:
		empty := ""
		fields.ConsultantID = &empty
	case in.ConsultantID != nil:
		if *in.ConsultantID == in.ID {
			log.Warn("user cannot be their own consultant", zap.String("id", in.ID))
			return nil, apperrors.NewRuleViolationError("self_consultant", MsgSelfConsultant)
		}
		if err := uc.checkConsultant(ctx, log, *in.ConsultantID); err != nil {
			return nil, err
		}
		fields.ConsultantID = in.ConsultantID
	}

	if fields.Type != nil && *fields.Type == domain.TypeClient &&
		existing.Type == domain.TypeConsultant && existing.HasClients() {
		log.Warn("type change blocked by existing clients",
			zap.String("id", in.ID),
			zap.Int("clients", len(existing.Clients)),
		)
		return nil, apperrors.NewRuleViolationError("consultant_has_clients", MsgTypeChangeBlocked)
	}

	if effectiveType(existing, fields) == domain.TypeClient && !hasConsultant(existing, fields) {
		log.Warn("client has no consultant", zap.String("id", in.ID))
	}

	if fields.Empty() {
		out := fromRelations(existing)
		return &out, nil
	}

	if err := uc.repo.Update(ctx, in.ID, fields); err != nil {
		if errors.Is(err, domain.ErrHasClients) {
			return nil, apperrors.NewRuleViolationError("consultant_has_clients", MsgTypeChangeBlocked)
		}
		log.Error("failed to update user", zap.String("id", in.ID), zap.Error(err))
		return nil, storeError(err, "failed to update user")
	}

	updated, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		log.Error("failed to reload updated user", zap.String("id", in.ID), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	out := fromRelations(updated)
	return &out, nil
}

func effectiveType(existing *domain.WithRelations, f domain.Fields) domain.Type {
	if f.Type != nil {
		return *f.Type
	}
	return existing.Type
}

func hasConsultant(existing *domain.WithRelations, f domain.Fields) bool {
	if f.ConsultantID != nil {
		return *f.ConsultantID != ""
	}
	return existing.ConsultantID != nil
}

// DeleteUser deletes a user unless clients still reference it.
func (uc *Service) DeleteUser(ctx context.Context, id string) error {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.String("id", id))

	if !uc.isID(id) {
		return apperrors.NewNotFoundError("user", MsgUserNotFound)
	}

	existing, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("user not found", zap.String("id", id))
			return apperrors.NewNotFoundError("user", MsgUserNotFound)
		}
		log.Error("failed to load user", zap.String("id", id), zap.Error(err))
		return apperrors.NewInternalError("failed to delete user", err)
	}

	if existing.HasClients() {
		log.Warn("delete blocked by existing clients", zap.String("id", id), zap.Int("clients", len(existing.Clients)))
		return apperrors.NewRuleViolationError("consultant_has_clients", MsgHasClients)
	}

	if err := uc.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrHasClients) {
			log.Warn("delete rejected by store, clients were added concurrently", zap.String("id", id))
			return apperrors.NewRuleViolationError("consultant_has_clients", MsgHasClients)
		}
		log.Error("failed to delete user", zap.String("id", id), zap.Error(err))
		return storeError(err, "failed to delete user")
	}

	return nil
}
