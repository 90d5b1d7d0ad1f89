package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"consultant-dashboard/internal/domain/user"
	"consultant-dashboard/pkg/format"
	"consultant-dashboard/pkg/security"
)

// UserRepoPG implements the user Repository on top of GORM.
// The same code runs against PostgreSQL and SQLite.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID           string `gorm:"primaryKey"`
	Name         string `gorm:"not null"`
	Email        string `gorm:"not null;uniqueIndex"`
	Phone        string `gorm:"not null"`
	Age          *int
	CPF          string `gorm:"column:cpf;not null"`
	CEP          string `gorm:"column:cep;not null"`
	Address      string `gorm:"not null"`
	Complement   *string
	Type         string       `gorm:"not null"`
	ConsultantID *string      `gorm:"index"`
	Consultant   *UserSchema  `gorm:"foreignKey:ConsultantID"`
	Clients      []UserSchema `gorm:"foreignKey:ConsultantID;constraint:OnDelete:RESTRICT"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m *UserSchema) toDomain() user.User {
	return user.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		Phone:        m.Phone,
		Age:          m.Age,
		CPF:          m.CPF,
		CEP:          m.CEP,
		Address:      m.Address,
		Complement:   m.Complement,
		Type:         user.Type(m.Type),
		ConsultantID: m.ConsultantID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m *UserSchema) toRelations() user.WithRelations {
	out := user.WithRelations{User: m.toDomain()}
	if m.Consultant != nil {
		out.Consultant = &user.Summary{ID: m.Consultant.ID, Name: m.Consultant.Name, Email: m.Consultant.Email}
	}
	out.Clients = make([]user.Summary, len(m.Clients))
	for i, c := range m.Clients {
		out.Clients[i] = user.Summary{ID: c.ID, Name: c.Name, Email: c.Email}
	}
	return out
}

func summaryColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "consultant_id")
}

func clientColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "consultant_id").Order("name ASC")
}

// withRelations preloads the consultant summary and the client summaries.
func withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Consultant", summaryColumns).Preload("Clients", clientColumns)
}

// translateError maps store constraint failures onto domain errors.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "consultant_type_violation"):
		return user.ErrNotConsultant
	case strings.Contains(msg, "consultant_has_clients"):
		return user.ErrHasClients
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "violates foreign key constraint"):
		return user.ErrHasClients
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "duplicate key value"):
		return user.ErrEmailTaken
	}
	return err
}

// Create inserts a new user, assigning its ID and timestamps.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:           uuid.NewString(),
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
	}

	if err := r.db.WithContext(ctx).Omit("Consultant", "Clients").Create(&model).Error; err != nil {
		if mapped := translateError(err); mapped != err {
			r.log.Warn("user create rejected by store", zap.Error(err), zap.String("email", u.Email))
			return mapped
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = model.ID
	u.CreatedAt = model.CreatedAt
	u.UpdatedAt = model.UpdatedAt

	r.log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// Update writes only the supplied fields of the user with the given ID.
func (r *UserRepoPG) Update(ctx context.Context, id string, f user.Fields) error {
	updates := fieldsToColumns(f)
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()

	res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if mapped := translateError(res.Error); mapped != res.Error {
			r.log.Warn("user update rejected by store", zap.Error(res.Error), zap.String("id", id))
			return mapped
		}
		r.log.Error("failed to update user in db", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}

	r.log.Info("user updated in db", zap.String("id", id))
	return nil
}

// fieldsToColumns converts a partial update into a column map. A nil entry in the
// map writes NULL.
func fieldsToColumns(f user.Fields) map[string]any {
	cols := map[string]any{}
	if f.Name != nil {
		cols["name"] = *f.Name
	}
	if f.Email != nil {
		cols["email"] = *f.Email
	}
	if f.Phone != nil {
		cols["phone"] = *f.Phone
	}
	if f.Age != nil {
		cols["age"] = *f.Age
	}
	if f.CPF != nil {
		cols["cpf"] = *f.CPF
	}
	if f.CEP != nil {
		cols["cep"] = *f.CEP
	}
	if f.Address != nil {
		cols["address"] = *f.Address
	}
	if f.Complement != nil {
		if *f.Complement == "" {
			cols["complement"] = nil
		} else {
			cols["complement"] = *f.Complement
		}
	}
	if f.Type != nil {
		cols["type"] = string(*f.Type)
	}
	if f.ConsultantID != nil {
		if *f.ConsultantID == "" {
			cols["consultant_id"] = nil
		} else {
			cols["consultant_id"] = *f.ConsultantID
		}
	}
	return cols
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserSchema{})
	if res.Error != nil {
		if mapped := translateError(res.Error); mapped != res.Error {
			r.log.Warn("user delete rejected by store", zap.Error(res.Error), zap.String("id", id))
			return mapped
		}
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}

	r.log.Info("user deleted in db", zap.String("id", id))
	return nil
}

// GetByID retrieves a user with its consultant and clients.
func (r *UserRepoPG) GetByID(ctx context.Context, id string) (*user.WithRelations, error) {
	var model UserSchema
	if err := withRelations(r.db.WithContext(ctx)).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, user.ErrNotFound
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	out := model.toRelations()
	return &out, nil
}

// GetByEmail retrieves a user by email address. It returns nil, nil when none exists.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	u := model.toDomain()
	return &u, nil
}

// List retrieves users with relations, newest first, narrowed by filter.
func (r *UserRepoPG) List(ctx context.Context, filter user.ListFilter) ([]user.WithRelations, error) {
	q := withRelations(r.db.WithContext(ctx))

	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}

	if filter.Query != "" {
		query, err := security.ValidateSearchQuery(filter.Query)
		if err != nil {
			r.log.Warn("invalid search query detected", zap.String("query", filter.Query), zap.Error(err))
			return nil, fmt.Errorf("invalid search query: %w", err)
		}
		if query != "" {
			q = q.Where(searchCondition(r.db, query))
		}
	}

	var models []UserSchema
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err), zap.String("type", string(filter.Type)))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return toRelationsSlice(models), nil
}

// ListConsultants retrieves all consultants with their clients, by name.
func (r *UserRepoPG) ListConsultants(ctx context.Context) ([]user.WithRelations, error) {
	var models []UserSchema
	err := r.db.WithContext(ctx).
		Preload("Clients", clientColumns).
		Where("type = ?", string(user.TypeConsultant)).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list consultants from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list consultants: %w", err)
	}

	return toRelationsSlice(models), nil
}

// ListClientsByConsultant retrieves the clients linked to consultantID, by name.
func (r *UserRepoPG) ListClientsByConsultant(ctx context.Context, consultantID string) ([]user.User, error) {
	var models []UserSchema
	err := r.db.WithContext(ctx).
		Where("consultant_id = ? AND type = ?", consultantID, string(user.TypeClient)).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		r.log.Error("failed to list clients from db", zap.Error(err), zap.String("consultant_id", consultantID))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = models[i].toDomain()
	}
	return users, nil
}

// searchCondition matches name and email case-insensitively, and cpf and phone by
// the digits of the query so masked input finds digits-only columns.
func searchCondition(db *gorm.DB, query string) *gorm.DB {
	pattern := "%" + strings.ToLower(security.SanitizeSearchString(query)) + "%"
	cond := db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern).
		Or(`LOWER(email) LIKE ? ESCAPE '\'`, pattern)

	if digits := format.Digits(query); digits != "" {
		digitsPattern := "%" + digits + "%"
		cond = cond.Or("cpf LIKE ?", digitsPattern).Or("phone LIKE ?", digitsPattern)
	}
	return cond
}

func toRelationsSlice(models []UserSchema) []user.WithRelations {
	out := make([]user.WithRelations, len(models))
	for i := range models {
		out[i] = models[i].toRelations()
	}
	return out
}
