package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/security"
)

// UserRepo implements the user Repository interface on top of GORM.
// It runs against PostgreSQL in production and SQLite locally.
type UserRepo struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepo creates a new instance of UserRepo.
func NewUserRepo(db *gorm.DB, log *zap.Logger) *UserRepo {
	return &UserRepo{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
// Timestamps are written by the caller, so GORM's auto-time is off.
// FirstNameLower and LastNameLower hold the names folded by Go, because
// SQLite's LOWER only folds ASCII. Emails are stored lowercased already.
type UserSchema struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	FirstName      string    `gorm:"type:varchar(60);not null"`
	LastName       string    `gorm:"type:varchar(60);not null"`
	FirstNameLower string    `gorm:"type:varchar(240);not null;default:''"`
	LastNameLower  string    `gorm:"type:varchar(240);not null;default:''"`
	Email          string    `gorm:"type:varchar(60);not null;uniqueIndex:idx_users_email_active,where:is_deleted = false"`
	Password       string    `gorm:"type:varchar(80);not null"`
	IsDeleted      bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime:false"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime:false"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func fromDomain(u *domain.User) UserSchema {
	return UserSchema{
		ID:             u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		FirstNameLower: strings.ToLower(u.FirstName),
		LastNameLower:  strings.ToLower(u.LastName),
		Email:          u.Email,
		Password:       u.PasswordHash,
		IsDeleted:      u.IsDeleted,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (m UserSchema) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		PasswordHash: m.Password,
		IsDeleted:    m.IsDeleted,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func errUserNotFound() error {
	return pkgerrors.NewNotFoundError("user", "user is not found")
}

func errEmailTaken() error {
	return pkgerrors.NewAlreadyExistsError("user", "email already registered")
}

// active restricts a query to rows that are not soft-deleted.
func active(tx *gorm.DB) *gorm.DB {
	return tx.Where("is_deleted = ?", false)
}

// Create inserts a new user. The active-email check and the insert share a
// transaction; the partial unique index settles concurrent inserts.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("user cannot be nil")
	}

	model := fromDomain(u)
	model.IsDeleted = false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&UserSchema{}).Scopes(active).Where("email = ?", model.Email).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errEmailTaken()
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		if pkgerrors.IsAlreadyExists(err) || isUniqueViolation(err) {
			r.log.Warn("email already registered", zap.String("email", model.Email))
			return errEmailTaken()
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", model.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.String("id", model.ID))
	return nil
}

// GetByID retrieves an active user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Scopes(active).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, errUserNotFound()
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := model.toDomain()
	return &u, nil
}

// GetByEmail retrieves an active user by email. It returns nil, nil when no
// active user has the address.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Scopes(active).Where("email = ?", email).First(&model).Error; err != nil {
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

// Update overwrites first name, last name and updated_at of an active user
// and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&UserSchema{}).Scopes(active).Where("id = ?", u.ID).Updates(map[string]any{
			"first_name":       u.FirstName,
			"last_name":        u.LastName,
			"first_name_lower": strings.ToLower(u.FirstName),
			"last_name_lower":  strings.ToLower(u.LastName),
			"updated_at":       u.UpdatedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errUserNotFound()
		}
		return tx.Where("id = ?", u.ID).First(&model).Error
	})
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			r.log.Debug("update target not found", zap.String("id", u.ID))
			return nil, err
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.String("id", u.ID))
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	r.log.Info("user updated in db", zap.String("id", model.ID))
	updated := model.toDomain()
	return &updated, nil
}

// SoftDelete flags an active user as deleted. The row is kept.
func (r *UserRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&UserSchema{}).Scopes(active).Where("id = ?", id).Updates(map[string]any{
		"is_deleted": true,
		"updated_at": at,
	})
	if res.Error != nil {
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.String("id", id))
		return fmt.Errorf("failed to delete user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		r.log.Debug("delete target not found", zap.String("id", id))
		return errUserNotFound()
	}

	r.log.Info("user soft-deleted in db", zap.String("id", id))
	return nil
}

// List returns one page of active users matching q together with the total
// number of matches. Count and page are read in the same transaction.
func (r *UserRepo) List(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error) {
	filtered := func(tx *gorm.DB) *gorm.DB {
		tx = tx.Model(&UserSchema{}).Scopes(active)
		if q.HasSearch() {
			pattern := security.LikePattern(q.Search)
			escape := "ESCAPE '" + security.LikeEscapeChar + "'"
			tx = tx.Where(
				"(first_name_lower LIKE ? "+escape+" OR last_name_lower LIKE ? "+escape+" OR email LIKE ? "+escape+")",
				pattern, pattern, pattern,
			)
		}
		return tx
	}

	var (
		count  int64
		models []UserSchema
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := filtered(tx).Count(&count).Error; err != nil {
			return err
		}

		page := filtered(tx)
		for _, key := range q.SortKeys() {
			page = page.Order(clause.OrderByColumn{Column: clause.Column{Name: key.Column}, Desc: key.Desc})
		}
		return page.Offset(q.Offset).Limit(q.Limit).Find(&models).Error
	})
	if err != nil {
		r.log.Error("failed to list users from db", zap.Error(err),
			zap.String("search", q.Search), zap.Int("offset", q.Offset), zap.Int("limit", q.Limit))
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = model.toDomain()
	}
	return users, count, nil
}

// ListAll returns every active user in storage order.
func (r *UserRepo) ListAll(ctx context.Context) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Scopes(active).Find(&models).Error; err != nil {
		r.log.Error("failed to list all users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list all users: %w", err)
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = model.toDomain()
	}
	return users, nil
}
