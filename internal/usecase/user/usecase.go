package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
)

const (
	// DefaultListLimit is the page size used when the caller does not pass one
	DefaultListLimit = 10
	// MaxListLimit caps the page size
	MaxListLimit = 100
)

// Repository defines the interface for user data access operations.
// Every read returns active users only.
type Repository interface {
	// Insert a user; AlreadyExistsError if the email is taken by an active user
	Create(ctx context.Context, u *domain.User) error
	// Active user by ID; NotFoundError when absent
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// Active user by email; nil, nil when absent
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Overwrite names and updated_at of an active user
	Update(ctx context.Context, u *domain.User) (*domain.User, error)
	// Flag an active user as deleted
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// Filtered, sorted page plus total match count
	List(ctx context.Context, q domain.ListQuery) ([]domain.User, int64, error)
	// Every active user
	ListAll(ctx context.Context) ([]domain.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	VerifyDummy(password string)
}

// Usecase implements the user directory business logic.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo         Repository     // Repository for data access
	hasher       PasswordHasher // Password hashing
	log          *zap.Logger    // Logger for structured logging
	now          func() time.Time
	newID        func() string
	defaultLimit int
	maxLimit     int
}

// Option configures a Usecase.
type Option func(*Usecase)

// WithClock overrides the time source used for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(uc *Usecase) {
		uc.now = now
	}
}

// WithIDGenerator overrides user ID generation.
func WithIDGenerator(newID func() string) Option {
	return func(uc *Usecase) {
		uc.newID = newID
	}
}

// WithListLimits sets the default and maximum page size for ListUsers.
// Non-positive values keep the built-in defaults.
func WithListLimits(defaultLimit, maxLimit int) Option {
	return func(uc *Usecase) {
		if defaultLimit > 0 {
			uc.defaultLimit = defaultLimit
		}
		if maxLimit > 0 {
			uc.maxLimit = maxLimit
		}
	}
}

// New creates a new instance of Usecase with the provided repository, hasher and logger.
func New(r Repository, h PasswordHasher, log *zap.Logger, opts ...Option) *Usecase {
	uc := &Usecase{
		repo:         r,
		hasher:       h,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        func() string { return uuid.NewString() },
		defaultLimit: DefaultListLimit,
		maxLimit:     MaxListLimit,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.defaultLimit > uc.maxLimit {
		uc.defaultLimit = uc.maxLimit
	}
	return uc
}

func toPublic(u *domain.User) *User {
	return &User{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func toPublicList(users []domain.User) []User {
	out := make([]User, len(users))
	for i := range users {
		out[i] = *toPublic(&users[i])
	}
	return out
}

// storeError passes classified errors through and wraps everything else.
func storeError(msg string, err error) error {
	var classified pkgerrors.HTTPStatuser
	if errors.As(err, &classified) {
		return err
	}
	return pkgerrors.NewInternalError(msg, err)
}

func errInvalidCredentials() error {
	return pkgerrors.NewUnauthorizedError("invalid email or password")
}

// CreateUser registers a new user after validating the request and checking email uniqueness.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*User, error) {
	in.Email = NormalizeEmail(in.Email)
	uc.log.Info("creating user", zap.String("email", in.Email))

	if err := ValidateCreateUser(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	email := in.Email

	existingUser, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		uc.log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return nil, storeError("failed to validate email uniqueness", err)
	}
	if existingUser != nil {
		uc.log.Warn("email already exists", zap.String("email", email))
		return nil, pkgerrors.NewAlreadyExistsError("user", "email already registered")
	}

	hash, err := uc.hasher.Hash(in.Password)
	if err != nil {
		uc.log.Error("failed to hash password", zap.Error(err))
		return nil, pkgerrors.NewInternalError("failed to hash password", err)
	}

	now := uc.now()
	u := &domain.User{
		ID:           uc.newID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.repo.Create(ctx, u); err != nil {
		uc.log.Error("failed to create user", zap.String("email", email), zap.Error(err))
		return nil, storeError("failed to create user", err)
	}

	uc.log.Info("user created", zap.String("id", u.ID))
	return toPublic(u), nil
}

// Authenticate checks credentials against the active user with the given email.
// An unknown email and a wrong password produce the same error.
func (uc *Usecase) Authenticate(ctx context.Context, in AuthenticateRequest) (*User, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := ValidateAuthenticate(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	email := in.Email

	u, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		uc.log.Error("failed to look up user by email", zap.String("email", email), zap.Error(err))
		return nil, storeError("failed to authenticate", err)
	}

	if u == nil {
		uc.hasher.VerifyDummy(in.Password)
		uc.log.Warn("authentication failed", zap.String("email", email))
		return nil, errInvalidCredentials()
	}

	if !uc.hasher.Verify(u.PasswordHash, in.Password) {
		uc.log.Warn("authentication failed", zap.String("email", email))
		return nil, errInvalidCredentials()
	}

	uc.log.Info("user authenticated", zap.String("id", u.ID))
	return toPublic(u), nil
}

// GetUser retrieves an active user by ID.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*User, error) {
	if err := ValidateGetUser(in); err != nil {
		uc.log.Warn("get user validation failed", zap.String("id", in.ID), zap.Error(err))
		return nil, err
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			uc.log.Debug("user not found", zap.String("id", in.ID))
		} else {
			uc.log.Error("failed to get user", zap.String("id", in.ID), zap.Error(err))
		}
		return nil, storeError("failed to get user", err)
	}

	return toPublic(u), nil
}

// ListUsers retrieves a page of active users with optional search and sorting.
func (uc *Usecase) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	search, err := ValidateListUsers(in)
	if err != nil {
		uc.log.Warn("invalid list request", zap.String("search", in.Search), zap.Error(err))
		return nil, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = uc.defaultLimit
	}
	if limit > uc.maxLimit {
		limit = uc.maxLimit
	}

	q := domain.ListQuery{
		Offset: in.Start,
		Limit:  limit,
		Search: search,
		SortBy: in.SortBy,
		Order:  in.Order,
	}

	uc.log.Info("listing users",
		zap.Int("start", q.Offset),
		zap.Int("limit", q.Limit),
		zap.String("search", q.Search),
		zap.String("sort_by", q.SortBy),
		zap.String("order", q.Order),
	)

	users, count, err := uc.repo.List(ctx, q)
	if err != nil {
		uc.log.Error("failed to list users", zap.Error(err))
		return nil, storeError("failed to list users", err)
	}

	return &ListUsersResponse{
		Count: count,
		Users: toPublicList(users),
	}, nil
}

// ListAllUsers returns every active user without pagination.
func (uc *Usecase) ListAllUsers(ctx context.Context) ([]User, error) {
	users, err := uc.repo.ListAll(ctx)
	if err != nil {
		uc.log.Error("failed to list all users", zap.Error(err))
		return nil, storeError("failed to list users", err)
	}
	return toPublicList(users), nil
}

// UpdateUser overwrites the names of an active user.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error) {
	uc.log.Info("updating user", zap.String("id", in.ID))

	if err := ValidateUpdateUser(in); err != nil {
		uc.log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	updated, err := uc.repo.Update(ctx, &domain.User{
		ID:        in.ID,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		UpdatedAt: uc.now(),
	})
	if err != nil {
		if !pkgerrors.IsNotFound(err) {
			uc.log.Error("failed to update user", zap.String("id", in.ID), zap.Error(err))
		}
		return nil, storeError("failed to update user", err)
	}

	return toPublic(updated), nil
}

// DeleteUser soft-deletes an active user. The row is kept and its email
// becomes available for registration again.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) error {
	uc.log.Info("deleting user", zap.String("id", in.ID))

	if err := ValidateDeleteUser(in); err != nil {
		uc.log.Warn("delete user validation failed", zap.String("id", in.ID), zap.Error(err))
		return err
	}

	if err := uc.repo.SoftDelete(ctx, in.ID, uc.now()); err != nil {
		if !pkgerrors.IsNotFound(err) {
			uc.log.Error("failed to delete user", zap.String("id", in.ID), zap.Error(err))
		}
		return storeError("failed to delete user", err)
	}

	return nil
}
