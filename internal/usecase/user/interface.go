package user

import "context"

// Directory defines the user account operations exposed to transports.
type Directory interface {
	CreateUser(ctx context.Context, in CreateUserRequest) (*User, error)
	Authenticate(ctx context.Context, in AuthenticateRequest) (*User, error)
	GetUser(ctx context.Context, in GetUserRequest) (*User, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)
	ListAllUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, in UpdateUserRequest) (*User, error)
	DeleteUser(ctx context.Context, in DeleteUserRequest) error
}

var _ Directory = (*Usecase)(nil)
