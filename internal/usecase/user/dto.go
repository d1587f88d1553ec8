package user

// CreateUserRequest represents the request payload for registering a user.
type CreateUserRequest struct {
	FirstName string `validate:"required,max=60"`
	LastName  string `validate:"required,max=60"`
	Email     string `validate:"required,email,max=60"`
	Password  string `validate:"required,max=72"`
}

// AuthenticateRequest represents a sign-in attempt.
type AuthenticateRequest struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// GetUserRequest represents the request payload for retrieving a user.
type GetUserRequest struct {
	ID string `validate:"required,len=36"`
}

// UpdateUserRequest represents the request payload for updating a user's names.
// Email and password cannot be changed through it.
type UpdateUserRequest struct {
	ID        string `validate:"required,len=36"`
	FirstName string `validate:"required,max=60"`
	LastName  string `validate:"required,max=60"`
}

// DeleteUserRequest represents the request payload for soft-deleting a user.
type DeleteUserRequest struct {
	ID string `validate:"required,len=36"`
}

// ListUsersRequest represents the request payload for listing users.
// It supports offset pagination, search and sorting.
type ListUsersRequest struct {
	Start  int `validate:"min=0"`
	Limit  int
	Search string
	SortBy string
	Order  string
}

// ListUsersResponse represents one page of users plus the total match count.
type ListUsersResponse struct {
	Count int64
	Users []User
}

// User is the public view of a user. It never carries the password hash.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}
