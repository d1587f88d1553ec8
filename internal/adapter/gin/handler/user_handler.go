package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-directory-service/internal/usecase/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/logger"
)

// Error codes returned in ErrorResponse.Error
const (
	CodeBadRequest      = "bad_request"
	CodeValidation      = "validation_error"
	CodeAlreadyExists   = "already_exists"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeInternal        = "internal_error"
	internalErrorDetail = "An internal error occurred"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	dir user.Directory
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(dir user.Directory, log *zap.Logger) *UserHandler {
	return &UserHandler{
		dir: dir,
		log: log,
	}
}

// SignUpRequest represents the HTTP request body for registering a user
type SignUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// SignInRequest represents the HTTP request body for authenticating
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserRequest represents the HTTP request body for updating a user
type UpdateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// ListUsersResponse represents one page of users and the total match count
type ListUsersResponse struct {
	Count int64          `json:"count"`
	List  []UserResponse `json:"list"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func toResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func toResponseList(users []user.User) []UserResponse {
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = toResponse(&users[i])
	}
	return out
}

func (h *UserHandler) reqLog(c *gin.Context) *zap.Logger {
	return logger.WithContext(c.Request.Context(), h.log)
}

func (h *UserHandler) badJSON(c *gin.Context, err error) {
	h.reqLog(c).Warn("malformed request body", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   CodeBadRequest,
		Message: "request body must be valid JSON",
	})
}

// SignUp handles POST /sign-up
func (h *UserHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badJSON(c, err)
		return
	}

	resp, err := h.dir.CreateUser(c.Request.Context(), user.CreateUserRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// SignIn handles POST /sign-in
func (h *UserHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badJSON(c, err)
		return
	}

	resp, err := h.dir.Authenticate(c.Request.Context(), user.AuthenticateRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	resp, err := h.dir.GetUser(c.Request.Context(), user.GetUserRequest{ID: c.Param("id")})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// UpdateUser handles PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badJSON(c, err)
		return
	}

	resp, err := h.dir.UpdateUser(c.Request.Context(), user.UpdateUserRequest{
		ID:        c.Param("id"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponse(resp))
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.dir.DeleteUser(c.Request.Context(), user.DeleteUserRequest{ID: c.Param("id")}); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// ListUsers handles GET /users?start=&limit=&search=&sort_by=&order=
func (h *UserHandler) ListUsers(c *gin.Context) {
	start, err := queryInt(c, "start", 0)
	if err != nil {
		h.handleError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp, err := h.dir.ListUsers(c.Request.Context(), user.ListUsersRequest{
		Start:  start,
		Limit:  limit,
		Search: c.DefaultQuery("search", "all"),
		SortBy: c.Query("sort_by"),
		Order:  c.Query("order"),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListUsersResponse{
		Count: resp.Count,
		List:  toResponseList(resp.Users),
	})
}

// ListAllUsers handles GET /users/all
func (h *UserHandler) ListAllUsers(c *gin.Context) {
	users, err := h.dir.ListAllUsers(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResponseList(users))
}

// queryInt reads an optional integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

// handleError converts usecase errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	status := pkgerrors.StatusOf(err)
	log := h.reqLog(c).With(zap.String("path", c.FullPath()), zap.Int("status", status))

	var (
		validationErr *pkgerrors.ValidationError
		existsErr     *pkgerrors.AlreadyExistsError
		unauthErr     *pkgerrors.UnauthorizedError
		notFoundErr   *pkgerrors.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Debug("request rejected", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: CodeValidation, Message: validationErr.Error()})
	case errors.As(err, &existsErr):
		log.Debug("request rejected", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: CodeAlreadyExists, Message: existsErr.Error()})
	case errors.As(err, &unauthErr):
		log.Debug("request rejected", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: CodeUnauthorized, Message: unauthErr.Error()})
	case errors.As(err, &notFoundErr):
		log.Debug("request rejected", zap.Error(err))
		c.JSON(status, ErrorResponse{Error: CodeNotFound, Message: notFoundErr.Error()})
	default:
		log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: CodeInternal, Message: internalErrorDetail})
	}
}
