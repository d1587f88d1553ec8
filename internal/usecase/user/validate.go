package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	domain "user-directory-service/internal/domain/user"
	pkgerrors "user-directory-service/pkg/errors"
	"user-directory-service/pkg/security"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// formatValidationError converts validator.ValidationErrors into a ValidationError
// with a human-readable message.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return pkgerrors.NewValidationError("", err.Error())
	}

	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "len":
			messages = append(messages, fmt.Sprintf("%s must be exactly %s characters", e.Field(), e.Param()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	field := ""
	if len(validationErrors) == 1 {
		field = validationErrors[0].Field()
	}
	return pkgerrors.NewValidationError(field, strings.Join(messages, ", "))
}

func validateStruct(in any) error {
	if err := validate.Struct(in); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// NormalizeEmail lowercases an email address for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCreateUser checks a registration request.
func ValidateCreateUser(in CreateUserRequest) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if len(in.Password) > security.MaxPasswordBytes {
		return pkgerrors.NewValidationError("Password", fmt.Sprintf("must be at most %d bytes", security.MaxPasswordBytes))
	}
	return nil
}

// ValidateAuthenticate checks that a sign-in request carries both credentials.
func ValidateAuthenticate(in AuthenticateRequest) error {
	return validateStruct(in)
}

// ValidateGetUser checks a lookup request.
func ValidateGetUser(in GetUserRequest) error {
	return validateStruct(in)
}

// ValidateUpdateUser checks an update request.
func ValidateUpdateUser(in UpdateUserRequest) error {
	return validateStruct(in)
}

// ValidateDeleteUser checks a delete request.
func ValidateDeleteUser(in DeleteUserRequest) error {
	return validateStruct(in)
}

// ValidateListUsers checks a listing request and returns the search text.
func ValidateListUsers(in ListUsersRequest) (string, error) {
	if err := validateStruct(in); err != nil {
		return "", err
	}

	if !(domain.ListQuery{Search: in.Search}).HasSearch() {
		return in.Search, nil
	}

	search, err := security.ValidateSearchQuery(in.Search)
	if err != nil {
		return "", pkgerrors.NewValidationError("Search", err.Error())
	}
	return search, nil
}
