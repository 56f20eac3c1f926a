package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"visitordesk/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	if err := v.RegisterValidation("user_role", validateUserRole); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("visitor_status", validateVisitorStatus); err != nil {
		panic(err)
	}

	return &CustomValidator{validator: v}
}

// Custom validation functions
func validateUserRole(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidRole(models.Role(fl.Field().String()))
}

func validateVisitorStatus(fl playgroundvalidator.FieldLevel) bool {
	switch models.VisitorStatus(fl.Field().String()) {
	case models.VisitorStatusPending, models.VisitorStatusCheckedIn, models.VisitorStatusCheckedOut:
		return true
	default:
		return false
	}
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields maps each failing field to a readable message.
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			errMap[field] = fmt.Sprintf("%s is required", field)
		case "email":
			errMap[field] = fmt.Sprintf("%s must be a valid email", field)
		case "min":
			errMap[field] = fmt.Sprintf("%s must be at least %s", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("%s must be at most %s", field, param)
		case "uuid":
			errMap[field] = fmt.Sprintf("%s must be a valid UUID", field)
		case "oneof":
			errMap[field] = fmt.Sprintf("%s must be one of [%s]", field, param)
		case "user_role":
			errMap[field] = fmt.Sprintf("%s must be one of: admin, reception, host, security", field)
		case "visitor_status":
			errMap[field] = fmt.Sprintf("%s must be one of: pending, checked_in, checked_out", field)
		default:
			errMap[field] = fmt.Sprintf("%s failed validation: %s", field, err.Tag())
		}
	}
	return errMap
}

// SignInRequest Request validation structs
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type PasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type VisitorRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Company     string `json:"company"`
	HostID      string `json:"hostId" validate:"omitempty,uuid"`
	FloorNumber int    `json:"floorNumber" validate:"min=0"`
	GuestCode   string `json:"guestCode" validate:"omitempty,max=32"`
}

type BlacklistRequest struct {
	Blacklisted *bool `json:"blacklisted" validate:"required"`
}

type ProfileRequest struct {
	FullName       string   `json:"fullName"`
	Role           string   `json:"role" validate:"omitempty,user_role"`
	AssignedFloors []string `json:"assignedFloors" validate:"omitempty,dive,required"`
}
