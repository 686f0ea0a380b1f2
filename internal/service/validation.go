package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// RequestInput is the payload of a request submission.
type RequestInput struct {
	RequesterName  string `json:"requester_name" validate:"required,max=100"`
	RequesterEmail string `json:"requester_email" validate:"omitempty,email,max=254"`
	Department     string `json:"department" validate:"required,max=100"`
	Category       string `json:"category" validate:"required,request_category"`
	Description    string `json:"description" validate:"required"`
}

// DepartmentInput is the payload of a department create or full update.
type DepartmentInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Code    string `json:"code" validate:"required,max=10"`
	Manager string `json:"manager" validate:"max=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("request_category", func(fl validator.FieldLevel) bool {
		return domain.RequestCategory(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("request_status", func(fl validator.FieldLevel) bool {
		return domain.RequestStatus(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}
	return v
}

// Normalize trims surrounding whitespace from every text field.
func (in *RequestInput) Normalize() {
	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.RequesterEmail = strings.TrimSpace(in.RequesterEmail)
	in.Department = strings.TrimSpace(in.Department)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
}

// Normalize trims surrounding whitespace from every text field.
func (in *DepartmentInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.TrimSpace(in.Code)
	in.Manager = strings.TrimSpace(in.Manager)
}

// ValidateRequestInput checks a submission without any HTTP binding.
func ValidateRequestInput(in RequestInput) error {
	return validationError(validate.Struct(in))
}

// ValidateDepartmentInput checks a department payload.
func ValidateDepartmentInput(in DepartmentInput) error {
	return validationError(validate.Struct(in))
}

// ValidateStatus parses a status code, rejecting anything outside the status table.
func ValidateStatus(raw string) (domain.RequestStatus, error) {
	status := domain.RequestStatus(strings.TrimSpace(raw))
	if err := validate.Var(string(status), "required,request_status"); err != nil {
		return "", apperrors.NewValidationError("invalid status", map[string]any{"status": invalidStatusMessage()})
	}
	return status, nil
}

// ValidateCategory parses a category code.
func ValidateCategory(raw string) (domain.RequestCategory, error) {
	category := domain.RequestCategory(strings.TrimSpace(raw))
	if !category.Valid() {
		return "", apperrors.NewValidationError("invalid category", map[string]any{"category": invalidCategoryMessage()})
	}
	return category, nil
}

func invalidStatusMessage() string {
	return "Invalid status. Choose from: " + strings.Join(domain.StatusCodes(), ", ")
}

func invalidCategoryMessage() string {
	return "Invalid category. Choose from: " + strings.Join(domain.CategoryCodes(), ", ")
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
	}
	return apperrors.NewValidationError("invalid payload", details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "request_category":
		return invalidCategoryMessage()
	case "request_status":
		return invalidStatusMessage()
	default:
		return fmt.Sprintf("Failed on %s.", fe.Tag())
	}
}
