package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Form inputs are checked here before they are sent to the backend. The
// backend repeats every check; this only saves a round trip and lets forms
// show messages next to the offending field.

type (
	Credentials struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	Registration struct {
		Name     string `json:"name" validate:"required,min=2,max=50"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
	}

	TransactionInput struct {
		Title       string   `json:"title" validate:"required,max=100"`
		Description string   `json:"description,omitempty" validate:"max=500"`
		Amount      Money    `json:"amount" validate:"gt=0"`
		Type        TxType   `json:"type" validate:"required,oneof=income expense"`
		Category    string   `json:"category" validate:"required"`
		Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
		Tags        []string `json:"tags,omitempty" validate:"max=10,dive,max=30"`
		Notes       string   `json:"notes,omitempty" validate:"max=1000"`
	}

	CategoryInput struct {
		Name        string `json:"name" validate:"required,max=50"`
		Type        TxType `json:"type" validate:"required,oneof=income expense"`
		Icon        string `json:"icon,omitempty" validate:"max=8"`
		Color       string `json:"color,omitempty" validate:"omitempty,hexcolor"`
		Description string `json:"description,omitempty" validate:"max=200"`
	}

	ProfileInput struct {
		Name     string `json:"name" validate:"required,min=2,max=50"`
		Phone    string `json:"phone,omitempty" validate:"max=20"`
		Currency string `json:"currency" validate:"required,oneof=USD EUR GBP INR CAD AUD JPY CNY"`
		Timezone string `json:"timezone" validate:"required,timezone"`
	}

	PreferencesInput struct {
		Theme         Theme         `json:"theme" validate:"required,oneof=light dark"`
		Notifications Notifications `json:"notifications"`
		BudgetAlerts  bool          `json:"budgetAlerts"`
	}

	PasswordChangeInput struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=6"`
		ConfirmPassword string `json:"-" validate:"required,eqfield=NewPassword"`
	}
)

// ValidationErrors maps a form field (its JSON name) to a message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(Money); ok {
			return m.Float64()
		}
		return nil
	}, Money{})
	return v
}

// Validate checks a form input struct. It returns ValidationErrors when one
// or more fields are rejected.
func Validate(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation error: %w", err)
	}

	out := make(ValidationErrors, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fe.Field()
		if _, seen := out[name]; !seen {
			out[name] = message(fe)
		}
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At most %s items", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "gt":
		return "Must be greater than 0"
	case "oneof":
		return "Must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "datetime":
		return "Use the YYYY-MM-DD format"
	case "hexcolor":
		return "Use a hex color like #3b82f6"
	case "timezone":
		return "Unknown timezone"
	case "eqfield":
		return "Passwords do not match"
	default:
		return "Invalid value"
	}
}
