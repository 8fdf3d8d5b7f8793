// Package authpw validates the email/password sign-in and sign-up forms
// before they are sent to the tracker API.
package authpw

import (
	"errors"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	msgEmail           = "Please provide valid email address"
	msgPasswordLength  = "Password must be at least 8 characters"
	msgPasswordLower   = "Password must contain at least 1 lowercase letter"
	msgPasswordUpper   = "Password must contain at least 1 uppercase letter"
	msgPasswordNumber  = "Password must contain at least 1 number"
	msgPasswordSpecial = "Password must contain at least 1 special character"
	msgUsernameLength  = "Username must be at least 3 characters"
	msgConfirmRequired = "Please confirm your password"
	msgPasswordsDiffer = "Passwords don't match"

	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength = 8
	specialCharacters = "@$!%*?&."
)

type RegisterForm struct {
	Email           string `json:"email" validate:"email"`
	Password        string `json:"password" validate:"password"`
	Username        string `json:"username" validate:"min=3"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type LoginForm struct {
	Email    string `json:"email" validate:"email"`
	Password string `json:"password" validate:"password"`
}

// InviteForm is the address an organization admin invites.
type InviteForm struct {
	Email string `json:"email" validate:"email"`
}

// Errors maps a form field's JSON name to its messages. Empty means valid.
type Errors map[string][]string

func (e Errors) Valid() bool {
	return len(e) == 0
}

func (e Errors) add(field string, messages ...string) {
	if len(messages) == 0 {
		return
	}
	e[field] = append(e[field], messages...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(PasswordProblems(fl.Field().String())) == 0
	}); err != nil {
		panic(err)
	}
	return v
}

// ValidateRegister trims the email and username in place and reports every
// rule the form breaks.
func ValidateRegister(form *RegisterForm) Errors {
	form.Email = strings.TrimSpace(form.Email)
	form.Username = strings.TrimSpace(form.Username)

	errs := collect(validate.Struct(form))
	if form.Password != form.ConfirmPassword {
		errs.add("confirmPassword", msgPasswordsDiffer)
	}
	return errs
}

// ValidateLogin trims the email in place and applies the same password rules
// as registration.
func ValidateLogin(form *LoginForm) Errors {
	form.Email = strings.TrimSpace(form.Email)
	return collect(validate.Struct(form))
}

func ValidateInvite(form *InviteForm) Errors {
	form.Email = strings.TrimSpace(form.Email)
	return collect(validate.Struct(form))
}

func collect(err error) Errors {
	errs := Errors{}
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.add("form", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.add(fe.Field(), messagesFor(fe)...)
	}
	return errs
}

func messagesFor(fe validator.FieldError) []string {
	switch fe.Tag() {
	case "email":
		return []string{msgEmail}
	case "password":
		value, _ := fe.Value().(string)
		return PasswordProblems(value)
	case "min":
		return []string{msgUsernameLength}
	case "required":
		return []string{msgConfirmRequired}
	default:
		return []string{fe.Error()}
	}
}

// PasswordProblems lists every password rule p breaks, in a stable order.
func PasswordProblems(p string) []string {
	var problems []string
	if len([]rune(p)) < MinPasswordLength {
		problems = append(problems, msgPasswordLength)
	}
	if !strings.ContainsFunc(p, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		problems = append(problems, msgPasswordLower)
	}
	if !strings.ContainsFunc(p, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		problems = append(problems, msgPasswordUpper)
	}
	if !strings.ContainsFunc(p, unicode.IsDigit) {
		problems = append(problems, msgPasswordNumber)
	}
	if !strings.ContainsAny(p, specialCharacters) {
		problems = append(problems, msgPasswordSpecial)
	}
	return problems
}
