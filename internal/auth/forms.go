package auth

import (
	"errors"
	"regexp"
	"strings"

	"cafe_client/internal/shared"

	"github.com/go-playground/validator/v10"
)

// Screen validation messages.
const (
	MsgLoginMissingFields    = "Por favor completa todos los campos"
	MsgLoginInvalidEmail     = "Por favor ingresa un email válido"
	MsgRegisterMissingFields = "Por favor completá todos los campos"
	MsgRegisterInvalidEmail  = "Ingresá un email válido"
	MsgPasswordMismatch      = "Las contraseñas no coinciden"
	MsgPasswordRules         = "La contraseña debe cumplir con todos los requisitos"
)

const (
	passwordMinLength = 8
	passwordSymbols   = "@$!%*?&"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("plainemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return CheckPassword(fl.Field().String()).Satisfied()
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return shared.Role(fl.Field().String()).Valid()
	})
	return v
}

// LoginForm is the input of the login screen.
type LoginForm struct {
	Email    string `validate:"required,plainemail"`
	Password string `validate:"required"`
}

// RegisterForm is the input of the register screen.
type RegisterForm struct {
	Email           string      `validate:"required,plainemail"`
	Password        string      `validate:"required,strongpassword"`
	ConfirmPassword string      `validate:"eqfield=Password"`
	FirstName       string      `validate:"required"`
	LastName        string      `validate:"required"`
	Role            shared.Role `validate:"role"`
}

// RegistrationData converts the form into what the orchestrator takes.
func (f RegisterForm) RegistrationData() shared.RegistrationData {
	return shared.RegistrationData{
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Role:      f.Role,
	}
}

// PasswordRules reports which password requirements hold.
type PasswordRules struct {
	Length    bool
	Uppercase bool
	Lowercase bool
	Number    bool
	Symbol    bool
}

// Satisfied is true when every rule holds.
func (r PasswordRules) Satisfied() bool {
	return r.Length && r.Uppercase && r.Lowercase && r.Number && r.Symbol
}

// CheckPassword evaluates p against the password rules shown on the register screen.
func CheckPassword(p string) PasswordRules {
	rules := PasswordRules{Length: len([]rune(p)) >= passwordMinLength}
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			rules.Uppercase = true
		case r >= 'a' && r <= 'z':
			rules.Lowercase = true
		case r >= '0' && r <= '9':
			rules.Number = true
		case strings.ContainsRune(passwordSymbols, r):
			rules.Symbol = true
		}
	}
	return rules
}

// ValidateLogin checks f the way the login screen does before calling Login.
func ValidateLogin(f LoginForm) error {
	f.Email = strings.TrimSpace(f.Email)
	failed := failedTags(validate.Struct(f))
	switch {
	case failed == nil:
		return nil
	case failed["required"]:
		return newAuthError(KindValidation, MsgLoginMissingFields, nil)
	default:
		return newAuthError(KindValidation, MsgLoginInvalidEmail, nil)
	}
}

// ValidateRegister checks f the way the register screen does: missing
// fields first, then the confirmation, then password strength, then email.
func ValidateRegister(f RegisterForm) error {
	f.Email = strings.TrimSpace(f.Email)
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)

	failed := failedTags(validate.Struct(f))
	switch {
	case failed == nil:
		return nil
	case failed["required"]:
		return newAuthError(KindValidation, MsgRegisterMissingFields, nil)
	case failed["eqfield"]:
		return newAuthError(KindValidation, MsgPasswordMismatch, nil)
	case failed["strongpassword"]:
		return newAuthError(KindValidation, MsgPasswordRules, nil)
	case failed["plainemail"]:
		return newAuthError(KindValidation, MsgRegisterInvalidEmail, nil)
	default:
		return newAuthError(KindValidation, MsgInvalidRole, nil)
	}
}

// failedTags collects the failed validation tags; nil means the struct is valid.
func failedTags(err error) map[string]bool {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]bool{"invalid": true}
	}
	tags := make(map[string]bool, len(ve))
	for _, fe := range ve {
		tags[fe.Tag()] = true
	}
	return tags
}
