package auth

import (
	"errors"
	"fmt"
)

// Kind classifies an AuthError.
type Kind string

const (
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindDuplicateAccount      Kind = "duplicate_account"
	KindSignup                Kind = "signup_failed"
	KindUnverifiedEmail       Kind = "unverified_email"
	KindSyncFailure           Kind = "sync_failure"
	KindRoleResolutionFailure Kind = "role_resolution_failure"
	KindStoreFailure          Kind = "store_failure"
	KindConnection            Kind = "connection"
	KindInvalidState          Kind = "invalid_state"
	KindValidation            Kind = "validation"
)

// User-facing messages.
const (
	MsgLoginFailed      = "Error al iniciar sesión"
	MsgCheckCredentials = "Error al iniciar sesión. Verifica tus credenciales."
	MsgDuplicateManager = "Este correo ya está registrado. Iniciá sesión para registrar tu cafetería."
	MsgDuplicateClient  = "Este correo ya está registrado. Iniciá sesión."
	MsgSignupFailed     = "Ocurrió un error al registrarte."
	MsgConnection       = "Error de conexión. Verifica tu conexión a internet."
	MsgVerifyEmail      = "Error al iniciar sesión. Asegúrate de haber verificado tu email."
	MsgSyncFailed       = "Error al sincronizar usuario"
	MsgUserDataFailed   = "Error al obtener datos del usuario"
	MsgRoleFailed       = "Error al obtener rol del usuario"
	MsgStoreFailed      = "No se pudo guardar la sesión en este dispositivo."
	MsgAlreadySignedIn  = "Ya hay una sesión iniciada."
	MsgNothingToVerify  = "No hay un registro pendiente de verificación."
	MsgNotSignedIn      = "No hay una sesión iniciada."
	MsgUserMismatch     = "El usuario no coincide con la sesión actual."
	MsgInvalidRole      = "Rol inválido."
)

// AuthError is what every orchestrator operation returns on failure. Error()
// is the message to show the user; Err keeps the cause for logs.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Detail renders kind, message and cause for logging.
func (e *AuthError) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func newAuthError(kind Kind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of err, or "" if err is not an AuthError.
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
