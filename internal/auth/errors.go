package auth

import "errors"

var (
	ErrEmailInUse         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("wrong password")
	ErrWeakPassword       = errors.New("weak password")
	ErrPopupClosed        = errors.New("google popup closed by user")
	ErrPopupBlocked       = errors.New("google popup blocked")
	ErrGoogleToken        = errors.New("google id token rejected")
	ErrGoogleDisabled     = errors.New("google sign-in not configured")
)

const (
	msgGeneric       = "Ocurrió un error al procesar tu solicitud."
	msgGoogleGeneric = "Ocurrió un error al iniciar sesión con Google."
)

var messages = []struct {
	err error
	msg string
}{
	{ErrEmailInUse, "El correo ya está registrado."},
	{ErrInvalidCredentials, "Credenciales incorrectas."},
	{ErrUserNotFound, "Usuario no encontrado."},
	{ErrWrongPassword, "Contraseña incorrecta."},
	{ErrWeakPassword, "La contraseña es muy débil."},
	{ErrPopupClosed, "Ventana de Google cerrada. Intenta de nuevo."},
	{ErrPopupBlocked, "Ventana emergente bloqueada. Permite las ventanas emergentes e intenta de nuevo."},
}

func lookup(err error) (string, bool) {
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg, true
		}
	}
	return "", false
}

// Message is the operator facing text for err.
func Message(err error) string {
	if msg, ok := lookup(err); ok {
		return msg
	}
	return msgGeneric
}

// GoogleMessage is Message for the Google sign-in path.
func GoogleMessage(err error) string {
	if msg, ok := lookup(err); ok {
		return msg
	}
	return msgGoogleGeneric
}

// ClientError maps the error code reported by the browser's Google popup.
func ClientError(code string) error {
	switch code {
	case "auth/popup-closed-by-user", "auth/cancelled-popup-request", "popup_closed_by_user", "popup_closed":
		return ErrPopupClosed
	case "auth/popup-blocked", "popup_blocked", "popup_failed_to_open":
		return ErrPopupBlocked
	default:
		return errors.New("google sign-in failed: " + code)
	}
}
