package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrEmailInUse, "El correo ya está registrado."},
		{ErrInvalidCredentials, "Credenciales incorrectas."},
		{ErrUserNotFound, "Usuario no encontrado."},
		{ErrWrongPassword, "Contraseña incorrecta."},
		{ErrWeakPassword, "La contraseña es muy débil."},
		{fmt.Errorf("login: %w", ErrWrongPassword), "Contraseña incorrecta."},
		{errors.New("boom"), "Ocurrió un error al procesar tu solicitud."},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Message(c.err), c.err.Error())
	}
}

func TestGoogleMessage(t *testing.T) {
	assert.Equal(t, "Ventana de Google cerrada. Intenta de nuevo.", GoogleMessage(ClientError("auth/popup-closed-by-user")))
	assert.Equal(t, "Ventana emergente bloqueada. Permite las ventanas emergentes e intenta de nuevo.", GoogleMessage(ClientError("auth/popup-blocked")))
	assert.Equal(t, "Ocurrió un error al iniciar sesión con Google.", GoogleMessage(ClientError("auth/network-request-failed")))
	assert.Equal(t, "Ocurrió un error al iniciar sesión con Google.", GoogleMessage(ErrGoogleToken))
}
