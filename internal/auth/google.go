package auth

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleVerifier checks the signature and audience of Google ID tokens
// against Google's published certificates.
type GoogleVerifier struct {
	ClientID string
	validate validateFunc
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	if clientID == "" {
		return nil
	}
	return &GoogleVerifier{ClientID: clientID, validate: idtoken.Validate}
}

func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleIdentity, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty token", ErrGoogleToken)
	}

	payload, err := v.validate(ctx, idToken, v.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGoogleToken, err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	name, _ := payload.Claims["name"].(string)

	switch {
	case payload.Subject == "" || email == "":
		return nil, fmt.Errorf("%w: missing subject or email", ErrGoogleToken)
	case !verified:
		return nil, fmt.Errorf("%w: email not verified", ErrGoogleToken)
	}

	return &GoogleIdentity{Subject: payload.Subject, Email: email, Name: name}, nil
}
