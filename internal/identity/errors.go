package identity

import (
	"errors"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

// MapError converts provider errors into API error codes. Anything the
// provider did not classify is an adapter failure.
func MapError(err error, action string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	case errors.Is(err, ErrInvalidToken):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid identity token")
	case errors.Is(err, ErrEmailExists):
		return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case errors.Is(err, ErrWeakPassword):
		return pkgerrors.New(pkgerrors.CodeValidation, "password too weak")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
}
