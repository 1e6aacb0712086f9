package identity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		want pkgerrors.Code
	}{
		{ErrInvalidCredentials, pkgerrors.CodeUnauthorized},
		{fmt.Errorf("wrapped: %w", ErrInvalidToken), pkgerrors.CodeUnauthorized},
		{ErrEmailExists, pkgerrors.CodeConflict},
		{ErrWeakPassword, pkgerrors.CodeValidation},
		{errors.New("connection reset"), pkgerrors.CodeDependency},
	}
	for _, tc := range cases {
		typed := pkgerrors.As(MapError(tc.err, "call provider"))
		if assert.NotNil(t, typed) {
			assert.Equal(t, tc.want, typed.Code(), tc.err.Error())
		}
	}
	assert.NoError(t, MapError(nil, "noop"))
	assert.Equal(t, pkgerrors.CategoryAdapter, pkgerrors.CategoryOf(MapError(errors.New("down"), "list users")))
}
