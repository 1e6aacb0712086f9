package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataTable(t *testing.T) {
	tests := []struct {
		code Code
		want Metadata
	}{
		{CodeValidation, Metadata{http.StatusBadRequest, false, "validation failed", true, CategoryValidation}},
		{CodeUnauthorized, Metadata{http.StatusUnauthorized, false, "authentication required", false, CategoryValidation}},
		{CodeForbidden, Metadata{http.StatusForbidden, false, "access denied", false, CategoryValidation}},
		{CodeNotFound, Metadata{http.StatusNotFound, false, "resource not found", false, CategoryValidation}},
		{CodeConflict, Metadata{http.StatusConflict, false, "conflict detected", true, CategoryValidation}},
		{CodeStateConflict, Metadata{http.StatusUnprocessableEntity, false, "state transition disallowed", true, CategoryValidation}},
		{CodeIdempotency, Metadata{http.StatusConflict, false, "idempotency key reused", true, CategoryValidation}},
		{CodeRateLimit, Metadata{http.StatusTooManyRequests, false, "rate limit exceeded", false, CategoryValidation}},
		{CodeInternal, Metadata{http.StatusInternalServerError, true, "internal server error", false, CategoryAdapter}},
		{CodeDependency, Metadata{http.StatusServiceUnavailable, true, "dependency unavailable", true, CategoryAdapter}},
		{CodeConsistency, Metadata{http.StatusInternalServerError, false, "partial write requires manual reconciliation", true, CategoryConsistency}},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, MetadataFor(tt.code))
		})
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	assert.Equal(t, MetadataFor(CodeInternal), MetadataFor("SOMETHING_UNKNOWN"))
}

func TestWithDetailsCopies(t *testing.T) {
	base := New(CodeValidation, "points must be positive")
	decorated := base.WithDetails(map[string]any{"field": "points"})

	assert.Nil(t, base.Details(), "receiver must stay undecorated")
	assert.Equal(t, map[string]any{"field": "points"}, decorated.Details())
	assert.Equal(t, base.Code(), decorated.Code())
	assert.Equal(t, "VALIDATION_ERROR: points must be positive", decorated.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("dial tcp: connection refused")
	wrapped := Wrap(CodeDependency, cause, "list provider users")

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, CodeDependency, wrapped.Code())
	assert.Equal(t, CodeConflict, Wrap(CodeConflict, nil, "no cause").Code())
}

func TestNilErrorAccessors(t *testing.T) {
	var e *Error
	assert.Equal(t, CodeInternal, e.Code())
	assert.Empty(t, e.Message())
	assert.Nil(t, e.Details())
	assert.Nil(t, e.WithDetails("x"))
	assert.Nil(t, As(nil))
}

func TestCategoryOf(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{New(CodeValidation, "points must be positive"), CategoryValidation},
		{New(CodeStateConflict, "mission completed"), CategoryValidation},
		{Wrap(CodeDependency, stdErrors.New("dial tcp"), "list users"), CategoryAdapter},
		{New(CodeInternal, "unexpected"), CategoryAdapter},
		{stdErrors.New("plain"), CategoryAdapter},
		{fmt.Errorf("create user: %w", New(CodeConsistency, "auth user orphaned")), CategoryConsistency},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CategoryOf(tc.err), "CategoryOf(%v)", tc.err)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load mission: %w", Newf(CodeNotFound, "mission %d not found", 7))

	assert.ErrorIs(t, err, New(CodeNotFound, ""))
	assert.NotErrorIs(t, err, New(CodeForbidden, ""))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "mission 7 not found", typed.Message())
	assert.Equal(t, CategoryValidation, typed.Category())
}
