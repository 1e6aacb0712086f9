package responses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
	"github.com/shota3227/ludi/pkg/logger"
	"github.com/shota3227/ludi/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body.Error
}

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]int{"points": 5})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"points":5}}`, w.Body.String())
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		status      int
		code        pkgerrors.Code
		category    pkgerrors.Category
		message     string
		wantDetails bool
	}{
		{
			name:        "validation keeps caller message and details",
			err:         pkgerrors.New(pkgerrors.CodeValidation, "daily allowance exceeded").WithDetails(map[string]int{"remaining": 2, "requested": 5}),
			status:      http.StatusBadRequest,
			code:        pkgerrors.CodeValidation,
			category:    pkgerrors.CategoryValidation,
			message:     "daily allowance exceeded",
			wantDetails: true,
		},
		{
			name:     "not found hides details",
			err:      pkgerrors.New(pkgerrors.CodeNotFound, "mission not found").WithDetails("ignored"),
			status:   http.StatusNotFound,
			code:     pkgerrors.CodeNotFound,
			category: pkgerrors.CategoryValidation,
			message:  "mission not found",
		},
		{
			name:     "untyped error becomes internal",
			err:      errors.New("pq: connection reset"),
			status:   http.StatusInternalServerError,
			code:     pkgerrors.CodeInternal,
			category: pkgerrors.CategoryAdapter,
			message:  "internal server error",
		},
		{
			name:     "dependency uses public message",
			err:      fmt.Errorf("check: %w", pkgerrors.New(pkgerrors.CodeDependency, "firebase list users: 503")),
			status:   http.StatusServiceUnavailable,
			code:     pkgerrors.CodeDependency,
			category: pkgerrors.CategoryAdapter,
			message:  "dependency unavailable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			got := decodeError(t, w)
			assert.Equal(t, string(tt.code), got.Code)
			assert.Equal(t, string(tt.category), got.Category)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.wantDetails, got.Details != nil)
		})
	}
}

func TestWriteErrorEchoesRequestID(t *testing.T) {
	w := httptest.NewRecorder()
	w.Header().Set(requestIDHeader, "req-42")
	WriteError(context.Background(), nil, w, pkgerrors.New(pkgerrors.CodeForbidden, "manager role required"))

	assert.Equal(t, "req-42", decodeError(t, w).RequestID)
}

func TestWriteErrorConsistencyKeepsDetails(t *testing.T) {
	w := httptest.NewRecorder()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	err := pkgerrors.New(pkgerrors.CodeConsistency, "provider account left behind").
		WithDetails(map[string]any{"step": "create_user", "auth_id": "abc"})
	WriteError(context.Background(), logg, w, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	got := decodeError(t, w)
	assert.Equal(t, string(pkgerrors.CodeConsistency), got.Code)
	assert.Equal(t, string(pkgerrors.CategoryConsistency), got.Category)
	assert.NotNil(t, got.Details, "operators need the orphaned account id")
	assert.Contains(t, buf.String(), `"step":"create_user"`)
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestWriteErrorLogsValidationAsWarning(t *testing.T) {
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	WriteError(context.Background(), logg, httptest.NewRecorder(), pkgerrors.New(pkgerrors.CodeValidation, "points must be positive"))

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "request.rejected")
}
