package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/shota3227/ludi/pkg/errors"
)

type sendBody struct {
	PointType string `json:"point_type" validate:"required,point_type"`
	Points    int    `json:"points" validate:"gt=0"`
	Note      string `json:"note" validate:"omitempty,notblank"`
}

func decode(t *testing.T, body string) (sendBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest sendBody
	err := DecodeJSONBody(httptest.NewRecorder(), req, &dest)
	return dest, err
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	got, err := decode(t, `{"point_type":"thanks","points":3}`)
	require.NoError(t, err)
	assert.Equal(t, "thanks", got.PointType)
	assert.Equal(t, 3, got.Points)
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	_, err := decode(t, `{"point_type":"kudos","points":0,"note":"   "}`)
	details := detailsOf(t, err)
	assert.Equal(t, "must be thanks or goodjob", details["point_type"])
	assert.Equal(t, "must be greater than 0", details["points"])
	assert.Equal(t, "is required", details["note"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"point_type":"thanks","points":1,"extra":true}`,
		"trailing data": `{"point_type":"thanks","points":1} {"again":1}`,
		"wrong type":    `{"point_type":"thanks","points":"ten"}`,
		"empty":         ``,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decode(t, body)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
		})
	}
}

func TestDecodeJSONBodyEnforcesSizeLimit(t *testing.T) {
	big := `{"point_type":"thanks","points":1,"note":"` + strings.Repeat("x", MaxBodyBytes) + `"}`
	_, err := decode(t, big)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "request body too large", typed.Message())
}

func TestDecodeOptionalJSONBody(t *testing.T) {
	type storeBody struct {
		StoreID string `json:"store_id"`
	}
	tests := []struct {
		name    string
		body    string
		chunked bool
		present bool
		wantErr bool
	}{
		{name: "empty", body: ""},
		{name: "empty chunked", body: "", chunked: true},
		{name: "blank chunked", body: " \n", chunked: true},
		{name: "object", body: `{"store_id":"s1"}`, present: true},
		{name: "object chunked", body: `{"store_id":"s1"}`, chunked: true, present: true},
		{name: "malformed", body: `{"store_id":`, present: true, wantErr: true},
		{name: "unknown field", body: `{"store":"s1"}`, present: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.chunked {
				req.ContentLength = -1
			}
			var dest storeBody
			present, err := DecodeOptionalJSONBody(httptest.NewRecorder(), req, &dest)
			assert.Equal(t, tt.present, present)
			if tt.wantErr {
				detailsOf(t, err)
				return
			}
			require.NoError(t, err)
			if tt.present {
				assert.Equal(t, "s1", dest.StoreID)
			} else {
				assert.Empty(t, dest.StoreID)
			}
		})
	}
}
