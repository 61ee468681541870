package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"werss-client/internal/domain/entity"
	"werss-client/internal/resilience/retry"
)

func TestDecodeEnvelope_Success(t *testing.T) {
	body := []byte(`{"code":0,"message":"success","data":{"list":[{"id":"a1","title":"t","publish_time":1700000000}],"total":7}}`)

	var out entity.ListResult[entity.Article]
	err := decodeEnvelope(http.StatusOK, http.Header{}, body, &out)

	require.NoError(t, err)
	want := entity.ListResult[entity.Article]{
		Items: []entity.Article{{ID: "a1", Title: "t", PublishTime: 1700000000}},
		Total: 7,
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("decoded list mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeEnvelope_NullDataAndNilOut(t *testing.T) {
	assert.NoError(t, decodeEnvelope(http.StatusOK, http.Header{}, []byte(`{"code":0,"data":null}`), &entity.Article{}))
	assert.NoError(t, decodeEnvelope(http.StatusOK, http.Header{}, []byte(`{"code":0,"data":{"x":1}}`), nil))
	assert.NoError(t, decodeEnvelope(http.StatusNoContent, http.Header{}, nil, nil))
}

func TestDecodeEnvelope_UnwrappedBody(t *testing.T) {
	var out entity.Tag
	err := decodeEnvelope(http.StatusOK, http.Header{}, []byte(`{"id":"t1","name":"tech","status":1}`), &out)

	require.NoError(t, err)
	assert.Equal(t, "tech", out.Name)
}

func TestDecodeEnvelope_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode int
		wantMsg  string
		wantIs   error
	}{
		{
			name:     "detail object with not found code",
			status:   http.StatusNotFound,
			body:     `{"detail":{"code":40401,"message":"article does not exist"}}`,
			wantCode: 40401,
			wantMsg:  "article does not exist",
			wantIs:   ErrNotFound,
		},
		{
			name:     "not found code behind a 201",
			status:   http.StatusCreated,
			body:     `{"detail":{"code":40401,"message":"subscription does not exist"}}`,
			wantCode: 40401,
			wantMsg:  "subscription does not exist",
			wantIs:   ErrNotFound,
		},
		{
			name:     "task not found",
			status:   http.StatusNotFound,
			body:     `{"detail":{"code":40404,"message":"task does not exist"}}`,
			wantCode: 40404,
			wantMsg:  "task does not exist",
			wantIs:   ErrNotFound,
		},
		{
			name:     "business error in a 200 envelope",
			status:   http.StatusOK,
			body:     `{"code":40402,"message":"too frequent","data":{"time_span":3}}`,
			wantCode: 40402,
			wantMsg:  "too frequent",
		},
		{
			name:    "detail string",
			status:  http.StatusUnauthorized,
			body:    `{"detail":"Not authenticated"}`,
			wantMsg: "Not authenticated",
			wantIs:  ErrUnauthorized,
		},
		{
			name:    "validation list",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail":[{"loc":["query","limit"],"msg":"ensure this value is less than or equal to 100","type":"value_error"}]}`,
			wantMsg: "ensure this value is less than or equal to 100",
		},
		{
			name:    "non JSON gateway error",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantMsg: "<html>bad gateway</html>",
		},
		{
			name:    "empty error body",
			status:  http.StatusServiceUnavailable,
			body:    ``,
			wantMsg: "Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeEnvelope(tt.status, http.Header{}, []byte(tt.body), &entity.Article{})

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "want *APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
		})
	}
}

func TestDecodeEnvelope_MalformedSuccess(t *testing.T) {
	err := decodeEnvelope(http.StatusOK, http.Header{}, []byte(`{"code":0,"data":`), &entity.Article{})

	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestAPIError_ExposesRetryClassification(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "3")
	err := newAPIError(http.StatusTooManyRequests, 0, "slow down", h)

	var httpErr *retry.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, 3*time.Second, httpErr.RetryAfter)
	assert.True(t, retry.IsRetryable(err))
	assert.False(t, IsClientError(newAPIError(http.StatusBadGateway, 0, "", http.Header{})))
	assert.True(t, IsClientError(err))
}

func TestAPIError_Error(t *testing.T) {
	assert.Equal(t, "api error: status 404 code 40401: gone", (&APIError{Status: 404, Code: 40401, Message: "gone"}).Error())
	assert.Equal(t, "api error: status 500: boom", (&APIError{Status: 500, Message: "boom"}).Error())
}
