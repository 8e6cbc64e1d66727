package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemUsesProblemJSONMediaType(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusConflict, "Conflict", "email address already registered")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/problems/conflict", body.Type)
	assert.Equal(t, "Conflict", body.Title)
	assert.Equal(t, http.StatusConflict, body.Status)
}

func TestProblemTypeSlugFromMultiWordTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	Problem(rec, http.StatusBadRequest, "Validation Failed", "email is required")

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/problems/validation-failed", body.Type)
}

func TestJSONSetsStatusAndContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"1"}`, rec.Body.String())
}
