package response_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linemk/commerce-core/internal/lib/api/response"
	"github.com/linemk/commerce-core/internal/lib/apperr"
)

func TestError_KnownKind(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	rr := httptest.NewRecorder()

	response.Error(rr, logger, apperr.Forbidden("admin only"))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	var body response.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, apperr.KindForbidden, body.Kind)
	assert.Equal(t, "admin only", body.Message)
}

func TestError_UnknownErrorDoesNotLeak(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	rr := httptest.NewRecorder()

	response.Error(rr, logger, errors.New("pq: deadlock detected"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "deadlock")
	assert.Contains(t, rr.Body.String(), `"kind":"internal"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, response.StatusFor(apperr.KindValidation))
	assert.Equal(t, http.StatusBadRequest, response.StatusFor(apperr.KindConflict))
	assert.Equal(t, http.StatusUnauthorized, response.StatusFor(apperr.KindUnauthenticated))
	assert.Equal(t, http.StatusNotFound, response.StatusFor(apperr.KindNotFound))
	assert.Equal(t, http.StatusInternalServerError, response.StatusFor(apperr.KindInternal))
}
