package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulsecli/internal/pulse"
	"pulsecli/internal/table"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func TestErrorToProblem_DomainErrors(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "unreadable file",
			err:        fmt.Errorf("loading input: %w", table.ErrUnreadableFile),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeUnreadableFile,
		},
		{
			name:       "unknown column",
			err:        fmt.Errorf("channel %q: %w", "Chn 9", table.ErrNoSuchColumn),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeColumnNotFound,
		},
		{
			name:       "non-numeric column",
			err:        fmt.Errorf("channel %q: %w", "Notes", table.ErrNotNumeric),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeColumnNotNumeric,
		},
		{
			name:       "empty column",
			err:        pulse.ErrEmptyColumn,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeEmptyColumn,
		},
		{
			name:       "NaN threshold",
			err:        pulse.ErrBadThreshold,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeBadThreshold,
		},
		{
			name:       "timeout",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
			problem := h.ErrorToProblem(tt.err, r)

			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/analyze", problem.Instance)
		})
	}
}

func TestErrorToProblem_APIError(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodGet, "/api/runs/xyz", nil)

	problem := h.ErrorToProblem(ErrRunNotFound, r)

	assert.Equal(t, http.StatusNotFound, problem.Status)
	assert.Equal(t, TypeRunNotFound, problem.Type)
	assert.Equal(t, "RUN_NOT_FOUND", problem.Extensions["error_code"])
}

func TestErrorToProblem_AppError(t *testing.T) {
	h := newTestHandler()
	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)

	problem := h.ErrorToProblem(NewParsingError("bad sheet layout", nil), r)

	assert.Equal(t, http.StatusUnprocessableEntity, problem.Status)
	assert.Equal(t, TypeUnreadableFile, problem.Type)
}

func TestHandleError_RendersProblemJSON(t *testing.T) {
	h := newTestHandler()

	r := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	w := httptest.NewRecorder()

	h.HandleError(w, r, fmt.Errorf("open report: %w", table.ErrUnreadableFile))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeUnreadableFile, body["type"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), body["status"])
	assert.Contains(t, body, "trace_id")
}

func TestHandlePanic(t *testing.T) {
	h := newTestHandler()

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	h.HandlePanic(w, r, "boom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
	// Stack details stay out of responses unless explicitly enabled.
	assert.NotContains(t, body, "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	r := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.NotFound(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)

	r = httptest.NewRequest(http.MethodDelete, "/api/health", nil)
	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
