package presenter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/darmiel/localhub/internal/core"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("key: %w", core.ErrInvalidIdentifier), http.StatusBadRequest},
		{core.ErrMissingUserContext, http.StatusBadRequest},
		{core.ErrInvalidRequest, http.StatusBadRequest},
		{core.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: disk full", core.ErrWriteFailed), http.StatusInternalServerError},
		{&core.NotConnectedError{App: "strava"}, http.StatusForbidden},
		{&core.UpstreamError{Provider: "google", Op: "list", StatusCode: 500}, http.StatusBadGateway},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErr_NotConnectedCarriesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set(correlationHeader, "abc")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Err(rec, req, fmt.Errorf("listing: %w", &core.NotConnectedError{App: "calendar", Message: "Not connected to Google Calendar"}), "ignored")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	want := ErrorResponse{Error: "Not connected to Google Calendar", Code: "calendar_not_connected", CorrelationID: "abc"}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestErr_ShortMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	Err(rec, req, core.ErrNotFound, "Not found")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"error\":\"Not found\"}\n" {
		t.Errorf("body = %q", got)
	}
}
