package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "hush/internal/platform/errors"
)

// shared payload for many tests
type payload struct {
	Text string `json:"text" validate:"required,min=1,max=200"`
	Mood string `json:"mood" validate:"omitempty,max=16"`
}

func TestParseJSON_Success(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"psst","mood":"peace"}`))
	got, err := ParseJSON[payload](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Text != "psst" || got.Mood != "peace" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_EmptyBody_Disallow(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_EmptyBody_SafeMethodOK(t *testing.T) {
	req := httptest.NewRequest("DELETE", "/", http.NoBody)
	got, err := ParseJSON[payload](req)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got != (payload{}) {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"hi","boom":1}`))
	_, err := ParseJSON[payload](req) // DisallowUnknown default true
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error for unknown field, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_DisallowUnknownFalse_OK(t *testing.T) {
	opts := JSONOptions{DisallowUnknown: false}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"hi","extra":"ok"}`))
	got, err := ParseJSON[payload](req, opts)
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got.Text != "hi" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestParseJSON_ValidationError(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":""}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("expected validation error code, got %v (%v)", perr.CodeOf(err), err)
	}
	if e, ok := perr.As(err); !ok || e.Field() != "text" {
		t.Fatalf("expected field text on error, got %+v", err)
	}
}

func TestParseJSON_MaxBytes(t *testing.T) {
	opts := JSONOptions{MaxBytes: 4}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"text":"way too long"}`))
	_, err := ParseJSON[payload](req, opts)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error when body exceeds limit, got %v (%v)", perr.CodeOf(err), err)
	}
}
