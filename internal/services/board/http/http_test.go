package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	perr "hush/internal/platform/errors"
	phttp "hush/internal/platform/net/http"
	"hush/internal/services/board/domain"
)

type fakeEngine struct {
	feed    domain.Feed
	liked   bool
	lastOp  string
	lastID  string
	lastErr error
}

func (f *fakeEngine) Feed(_ context.Context, identity string, page int) (domain.Feed, error) {
	f.lastOp = "feed"
	f.lastID = identity
	return f.feed, f.lastErr
}

func (f *fakeEngine) Publish(_ context.Context, identity string, d domain.Draft) (domain.Whisper, error) {
	f.lastOp = "publish"
	f.lastID = identity
	if f.lastErr != nil {
		return domain.Whisper{}, f.lastErr
	}
	return domain.Whisper{ID: "w1", Text: d.Text, OwnerIdentity: identity}, nil
}

func (f *fakeEngine) DeleteOwn(_ context.Context, identity string) error {
	f.lastOp = "delete"
	f.lastID = identity
	return f.lastErr
}

func (f *fakeEngine) Like(_ context.Context, identity, whisperID string) (bool, error) {
	f.lastOp = "like " + whisperID
	f.lastID = identity
	return f.liked, f.lastErr
}

func (f *fakeEngine) Report(_ context.Context, identity, whisperID string) error {
	f.lastOp = "report " + whisperID
	f.lastID = identity
	return f.lastErr
}

func (f *fakeEngine) Reply(_ context.Context, identity, whisperID, text, imageData string) error {
	f.lastOp = "reply " + whisperID + " " + text
	f.lastID = identity
	return f.lastErr
}

func (f *fakeEngine) LikeReply(_ context.Context, identity, whisperID, replyID string) (bool, error) {
	f.lastOp = "likereply " + whisperID + " " + replyID
	f.lastID = identity
	return f.liked, f.lastErr
}

func (f *fakeEngine) MarkRead(_ context.Context, identity string) error {
	f.lastOp = "read"
	f.lastID = identity
	return f.lastErr
}

var _ domain.EnginePort = (*fakeEngine)(nil)

type fakeIdentity struct{ token string }

func (f fakeIdentity) GetOrCreateIdentity(context.Context) (string, error) { return f.token, nil }

func newTestRouter(eng *fakeEngine) *chi.Mux {
	mux := chi.NewRouter()
	Register(phttp.AdaptChi(mux), eng, fakeIdentity{token: "usr_issued"})
	return mux
}

func TestFeed_UsesIssuedIdentityWhenHeaderAbsent(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{feed: domain.Feed{Total: 0, CanPublish: true}}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/feed", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if eng.lastID != "usr_issued" {
		t.Fatalf("identity = %q", eng.lastID)
	}

	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Status != "ok" {
		t.Fatalf("envelope status = %q", env.Status)
	}
}

func TestFeed_BadPageParam(t *testing.T) {
	t.Parallel()

	mux := newTestRouter(&fakeEngine{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/feed?page=two", nil))

	if rec.Code != 422 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPublish_CreatedAndValidated(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	mux := newTestRouter(eng)

	body := strings.NewReader(`{"text":"hello there"}`)
	req := httptest.NewRequest("POST", "/whispers", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != 201 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if eng.lastOp != "publish" {
		t.Fatalf("op = %q", eng.lastOp)
	}

	// missing text never reaches the engine
	eng.lastOp = ""
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/whispers", strings.NewReader(`{}`)))
	if rec.Code != 400 {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.lastOp != "" {
		t.Fatalf("engine called on invalid input: %q", eng.lastOp)
	}
}

func TestPublish_GateMapsTo429(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{lastErr: perr.RateLimitedf("you already have a live whisper")}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/whispers", strings.NewReader(`{"text":"x"}`)))
	if rec.Code != 429 {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestLove_RoutesParamAndReturnsState(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{liked: true}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/whispers/w42/love", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if eng.lastOp != "like w42" {
		t.Fatalf("op = %q", eng.lastOp)
	}
	var env struct {
		Data struct {
			Loved bool `json:"loved"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.Loved {
		t.Fatal("loved flag lost")
	}
}

func TestReplyLove_RoutesBothParams(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/whispers/w1/replies/r9/love", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.lastOp != "likereply w1 r9" {
		t.Fatalf("op = %q", eng.lastOp)
	}
}

func TestDeleteMine_NoContent(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/whispers/mine", nil))
	if rec.Code != 204 {
		t.Fatalf("status = %d", rec.Code)
	}
	if eng.lastOp != "delete" {
		t.Fatalf("op = %q", eng.lastOp)
	}
}

func TestReport_NotFoundMapsTo404(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{lastErr: perr.NotFoundf("whisper w1 is gone")}
	mux := newTestRouter(eng)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/whispers/w1/report", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d", rec.Code)
	}
}
