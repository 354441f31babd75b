package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/taskdeck/internal/session"
)

// newProtectedChain はセッション+CSRFミドルウェアを適用したハンドラーを組み立てる。
func newProtectedChain(collector *countingCollector) (http.Handler, http.Handler) {
	backend := session.NewMemoryBackend()
	monitor := session.NewMonitor(30*time.Minute, 5*time.Minute)
	sessionMW := NewSessionMiddleware(backend, testSessionConfig(), monitor, collector)
	csrfMW := NewCSRFMiddleware(collector)

	// CSRFトークンを発行するエンドポイント
	tokenHandler := sessionMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store, _ := SessionFromContext(r.Context())
		token, err := session.NewCSRF(store).Generate()
		if err != nil {
			WriteInternalServerError(w)
			return
		}
		w.Write([]byte(token))
	}))

	// 保護された状態変更エンドポイント
	protected := sessionMW(csrfMW(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})))

	return tokenHandler, protected
}

func TestCSRFMiddleware_PostWithoutToken_Returns403(t *testing.T) {
	collector := &countingCollector{}
	tokenHandler, protected := newProtectedChain(collector)

	// セッションを確立する
	req1 := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w1 := httptest.NewRecorder()
	tokenHandler.ServeHTTP(w1, req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	for _, c := range w1.Result().Cookies() {
		req2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	protected.ServeHTTP(w2, req2)

	if w2.Result().StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", w2.Result().StatusCode, http.StatusForbidden)
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w2.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != "CSRF_REJECTED" {
		t.Errorf("error code = %v, want CSRF_REJECTED", body.Code)
	}
	if collector.csrf != 1 {
		t.Errorf("csrf rejected count = %d, want 1", collector.csrf)
	}
}

func TestCSRFMiddleware_PostWithValidToken_Succeeds(t *testing.T) {
	collector := &countingCollector{}
	tokenHandler, protected := newProtectedChain(collector)

	req1 := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w1 := httptest.NewRecorder()
	tokenHandler.ServeHTTP(w1, req1)
	token := w1.Body.String()

	req2 := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	req2.Header.Set(session.HeaderName, token)
	for _, c := range w1.Result().Cookies() {
		req2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	protected.ServeHTTP(w2, req2)

	if w2.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", w2.Result().StatusCode, http.StatusOK, w2.Body.String())
	}
	if w2.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", w2.Body.String())
	}
}

func TestCSRFMiddleware_PostWithWrongToken_Returns403(t *testing.T) {
	collector := &countingCollector{}
	tokenHandler, protected := newProtectedChain(collector)

	req1 := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w1 := httptest.NewRecorder()
	tokenHandler.ServeHTTP(w1, req1)

	req2 := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	req2.Header.Set(session.HeaderName, "totally-wrong-token")
	for _, c := range w1.Result().Cookies() {
		req2.AddCookie(c)
	}
	w2 := httptest.NewRecorder()
	protected.ServeHTTP(w2, req2)

	if w2.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w2.Result().StatusCode, http.StatusForbidden)
	}
}

func TestCSRFMiddleware_GetRequest_NotChecked(t *testing.T) {
	collector := &countingCollector{}
	_, protected := newProtectedChain(collector)

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestCSRFMiddleware_AllMutatingMethodsChecked(t *testing.T) {
	collector := &countingCollector{}
	_, protected := newProtectedChain(collector)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/projects", nil)
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusForbidden {
			t.Errorf("%s: status = %d, want %d", method, w.Result().StatusCode, http.StatusForbidden)
		}
	}
}
