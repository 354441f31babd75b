package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/taskdeck/internal/model"
)

// --- テストヘルパー ---

// newTestStore はRecorderと空リクエストでStoreを生成する。
func newTestStore(backend Backend) *Store {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	return NewStore(backend, DefaultConfig(), w, r, nil)
}

// newTestStoreWithCookie は既存セッションIDのCookie付きでStoreを生成する。
func newTestStoreWithCookie(backend Backend, sessionID string) (*Store, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: DefaultConfig().CookieName, Value: sessionID})
	return NewStore(backend, DefaultConfig(), w, r, nil), w
}

// failingBackend は全操作が失敗するBackend実装。
type failingBackend struct{}

func (f *failingBackend) Load(ctx context.Context, id string) (*Record, error) {
	return nil, errors.New("disk unwritable")
}
func (f *failingBackend) Save(ctx context.Context, record *Record) error {
	return errors.New("disk unwritable")
}
func (f *failingBackend) Delete(ctx context.Context, id string) error {
	return errors.New("disk unwritable")
}

// --- テスト ---

func TestStore_Create_EstablishesNewSession(t *testing.T) {
	backend := NewMemoryBackend()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	store := NewStore(backend, DefaultConfig(), w, r, nil)

	if store.IsActive() {
		t.Fatal("store should not be active before Create")
	}

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !store.IsActive() {
		t.Error("store should be active after Create")
	}
	if !store.WasCreated() {
		t.Error("WasCreated should be true for a fresh session")
	}
	if store.ID() == "" {
		t.Error("session ID should not be empty")
	}
}

func TestStore_Create_Idempotent(t *testing.T) {
	store := newTestStore(NewMemoryBackend())

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	id := store.ID()

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if store.ID() != id {
		t.Errorf("second Create changed session ID: got %s, want %s", store.ID(), id)
	}
}

func TestStore_Create_SetsCookieAttributes(t *testing.T) {
	backend := NewMemoryBackend()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	cfg := DefaultConfig()
	cfg.CookieSecure = true
	store := NewStore(backend, cfg, w, r, nil)

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookie count = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != cfg.CookieName {
		t.Errorf("cookie name = %s, want %s", c.Name, cfg.CookieName)
	}
	if !c.HttpOnly {
		t.Error("cookie must be HttpOnly")
	}
	if !c.Secure {
		t.Error("cookie must be Secure when configured")
	}
	if c.SameSite != http.SameSiteStrictMode {
		t.Errorf("cookie SameSite = %v, want Strict", c.SameSite)
	}
	if c.MaxAge != cfg.CookieMaxAge {
		t.Errorf("cookie MaxAge = %d, want %d", c.MaxAge, cfg.CookieMaxAge)
	}
}

func TestStore_Create_LoadsExistingRecord(t *testing.T) {
	backend := NewMemoryBackend()

	// 1リクエスト目: セッションを生成して値を保存
	first := newTestStore(backend)
	if err := first.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	first.Set("theme", "dark")
	if err := first.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2リクエスト目: 同じCookieで復元
	second, _ := newTestStoreWithCookie(backend, first.ID())
	if err := second.Create(context.Background()); err != nil {
		t.Fatalf("Create with cookie failed: %v", err)
	}

	if second.WasCreated() {
		t.Error("WasCreated should be false for a restored session")
	}
	if v, ok := second.Get("theme"); !ok || v != "dark" {
		t.Errorf("Get(theme) = %q, %v; want dark, true", v, ok)
	}
}

func TestStore_Create_UnknownCookieFallsBackToNewSession(t *testing.T) {
	backend := NewMemoryBackend()
	store, _ := newTestStoreWithCookie(backend, "deadbeef")

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !store.WasCreated() {
		t.Error("unknown session ID should result in a fresh session")
	}
	if store.ID() == "deadbeef" {
		t.Error("stale identifier must not be reused")
	}
}

func TestStore_Create_BackendFailureIsFatal(t *testing.T) {
	store, _ := newTestStoreWithCookie(&failingBackend{}, "abc123")

	err := store.Create(context.Background())
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("error = %v, want ErrBackendUnavailable", err)
	}
	if store.IsActive() {
		t.Error("store must not be active after backend failure")
	}
}

func TestStore_FieldAccessWithoutSession_Panics(t *testing.T) {
	store := newTestStore(NewMemoryBackend())

	defer func() {
		if r := recover(); r == nil {
			t.Error("Get without active session should panic")
		}
	}()
	store.Get("key")
}

func TestStore_KeyValueAccess(t *testing.T) {
	store := newTestStore(NewMemoryBackend())
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if store.Has("missing") {
		t.Error("Has(missing) = true, want false")
	}

	store.Set("locale", "ja")
	if v, ok := store.Get("locale"); !ok || v != "ja" {
		t.Errorf("Get(locale) = %q, %v; want ja, true", v, ok)
	}
	if !store.Has("locale") {
		t.Error("Has(locale) = false, want true")
	}

	store.Remove("locale")
	if store.Has("locale") {
		t.Error("Has(locale) after Remove = true, want false")
	}
}

func TestStore_Regenerate_PreservesAllValues(t *testing.T) {
	backend := NewMemoryBackend()
	store := newTestStore(backend)
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store.Set(csrfTokenKey, "token-before-rotation")
	store.Set("cart", "item-42")
	oldID := store.ID()

	if err := store.Regenerate(context.Background(), false); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	if store.ID() == oldID {
		t.Error("Regenerate must issue a new session ID")
	}
	if v, _ := store.Get(csrfTokenKey); v != "token-before-rotation" {
		t.Errorf("csrf token after rotation = %q, want token-before-rotation", v)
	}
	if v, _ := store.Get("cart"); v != "item-42" {
		t.Errorf("application value after rotation = %q, want item-42", v)
	}

	// 新レコードはRegenerate内で即座に保存されている。
	// 後続リクエストが新IDでロードしてもCSRFトークンが揃っていること。
	next, _ := newTestStoreWithCookie(backend, store.ID())
	if err := next.Create(context.Background()); err != nil {
		t.Fatalf("Create on rotated session failed: %v", err)
	}
	if v, _ := next.Get(csrfTokenKey); v != "token-before-rotation" {
		t.Errorf("csrf token visible to next request = %q, want token-before-rotation", v)
	}
}

func TestStore_Regenerate_DeleteOldRemovesOldRecord(t *testing.T) {
	backend := NewMemoryBackend()
	store := newTestStore(backend)
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	oldID := store.ID()

	if err := store.Regenerate(context.Background(), true); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	if _, err := backend.Load(context.Background(), oldID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("old record load error = %v, want ErrRecordNotFound", err)
	}
}

func TestStore_Regenerate_KeepOldRecordForInflightRequests(t *testing.T) {
	backend := NewMemoryBackend()
	store := newTestStore(backend)
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	oldID := store.ID()

	if err := store.Regenerate(context.Background(), false); err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}

	// deleteOld=falseでは旧レコードが残り、飛行中の多重リクエストが
	// 旧IDでまだアクセスできる。
	if _, err := backend.Load(context.Background(), oldID); err != nil {
		t.Errorf("old record should remain accessible: %v", err)
	}
}

func TestStore_Clear_KeepsIdentifierActive(t *testing.T) {
	store := newTestStore(NewMemoryBackend())
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.Set("key", "value")
	id := store.ID()

	store.Clear()

	if !store.IsActive() {
		t.Error("Clear must leave the session active")
	}
	if store.ID() != id {
		t.Error("Clear must not change the session ID")
	}
	if store.Has("key") {
		t.Error("Clear must remove all stored values")
	}
}

func TestStore_Destroy_Idempotent(t *testing.T) {
	backend := NewMemoryBackend()
	store := newTestStore(backend)
	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Save(context.Background()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	id := store.ID()

	if err := store.Destroy(context.Background()); err != nil {
		t.Fatalf("first Destroy failed: %v", err)
	}
	if store.IsActive() {
		t.Error("store must be inactive after Destroy")
	}
	if _, err := backend.Load(context.Background(), id); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("record load after Destroy = %v, want ErrRecordNotFound", err)
	}

	// 2回目の呼び出しも安全であること
	if err := store.Destroy(context.Background()); err != nil {
		t.Errorf("second Destroy returned error: %v", err)
	}
}

func TestStore_Destroy_SeversCachedIdentity(t *testing.T) {
	backend := NewMemoryBackend()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	identity := NewIdentityCache(nil)
	store := NewStore(backend, DefaultConfig(), w, r, identity)

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.SetIdentity(`{"user_id":"u1","email":"a@example.com","name":"A"}`)
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, ok := identity.Principal(); !ok {
		t.Fatal("identity should be populated before Destroy")
	}

	if err := store.Destroy(context.Background()); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if _, ok := identity.Principal(); ok {
		t.Error("identity must be severed by Destroy")
	}
}

func TestStore_Restore_RehydratesIdentityAtMostOnce(t *testing.T) {
	backend := NewMemoryBackend()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	decodeCalls := 0
	identity := NewIdentityCache(func(payload []byte) (*model.Principal, error) {
		decodeCalls++
		return decodeJSONPrincipal(payload)
	})
	store := NewStore(backend, DefaultConfig(), w, r, identity)

	if err := store.Create(context.Background()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	store.SetIdentity(`{"user_id":"u1","email":"a@example.com","name":"A"}`)

	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("first Restore failed: %v", err)
	}
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("second Restore failed: %v", err)
	}

	if decodeCalls != 1 {
		t.Errorf("decode calls = %d, want 1", decodeCalls)
	}
	p, ok := identity.Principal()
	if !ok {
		t.Fatal("principal should be populated")
	}
	if p.UserID != "u1" {
		t.Errorf("principal user ID = %s, want u1", p.UserID)
	}
}
