// Package session はセッションライフサイクルとCSRF防御を提供する。
//
// リクエストごとの制御フローは以下の順序で実行される:
//
//	Store.Restore → Monitor.Check → IdentityCache復元 → CSRF.Protect → ハンドラー
//
// グローバルなシングルトン状態は持たない。StoreとIdentityCacheは
// ミドルウェアがリクエストごとに生成し、コンテキスト経由で引き渡す。
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Config はセッションCookieとライフサイクルの設定。
type Config struct {
	CookieName   string
	CookiePath   string
	CookieDomain string
	CookieMaxAge int // 秒
	CookieSecure bool

	// IdleTimeout は無操作タイムアウト。これを超過して放置された
	// セッションは次のリクエストで破棄される。
	IdleTimeout time.Duration

	// RotateInterval はセッション識別子のローテーション間隔。
	RotateInterval time.Duration
}

// DefaultConfig はデフォルトのセッション設定を返す。
func DefaultConfig() Config {
	return Config{
		CookieName:     "taskdeck_session",
		CookiePath:     "/",
		CookieMaxAge:   3600,
		IdleTimeout:    30 * time.Minute,
		RotateInterval: 5 * time.Minute,
	}
}

// Store は1リクエストにおけるセッション状態への単一のアクセスポイント。
// セッションの確立、キーバリューアクセス、識別子ローテーション、破棄を担う。
//
// セッション識別子はCookieヘッダーからのみ読み取る。クエリ文字列や
// リクエストボディで渡された識別子は一切受け付けない。
type Store struct {
	backend  Backend
	config   Config
	w        http.ResponseWriter
	r        *http.Request
	identity *IdentityCache

	record   *Record
	created  bool
	modified bool
}

// NewStore はリクエストスコープのStoreを生成する。
// identityがnilの場合はデフォルトのIdentityCacheを生成する。
func NewStore(backend Backend, config Config, w http.ResponseWriter, r *http.Request, identity *IdentityCache) *Store {
	if identity == nil {
		identity = NewIdentityCache(nil)
	}
	return &Store{
		backend:  backend,
		config:   config,
		w:        w,
		r:        r,
		identity: identity,
	}
}

// Create はセッションを確立する。冪等であり、既にアクティブな場合は何もしない。
// Cookieが有効な既存レコードを指していればそれを読み込み、
// そうでなければ新しいレコードを生成してCookieを発行する。
// バックエンドの読み込み失敗はErrBackendUnavailableとして返す。
func (s *Store) Create(ctx context.Context) error {
	if s.record != nil {
		return nil
	}

	if cookie, err := s.r.Cookie(s.config.CookieName); err == nil && cookie.Value != "" {
		rec, err := s.backend.Load(ctx, cookie.Value)
		switch {
		case err == nil:
			s.record = rec
			return nil
		case errors.Is(err, ErrRecordNotFound):
			// 無効な識別子。新規レコードの生成へ進む。
		default:
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	id, err := NewToken()
	if err != nil {
		return err
	}

	s.record = &Record{
		ID:        id,
		Values:    make(map[string]string),
		CreatedAt: time.Now(),
	}
	s.created = true
	s.modified = true
	s.setCookie(id)
	return nil
}

// Restore はセッションを確立し（必要ならCreateを呼ぶ）、
// アイデンティティペイロードが存在すればIdentityCacheを復元する。
func (s *Store) Restore(ctx context.Context) error {
	if err := s.Create(ctx); err != nil {
		return err
	}
	if payload, ok := s.Get(identityKey); ok {
		s.identity.Restore(payload)
	}
	return nil
}

// IsActive はセッションが確立済みかどうかを返す。
func (s *Store) IsActive() bool {
	return s.record != nil
}

// WasCreated はこのリクエストでセッションが新規生成されたかどうかを返す。
func (s *Store) WasCreated() bool {
	return s.created
}

// ID はアクティブなセッションの識別子を返す。非アクティブ時は空文字列。
func (s *Store) ID() string {
	if s.record == nil {
		return ""
	}
	return s.record.ID
}

// Get はアクティブなレコードから値を取得する。
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.mustRecord().Values[key]
	return v, ok
}

// Set はアクティブなレコードに値を保存する。
func (s *Store) Set(key, value string) {
	s.mustRecord().Values[key] = value
	s.modified = true
}

// Has はキーが存在するかどうかを返す。
func (s *Store) Has(key string) bool {
	_, ok := s.mustRecord().Values[key]
	return ok
}

// Remove はキーを削除する。
func (s *Store) Remove(key string) {
	delete(s.mustRecord().Values, key)
	s.modified = true
}

// SetIdentity は認証フローが生成したアイデンティティペイロードを保存する。
// ペイロードはこのパッケージにとって不透明なシリアライズ済み文字列である。
func (s *Store) SetIdentity(payload string) {
	s.Set(identityKey, payload)
}

// Identity はこのリクエストのIdentityCacheを返す。
func (s *Store) Identity() *IdentityCache {
	return s.identity
}

// Regenerate は新しいセッション識別子を発行し、既存の全フィールドを
// 引き継ぐ。CSRFトークンはローテーションをまたいで維持される。
//
// 新レコードは1回のバックエンド書き込みで保存され、その後に旧レコードを
// （deleteOldの場合のみ）削除する。後続リクエストから「識別子は新しいが
// CSRFトークンが無い」状態が観測されることはない。
//
// deleteOld=falseの場合、旧レコードはバックエンドに残る。クライアントの
// 多重リクエスト（二重送信されたXHR等）がローテーション途中で無効化される
// のを避けるためで、残ったレコードはクリーンアップジョブが回収する。
func (s *Store) Regenerate(ctx context.Context, deleteOld bool) error {
	rec := s.mustRecord()

	newID, err := NewToken()
	if err != nil {
		return err
	}

	oldID := rec.ID
	rec.ID = newID

	if err := s.backend.Save(ctx, rec); err != nil {
		rec.ID = oldID
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if deleteOld {
		if err := s.backend.Delete(ctx, oldID); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	s.setCookie(newID)
	return nil
}

// Clear は格納済みのキーバリューをすべて削除するが、識別子は有効なまま残す。
// 再認証フローを強制せずにログアウトさせる場合に使用する。
// キャッシュ済みアイデンティティも破棄する。
func (s *Store) Clear() {
	rec := s.mustRecord()
	rec.Values = make(map[string]string)
	s.modified = true
	s.identity.Destroy()
}

// Destroy は全状態を破棄し、識別子を無効化し、キャッシュ済み
// アイデンティティを切り離す。冪等であり、2回呼んでも安全。
func (s *Store) Destroy(ctx context.Context) error {
	s.identity.Destroy()

	if s.record == nil {
		return nil
	}

	id := s.record.ID
	s.record = nil
	s.modified = false
	s.expireCookie()

	if err := s.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Save は変更済みのレコードをバックエンドへ書き出す。
// ミドルウェアがハンドラー完了後に1回呼び出す。未変更時は何もしない。
func (s *Store) Save(ctx context.Context) error {
	if s.record == nil || !s.modified {
		return nil
	}
	if err := s.backend.Save(ctx, s.record); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	s.modified = false
	return nil
}

// mustRecord はアクティブなレコードを返す。
// セッション未確立でのフィールドアクセスはプログラミングエラーのため
// panicで即座に失敗させる。呼び出し側は先にCreateまたはRestoreを呼ぶこと。
func (s *Store) mustRecord() *Record {
	if s.record == nil {
		panic("session: no active session (call Create or Restore first)")
	}
	return s.record
}

// setCookie はセッションCookieを発行する。
// HttpOnlyは常にtrue、SameSiteはStrict固定とする。
func (s *Store) setCookie(id string) {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    id,
		Path:     s.config.CookiePath,
		Domain:   s.config.CookieDomain,
		MaxAge:   s.config.CookieMaxAge,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// expireCookie はセッションCookieを失効させる。
func (s *Store) expireCookie() {
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.config.CookieName,
		Value:    "",
		Path:     s.config.CookiePath,
		Domain:   s.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
