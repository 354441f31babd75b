package session

import "time"

// 予約済みセッションキー。アプリケーションデータと同じキー空間に格納される。
const (
	// identityKey は認証フローが書き込むアイデンティティペイロードのキー。
	identityKey = "identity"
	// csrfTokenKey はCSRFトークンのキー。
	csrfTokenKey = "csrf_token"
)

// Record は1つのセッション識別子に紐づくサーバーサイド状態を表す。
// IDはセッションの生存期間中にローテーションされるが、Valuesの内容
// （CSRFトークンを含む）はローテーションをまたいで維持される。
type Record struct {
	ID string

	// Values はアイデンティティペイロード、CSRFトークン、および
	// 任意のアプリケーションデータを保持するキーバリュー集合。
	Values map[string]string

	// LastActivity は直近のリクエスト処理時刻。ゼロ値は
	// 「セッション生成後まだ一度も観測されていない」ことを意味する。
	LastActivity time.Time

	// LastRegenerate は直近の識別子ローテーション時刻。
	LastRegenerate time.Time

	CreatedAt time.Time
}

// clone はレコードのディープコピーを返す。
// バックエンド実装が内部状態と呼び出し元の間でマップを共有しないために使う。
func (r *Record) clone() *Record {
	values := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		values[k] = v
	}
	c := *r
	c.Values = values
	return &c
}
