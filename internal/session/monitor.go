package session

import (
	"context"
	"time"
)

// Monitor は無操作タイムアウトの強制とセッション識別子の定期ローテーション
// を行う。Store.Restoreの後、リクエストごとに1回Checkを呼び出す。
//
// 状態遷移: 未確立 → アクティブ（Create/初回リクエスト）、
// アクティブ → 破棄（タイムアウト超過または明示的なDestroy）、
// アクティブ → アクティブ（ウィンドウ内のリクエストで更新、
// ローテーション間隔超過時は識別子のみ差し替え）。破棄は終端状態。
type Monitor struct {
	idleTimeout    time.Duration
	rotateInterval time.Duration

	// now はテストで差し替え可能な時刻取得関数。
	now func() time.Time
}

// NewMonitor はMonitorを生成する。
func NewMonitor(idleTimeout, rotateInterval time.Duration) *Monitor {
	return &Monitor{
		idleTimeout:    idleTimeout,
		rotateInterval: rotateInterval,
		now:            time.Now,
	}
}

// CheckResult はCheckの判定結果を表す。
type CheckResult struct {
	// Expired はタイムアウト超過によりセッションを破棄したことを示す。
	// リクエストは未認証として続行する。
	Expired bool
	// Rotated はセッション識別子をローテーションしたことを示す。
	Rotated bool
}

// Check はアクティブなセッションに対して期限切れ・更新・ローテーション
// のいずれかを実行する。
//
// タイムアウト境界は厳密な「超過」で判定する。無操作時間がタイムアウト
// ちょうどのセッションは有効のまま維持される。
func (m *Monitor) Check(ctx context.Context, store *Store) (CheckResult, error) {
	rec := store.mustRecord()
	now := m.now()

	// セッション生成後の初回観測ではタイムアウト判定を行わず、
	// 活動時刻の記録のみ行う。
	if rec.LastActivity.IsZero() {
		rec.LastActivity = now
		store.modified = true
		return CheckResult{}, nil
	}

	if now.Sub(rec.LastActivity) > m.idleTimeout {
		if err := store.Destroy(ctx); err != nil {
			return CheckResult{}, err
		}
		return CheckResult{Expired: true}, nil
	}

	rec.LastActivity = now
	store.modified = true

	if rec.LastRegenerate.IsZero() || now.Sub(rec.LastRegenerate) > m.rotateInterval {
		// 旧識別子は削除しない。飛行中の多重リクエストが
		// ローテーションの途中で401になるレースを避ける。
		if err := store.Regenerate(ctx, false); err != nil {
			return CheckResult{}, err
		}
		rec.LastRegenerate = now
		store.modified = true
		return CheckResult{Rotated: true}, nil
	}

	return CheckResult{}, nil
}
