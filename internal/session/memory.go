package session

import (
	"context"
	"sync"
)

// MemoryBackend はプロセス内メモリにレコードを保持するBackend実装。
// テストおよび単一プロセスの開発用途。mutexにより全操作を直列化するため、
// Backendが要求するセッション単位の直列化保証を満たす。
type MemoryBackend struct {
	mu      sync.Mutex
	records map[string]*Record
}

// NewMemoryBackend はMemoryBackendを生成する。
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		records: make(map[string]*Record),
	}
}

// Load は指定IDのレコードのコピーを返す。
func (b *MemoryBackend) Load(ctx context.Context, id string) (*Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.clone(), nil
}

// Save はレコードのコピーを保存する。
func (b *MemoryBackend) Save(ctx context.Context, record *Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[record.ID] = record.clone()
	return nil
}

// Delete は指定IDのレコードを削除する。存在しない場合も成功とする。
func (b *MemoryBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.records, id)
	return nil
}

// Len は保持中のレコード数を返す。テスト用。
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// compile-time interface check
var _ Backend = (*MemoryBackend)(nil)
