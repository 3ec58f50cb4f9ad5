package storage

import "sync"

// MemoryStore はメモリ上に値を保持するStore実装。
// 主にテストと、永続化を望まない起動モードで使用する。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get は指定キーの値を取得する。存在しない場合はErrKeyNotFoundを返す。
func (s *MemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	// 呼び出し元の変更から内部状態を守るためコピーを返す
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Set は指定キーに値を保存する。
func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]byte, len(value))
	copy(data, value)
	s.entries[key] = data
	return nil
}

// Remove は指定キーのエントリを削除する。存在しないキーはエラーにしない。
func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
