package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// validKey はストレージキーとして許可される文字パターン。
// キーはそのままファイル名になるため、パス区切り文字等を含めない。
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// FileStore はキーごとに1つのJSONファイルとして値を保存するStore実装。
// 書き込みは一時ファイルへの書き込み後にリネームすることで、
// プロセス中断時に破損したblobが残らないようにする。
type FileStore struct {
	mu  sync.Mutex
	dir string
}

// NewFileStore は指定ディレクトリ配下に保存するFileStoreを生成する。
// ディレクトリが存在しない場合は作成する。
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ストレージディレクトリの作成に失敗しました: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get は指定キーの値を取得する。存在しない場合はErrKeyNotFoundを返す。
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("ストレージの読み取りに失敗しました: %w", err)
	}
	return data, nil
}

// Set は指定キーに値を保存する。
// 一時ファイルに書き込んだ後リネームすることで書き込みの原子性を保つ。
func (s *FileStore) Set(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗しました: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ストレージの書き込みに失敗しました: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗しました: %w", err)
	}

	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ストレージの置き換えに失敗しました: %w", err)
	}
	return nil
}

// Remove は指定キーのエントリを削除する。存在しないキーはエラーにしない。
func (s *FileStore) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ストレージの削除に失敗しました: %w", err)
	}
	return nil
}

// path はキーに対応するファイルパスを返す。
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// checkKey はストレージキーの形式を検証する。
func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("不正なストレージキーです: %q", key)
	}
	return nil
}
