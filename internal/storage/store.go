// Package storage はブラウザのローカルストレージに相当する
// キー・バリュー型のローカル永続化を提供する。
// 各ストア（バスケット、セッション）はここに不透明なJSON blobを保存する。
// バージョニングやマイグレーションの仕組みは持たないため、
// 読み手は不正なblobを「存在しない」ものとして扱う必要がある。
package storage

import "errors"

// ErrKeyNotFound は指定キーのエントリが存在しないことを表す。
var ErrKeyNotFound = errors.New("storage: key not found")

// Store はキー・バリュー型ローカルストレージのインターフェース。
type Store interface {
	// Get は指定キーの値を取得する。存在しない場合はErrKeyNotFoundを返す。
	Get(key string) ([]byte, error)

	// Set は指定キーに値を保存する。既存の値は上書きされる。
	Set(key string, value []byte) error

	// Remove は指定キーのエントリを削除する。
	// 存在しないキーの削除はエラーではない。
	Remove(key string) error
}
