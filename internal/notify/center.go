// Package notify はユーザー向け通知（トースト）を提供する。
// ストアの操作結果や失敗理由を一時的な通知としてUI層に伝える。
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level は通知の種別を表す。
type Level string

const (
	// LevelSuccess は操作成功の通知。
	LevelSuccess Level = "success"
	// LevelError は失敗理由の通知。
	LevelError Level = "error"
)

// Notification はユーザーに表示する1件の通知を表す。
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notifier は通知の発行インターフェース。
// ストア層はこのインターフェースにのみ依存する。
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NotificationMetrics は通知発行の観測フック。
type NotificationMetrics interface {
	RecordNotification(level string)
}

// defaultCapacity は保持する通知の上限数。
const defaultCapacity = 50

// Center は直近の通知を保持するNotifier実装。
// UI層がAPIを通じて取り出す（取り出した通知は消える）。
// 上限を超えた場合は古い通知から破棄される。
type Center struct {
	mu        sync.Mutex
	pending   []Notification
	capacity  int
	collector NotificationMetrics // nilの場合は記録しない
}

// NewCenter は新しいCenterを生成する。
func NewCenter() *Center {
	return &Center{capacity: defaultCapacity}
}

// SetCollector は通知発行数の記録先を設定する。
func (c *Center) SetCollector(collector NotificationMetrics) {
	c.collector = collector
}

// Success は成功通知を発行する。
func (c *Center) Success(message string) {
	c.push(LevelSuccess, message)
}

// Error は失敗通知を発行する。
func (c *Center) Error(message string) {
	c.push(LevelError, message)
}

// Drain は未表示の通知をすべて取り出して返す。
// 取り出された通知はCenterから削除される。
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.pending
	c.pending = nil
	return out
}

// push は通知を追加する。上限を超えた場合は古いものから破棄する。
func (c *Center) push(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collector != nil {
		c.collector.RecordNotification(string(level))
	}

	c.pending = append(c.pending, Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(c.pending) > c.capacity {
		c.pending = c.pending[len(c.pending)-c.capacity:]
	}
}
