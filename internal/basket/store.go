// Package basket はバスケット（カート）の状態コンテナを提供する。
// 訪問者が購入しようとしている商品の明細を保持し、
// すべての変更操作をローカルストレージに永続化する。
package basket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/storeman/internal/model"
	"github.com/hitoshi/storeman/internal/notify"
	"github.com/hitoshi/storeman/internal/storage"
)

// storageKey はバスケットの永続化に使用するストレージキー。
const storageKey = "cart"

// Store はバスケットの状態コンテナ。
// すべての変更はミューテックスで直列化され、変更は必ず
// クリティカルセクション内で読んだ直前状態に対する関数として
// 適用される（スナップショットの上書きによる更新消失を防ぐ）。
// 変更後の永続化は状態変更の後に順序付けられる。
type Store struct {
	mu       sync.Mutex
	lines    []model.BasketLine
	store    storage.Store
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewStore はバスケットストアを生成し、ストレージから状態を復元する。
// 復元は生成時に1回だけ行われ、以後の変更操作はすべて復元後の状態に
// 対して適用される。不正な永続化データはエラーにせず破棄する。
func NewStore(store storage.Store, notifier notify.Notifier, logger *slog.Logger) *Store {
	s := &Store{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
	s.hydrate()
	return s
}

// Add は商品をバスケットに追加する。
// 同一商品の明細が既に存在する場合は数量を1増やし、
// 存在しない場合は数量1の明細を末尾に追加する。常に成功する。
func (s *Store) Add(product model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ID == product.ID {
			s.lines[i].Quantity++
			s.persistLocked()
			s.notifier.Success("カートの数量を更新しました")
			return
		}
	}

	s.lines = append(s.lines, model.BasketLine{Product: product, Quantity: 1})
	s.persistLocked()
	s.notifier.Success("カートに追加しました")
}

// Remove は指定商品の明細を削除する。
// 該当する明細が無い場合は何もしない（エラーではない）。
func (s *Store) Remove(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(productID)
}

// SetQuantity は指定商品の数量を上書きする（加算ではない）。
// quantityが0以下の場合はRemoveと完全に同じ動作をする。
// 該当する明細が無い場合は状態を変更せず、何も報告しない。
func (s *Store) SetQuantity(productID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
		return
	}

	for i := range s.lines {
		if s.lines[i].ID == productID {
			s.lines[i].Quantity = quantity
			s.persistLocked()
			s.notifier.Success("カートの数量を更新しました")
			return
		}
	}
}

// Clear はバスケットを無条件に空にする。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	s.persistLocked()
	s.notifier.Success("カートを空にしました")
}

// Items はバスケットの明細を挿入順で返す。返り値はコピー。
func (s *Store) Items() []model.BasketLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.BasketLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Count は全明細の数量の合計を返す（明細の本数ではない）。
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return countOf(s.lines)
}

// Total は明細が保持する価格スナップショットに基づく合計金額を返す。
// 価格の再取得は行わない。
func (s *Store) Total() model.Money {
	s.mu.Lock()
	defer s.mu.Unlock()

	return totalOf(s.lines)
}

// Snapshot は明細・個数合計・金額合計をまとめて返す。
func (s *Store) Snapshot() model.Basket {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := make([]model.BasketLine, len(s.lines))
	copy(lines, s.lines)
	return model.Basket{
		Lines: lines,
		Count: countOf(s.lines),
		Total: totalOf(s.lines),
	}
}

// removeLocked は明細を削除して永続化する。ロック保持中に呼ぶこと。
func (s *Store) removeLocked(productID int) {
	for i := range s.lines {
		if s.lines[i].ID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persistLocked()
			s.notifier.Success("カートから削除しました")
			return
		}
	}
}

// persistLocked は現在の明細をストレージに書き込む。ロック保持中に呼ぶこと。
// バスケット操作自体は永続化の失敗で失敗しないため、
// 書き込みエラーはログに記録するのみとする。
func (s *Store) persistLocked() {
	data, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.Error("failed to encode basket",
			slog.String("error", err.Error()),
		)
		return
	}

	if err := s.store.Set(storageKey, data); err != nil {
		s.logger.Error("failed to persist basket",
			slog.String("error", err.Error()),
		)
	}
}

// hydrate はストレージからバスケットを復元する。
// 不正なデータはクラッシュさせず破棄し、空のバスケットで初期化する。
// 数量が1未満の明細は取り込まず、重複IDの明細は数量を合算して
// 「商品IDごとに高々1明細」の不変条件を回復する。
func (s *Store) hydrate() {
	data, err := s.store.Get(storageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to read persisted basket",
				slog.String("error", err.Error()),
			)
		}
		return
	}

	var raw []model.BasketLine
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("discarding malformed persisted basket",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, line := range raw {
		if line.Quantity < 1 {
			continue
		}
		merged := false
		for i := range s.lines {
			if s.lines[i].ID == line.ID {
				s.lines[i].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			s.lines = append(s.lines, line)
		}
	}
}

// countOf は明細の数量合計を計算する。
func countOf(lines []model.BasketLine) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

// totalOf は明細の価格スナップショットに基づく金額合計を計算する。
func totalOf(lines []model.BasketLine) model.Money {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return model.USD(sum)
}
