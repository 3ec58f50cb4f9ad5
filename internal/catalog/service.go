// Package catalog は商品カタログの取得・キャッシュ・絞り込みを提供する。
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/storeman/internal/model"
	"github.com/hitoshi/storeman/internal/security"
)

// defaultCacheTTL はキャッシュ済み商品リストのデフォルト有効期間。
const defaultCacheTTL = 5 * time.Minute

// ProductSource は商品の取得元のインターフェース。
// テスタビリティのためshopapi.Clientを抽象化する。
type ProductSource interface {
	Products(ctx context.Context) ([]model.Product, error)
	// Product はIDで1件取得する。存在しない場合は(nil, nil)を返す。
	Product(ctx context.Context, id int) (*model.Product, error)
}

// Filter は商品の絞り込み条件。ゼロ値は「条件なし」を意味し、
// 指定された条件はすべてAND結合で適用される。
type Filter struct {
	// Category はカテゴリの完全一致（大文字小文字を区別しない）。
	Category string
	// Query は商品名の部分一致（大文字小文字を区別しない）。
	Query string
	// Brand はブランドの完全一致（大文字小文字を区別しない）。
	Brand string
	// MaxPrice は価格の上限（境界値を含む）。nilなら無制限。
	MaxPrice *decimal.Decimal
	// OnlyNew は新着商品のみに絞る。
	OnlyNew bool
	// OnlySale はセール商品のみに絞る。
	OnlySale bool
}

// Service は商品カタログのサービス層。
// 外部ショップAPIから商品リストを遅延取得してメモリにキャッシュし、
// 商品説明HTMLをサニタイズした上で絞り込みクエリに応答する。
type Service struct {
	source    ProductSource
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	ttl       time.Duration

	mu        sync.Mutex
	products  []model.Product
	fetchedAt time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// cacheTTLが0以下の場合はデフォルト値を使用する。
func NewService(source ProductSource, sanitizer security.ContentSanitizerService, logger *slog.Logger, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Service{
		source:    source,
		sanitizer: sanitizer,
		logger:    logger,
		ttl:       cacheTTL,
	}
}

// load はキャッシュ済み商品リストを返す。キャッシュが空または期限切れの
// 場合のみ取得元へ問い合わせる。mutexで直列化されるため、同時リクエスト
// が重複した取得を行うことはない。取得失敗時に期限切れキャッシュが残って
// いればそれを返す（カタログが一時的に消えるより古い表示の方がよい）。
func (s *Service) load(ctx context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.products != nil && time.Since(s.fetchedAt) < s.ttl {
		return s.products, nil
	}

	fetched, err := s.source.Products(ctx)
	if err != nil {
		if s.products != nil {
			s.logger.Warn("catalog refresh failed, serving stale cache",
				slog.String("error", err.Error()),
				slog.Time("fetched_at", s.fetchedAt),
			)
			return s.products, nil
		}
		s.logger.Error("catalog fetch failed",
			slog.String("error", err.Error()),
		)
		return nil, model.NewCatalogUnavailableError()
	}

	for i := range fetched {
		fetched[i].Description = s.sanitizer.Sanitize(fetched[i].Description)
	}

	s.products = fetched
	s.fetchedAt = time.Now()

	s.logger.Info("catalog loaded",
		slog.Int("products", len(fetched)),
	)
	return s.products, nil
}

// List はフィルタ条件に一致する商品を取得順のまま返す。
// すべての条件はAND結合で、条件が空なら全商品を返す。
func (s *Service) List(ctx context.Context, filter Filter) ([]model.Product, error) {
	products, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]model.Product, 0, len(products))
	for _, p := range products {
		if filter.matches(p) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// Product はIDで商品を1件取得する。キャッシュ済みリストに存在しない場合は
// 取得元へ単品取得を問い合わせる（リストが全商品を含むとは限らないため）。
// それでも見つからない場合はエラーを返す。
func (s *Service) Product(ctx context.Context, id int) (*model.Product, error) {
	products, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range products {
		if products[i].ID == id {
			p := products[i]
			return &p, nil
		}
	}

	fetched, err := s.source.Product(ctx, id)
	if err != nil {
		s.logger.Warn("single product fetch failed",
			slog.Int("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewProductNotFoundError(id)
	}
	if fetched == nil {
		return nil, model.NewProductNotFoundError(id)
	}

	p := *fetched
	p.Description = s.sanitizer.Sanitize(p.Description)
	return &p, nil
}

// Categories はカタログに存在するカテゴリをソート済み・重複なしで返す。
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	products, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return uniqueSorted(products, func(p model.Product) string { return p.Category }), nil
}

// Brands はカタログに存在するブランドをソート済み・重複なしで返す。
// ブランド未設定の商品は含まれない。
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	products, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return uniqueSorted(products, func(p model.Product) string { return p.Brand }), nil
}

// Invalidate はキャッシュを破棄し、次回アクセス時の再取得を強制する。
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = nil
	s.fetchedAt = time.Time{}
}

func (f Filter) matches(p model.Product) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, p.Category) {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(f.Brand, p.Brand) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.OnlyNew && !p.IsNew {
		return false
	}
	if f.OnlySale && !p.IsSale {
		return false
	}
	return true
}

// uniqueSorted は商品リストから属性値を抽出し、空値を除いた
// ソート済み・重複なしのリストを返す。
func uniqueSorted(products []model.Product, key func(model.Product) string) []string {
	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, p := range products {
		v := key(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// String はログ出力用のフィルタ条件の文字列表現を返す。
func (f Filter) String() string {
	parts := make([]string, 0, 6)
	if f.Category != "" {
		parts = append(parts, "category="+f.Category)
	}
	if f.Query != "" {
		parts = append(parts, "query="+f.Query)
	}
	if f.Brand != "" {
		parts = append(parts, "brand="+f.Brand)
	}
	if f.MaxPrice != nil {
		parts = append(parts, "maxPrice="+f.MaxPrice.String())
	}
	if f.OnlyNew {
		parts = append(parts, "onlyNew")
	}
	if f.OnlySale {
		parts = append(parts, "onlySale")
	}
	if len(parts) == 0 {
		return "(none)"
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}
