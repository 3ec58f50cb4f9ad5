package shopapi

import (
	"github.com/shopspring/decimal"

	"github.com/hitoshi/storeman/internal/model"
)

// TokenPair はアクセストークンとリフレッシュトークンの組。
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult はログインレスポンスを表す。
// トークンの組とプロフィールフィールドが同一オブジェクトで返される。
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Profile      model.Profile
}

// NewUser はアカウント作成リクエストのペイロードを表す。
type NewUser struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Gender    string `json:"gender"`
}

// loginResponse はログインエンドポイントのワイヤーフォーマット。
type loginResponse struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender"`
	Image        string `json:"image"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// productJSON は商品エンドポイントのワイヤーフォーマット。
// APIのバージョンによりフィールド名が揺れる箇所（name/title、
// image/thumbnail）は両方を受けて変換時にフォールバックする。
type productJSON struct {
	ID                 int             `json:"id"`
	Name               string          `json:"name"`
	Title              string          `json:"title"`
	Price              decimal.Decimal `json:"price"`
	OldPrice           decimal.Decimal `json:"oldPrice"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Image              string          `json:"image"`
	Thumbnail          string          `json:"thumbnail"`
	HoverImage         string          `json:"hoverImage"`
	Images             []string        `json:"images"`
	Category           string          `json:"category"`
	Brand              string          `json:"brand"`
	Description        string          `json:"description"`
	IsNew              bool            `json:"isNew"`
	IsSale             bool            `json:"isSale"`
}

// productsResponse は商品一覧エンドポイントのワイヤーフォーマット。
type productsResponse struct {
	Products []productJSON `json:"products"`
	Total    int           `json:"total"`
}

// toProduct はワイヤーフォーマットをドメインモデルに変換する。
func (p productJSON) toProduct() model.Product {
	name := p.Name
	if name == "" {
		name = p.Title
	}

	image := p.Image
	if image == "" {
		image = p.Thumbnail
	}

	hover := p.HoverImage
	if hover == "" && len(p.Images) > 1 {
		hover = p.Images[1]
	}

	isSale := p.IsSale || p.DiscountPercentage.IsPositive()

	oldPrice := p.OldPrice
	if oldPrice.IsZero() && p.DiscountPercentage.IsPositive() {
		// 割引率のみが与えられた場合は現在価格を旧価格として扱う
		oldPrice = p.Price
	}

	return model.Product{
		ID:          p.ID,
		Name:        name,
		Price:       p.Price,
		OldPrice:    oldPrice,
		Image:       image,
		HoverImage:  hover,
		Category:    p.Category,
		Brand:       p.Brand,
		Description: p.Description,
		IsNew:       p.IsNew,
		IsSale:      isSale,
	}
}
