// Package model はドメインモデルを定義する。
package model

import "github.com/shopspring/decimal"

// Product はストアで販売される商品を表す。
// 商品データは外部ショップAPIから取得されるものであり、
// ストア側からは読み取り専用として扱う（編集しない）。
type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	OldPrice    decimal.Decimal `json:"oldPrice,omitempty"`
	Image       string          `json:"image,omitempty"`
	HoverImage  string          `json:"hoverImage,omitempty"`
	Category    string          `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	Description string          `json:"description,omitempty"`
	IsNew       bool            `json:"isNew,omitempty"`
	IsSale      bool            `json:"isSale,omitempty"`
}
