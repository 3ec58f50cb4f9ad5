// Package model はドメインモデルを定義する。
package model

// BasketLine はバスケット内の1明細を表す。
// 商品のスナップショットと数量の組。同一商品IDの明細は
// バスケット内に高々1つしか存在しない（重複時は数量を加算する）。
// 数量が0以下になった明細は保持せず削除する。
// JSON表現は商品フィールドに quantity を加えたフラットなレコード。
type BasketLine struct {
	Product
	Quantity int `json:"quantity"`
}

// Basket はバスケット全体のスナップショットを表す。
// 明細は挿入順を保持する（表示の安定性のため）。
type Basket struct {
	Lines []BasketLine `json:"lines"`
	Count int          `json:"count"`
	Total Money        `json:"total"`
}
