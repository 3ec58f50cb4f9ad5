// Package model はドメインモデルを定義する。
package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money は金額と通貨単位の組を表す。
// 金額は浮動小数点誤差を避けるためdecimalで保持する。
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// NewMoney は指定された金額と通貨のMoneyを生成する。
func NewMoney(amount decimal.Decimal, unit currency.Unit) Money {
	return Money{Amount: amount, Currency: unit}
}

// USD は米ドル建てのMoneyを生成する。ショップAPIのカタログはUSD建て。
func USD(amount decimal.Decimal) Money {
	return Money{Amount: amount, Currency: currency.USD}
}

// moneyJSON はMoneyのJSON表現。金額は桁落ちを避けるため文字列で表す。
type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON はMoneyをJSONにエンコードする。
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{
		Amount:   m.Amount.String(),
		Currency: m.Currency.String(),
	})
}

// UnmarshalJSON はJSONからMoneyを復元する。
// 通貨コードがISO 4217として不正な場合はエラーを返す。
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw moneyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(raw.Amount)
	if err != nil {
		return fmt.Errorf("金額のパースに失敗しました: %w", err)
	}

	unit, err := currency.ParseISO(raw.Currency)
	if err != nil {
		return fmt.Errorf("通貨コードのパースに失敗しました: %w", err)
	}

	m.Amount = amount
	m.Currency = unit
	return nil
}
