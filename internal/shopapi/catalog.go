package shopapi

import (
	"context"
	"fmt"

	"github.com/hitoshi/storeman/internal/model"
)

// Products は商品一覧を取得する。
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var resp productsResponse
	if err := c.getJSON(ctx, "/products", &resp); err != nil {
		return nil, err
	}

	products := make([]model.Product, 0, len(resp.Products))
	for _, p := range resp.Products {
		products = append(products, p.toProduct())
	}
	return products, nil
}

// Product は指定IDの商品を取得する。見つからない場合はnilを返す。
func (c *Client) Product(ctx context.Context, id int) (*model.Product, error) {
	var raw productJSON
	err := c.getJSON(ctx, fmt.Sprintf("/products/%d", id), &raw)
	if err != nil {
		if isStatusError(err, 404) {
			return nil, nil
		}
		return nil, err
	}

	product := raw.toProduct()
	return &product, nil
}

