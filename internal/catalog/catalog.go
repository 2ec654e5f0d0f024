// Package catalog holds the static session data: the asset catalog, the USD
// rate table, the liquidity pool catalog and the mock performance chart.
// A catalog is loaded once at process start and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/model"
)

var (
	ErrUnknownAsset = errors.New("catalog: unknown asset")
	ErrUnknownPool  = errors.New("catalog: unknown pool")
	ErrInvalidRate  = errors.New("catalog: rate must be positive")
)

// Catalog is the immutable reference data for a process.
type Catalog struct {
	assets []model.Asset
	rates  map[string]decimal.Decimal // symbol → USD unit price
	pools  []model.LiquidityPool
	chart  []model.DailyPoint
}

// New builds a catalog and validates it: every asset needs a positive rate,
// and every pool must reference catalog assets and be named after them.
func New(assets []model.Asset, rates map[string]decimal.Decimal, pools []model.LiquidityPool, chart []model.DailyPoint) (*Catalog, error) {
	c := &Catalog{
		assets: append([]model.Asset(nil), assets...),
		rates:  make(map[string]decimal.Decimal, len(rates)),
		pools:  append([]model.LiquidityPool(nil), pools...),
		chart:  append([]model.DailyPoint(nil), chart...),
	}
	for sym, r := range rates {
		c.rates[strings.ToUpper(sym)] = r
	}

	for _, a := range c.assets {
		r, ok := c.rates[a.Symbol]
		if !ok {
			return nil, fmt.Errorf("%w: no rate for %s", ErrInvalidRate, a.Symbol)
		}
		if !r.IsPositive() {
			return nil, fmt.Errorf("%w: %s=%s", ErrInvalidRate, a.Symbol, r)
		}
	}
	for _, p := range c.pools {
		if _, err := ParsePoolID(p.ID); err != nil {
			return nil, err
		}
		if _, err := c.Asset(p.AssetA.Symbol); err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.ID, err)
		}
		if _, err := c.Asset(p.AssetB.Symbol); err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.ID, err)
		}
		if want := PoolID(p.AssetA.Symbol, p.AssetB.Symbol); p.ID != want {
			return nil, fmt.Errorf("%w: %q does not match its assets (want %q)", ErrInvalidPoolID, p.ID, want)
		}
	}
	return c, nil
}

// Assets returns the asset catalog in display order.
func (c *Catalog) Assets() []model.Asset {
	return append([]model.Asset(nil), c.assets...)
}

// Asset looks up an asset by symbol, case-insensitively.
func (c *Catalog) Asset(symbol string) (model.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for _, a := range c.assets {
		if a.Symbol == symbol {
			return a, nil
		}
	}
	return model.Asset{}, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
}

// Rate returns the USD unit price for a symbol.
func (c *Catalog) Rate(symbol string) (decimal.Decimal, error) {
	r, ok := c.rates[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return r, nil
}

// Rates returns a copy of the rate table.
func (c *Catalog) Rates() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}

// Pools returns the pool catalog in display order.
func (c *Catalog) Pools() []model.LiquidityPool {
	return append([]model.LiquidityPool(nil), c.pools...)
}

// Pool looks up a pool by ID.
func (c *Catalog) Pool(id string) (model.LiquidityPool, error) {
	for _, p := range c.pools {
		if p.ID == id {
			return p, nil
		}
	}
	return model.LiquidityPool{}, fmt.Errorf("%w: %s", ErrUnknownPool, id)
}

// Chart returns the 7-day portfolio chart.
func (c *Catalog) Chart() []model.DailyPoint {
	return append([]model.DailyPoint(nil), c.chart...)
}
