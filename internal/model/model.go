// Package model defines the core domain types shared across the swap engine.
// Rates, stakes and earnings use shopspring/decimal; swap amounts stay as the
// decimal strings the user typed and the calculator produced.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a tradable token from the static catalog.
type Asset struct {
	ID     string `json:"id" yaml:"id"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
	Icon   string `json:"icon" yaml:"icon"`   // image URL
	Color  string `json:"color" yaml:"color"` // hex, e.g. #F7931A
}

// Trade is an immutable record of a completed swap.
// Once created, these are never modified or deleted.
type Trade struct {
	ID           string    `json:"id"` // UUIDv7, sorts by creation time
	UserID       string    `json:"user_id"`
	SourceAsset  Asset     `json:"source_asset"`
	TargetAsset  Asset     `json:"target_asset"`
	SourceAmount string    `json:"source_amount"`
	TargetAmount string    `json:"target_amount"`
	Timestamp    time.Time `json:"timestamp"`
}

// LiquidityPool is a static staking pool between two assets.
type LiquidityPool struct {
	ID     string          `json:"id"`
	AssetA Asset           `json:"asset_a"`
	AssetB Asset           `json:"asset_b"`
	APR    decimal.Decimal `json:"apr"` // annual percentage rate, e.g. 12.5
	TVL    string          `json:"tvl"` // display only, e.g. "$4.2M"
}

// Position is a user's stake in one liquidity pool.
type Position struct {
	UserID       string          `json:"user_id"`
	PoolID       string          `json:"pool_id"`
	StakedAmount decimal.Decimal `json:"staked_amount"`
	Earnings     decimal.Decimal `json:"earnings"` // 0 at creation
	JoinedAt     time.Time       `json:"joined_at"`
}

// DailyPoint is one day of the mock portfolio performance chart.
type DailyPoint struct {
	Day   string          `json:"day"`
	Value decimal.Decimal `json:"value"`
}

// PositionView is a position joined with its pool and the estimated
// earnings shown on the profile page.
type PositionView struct {
	Position
	Pool          LiquidityPool   `json:"pool"`
	DailyEarnings decimal.Decimal `json:"daily_earnings"`
}

// Portfolio aggregates a user's trade history and pool positions.
type Portfolio struct {
	UserID    string          `json:"user_id"`
	Total     decimal.Decimal `json:"total"`     // last chart value
	WeekGain  decimal.Decimal `json:"week_gain"` // last - first chart value
	Chart     []DailyPoint    `json:"chart"`
	Trades    []Trade         `json:"trades"` // most recent first
	Positions []PositionView  `json:"positions"`
}
