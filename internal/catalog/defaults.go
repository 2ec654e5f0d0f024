package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/model"
)

var (
	bitcoin  = model.Asset{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", Icon: "https://cryptologos.cc/logos/bitcoin-btc-logo.png?v=026", Color: "#F7931A"}
	ethereum = model.Asset{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", Icon: "https://cryptologos.cc/logos/ethereum-eth-logo.png?v=026", Color: "#627EEA"}
	solana   = model.Asset{ID: "solana", Symbol: "SOL", Name: "Solana", Icon: "https://cryptologos.cc/logos/solana-sol-logo.png?v=026", Color: "#14F195"}
	usdc     = model.Asset{ID: "usdc", Symbol: "USDC", Name: "USD Coin", Icon: "https://cryptologos.cc/logos/usd-coin-usdc-logo.png?v=026", Color: "#2775CA"}
	dogecoin = model.Asset{ID: "dogecoin", Symbol: "DOGE", Name: "Dogecoin", Icon: "https://cryptologos.cc/logos/dogecoin-doge-logo.png?v=026", Color: "#C2A633"}
	pepe     = model.Asset{ID: "pepe", Symbol: "PEPE", Name: "Pepe", Icon: "https://cryptologos.cc/logos/pepe-pepe-logo.png?v=026", Color: "#4C9C2E"}
)

// Default returns the built-in catalog. Sessions start on BTC → USDC.
func Default() *Catalog {
	c, err := New(
		[]model.Asset{bitcoin, ethereum, solana, usdc, dogecoin, pepe},
		map[string]decimal.Decimal{
			"BTC":  decimal.NewFromInt(65000),
			"ETH":  decimal.NewFromInt(3500),
			"SOL":  decimal.NewFromInt(145),
			"USDC": decimal.NewFromInt(1),
			"DOGE": decimal.RequireFromString("0.12"),
			"PEPE": decimal.RequireFromString("0.000008"),
		},
		[]model.LiquidityPool{
			{ID: "btc-usdc", AssetA: bitcoin, AssetB: usdc, APR: decimal.RequireFromString("12.5"), TVL: "$4.2M"},
			{ID: "eth-usdc", AssetA: ethereum, AssetB: usdc, APR: decimal.RequireFromString("18.2"), TVL: "$2.8M"},
			{ID: "sol-usdc", AssetA: solana, AssetB: usdc, APR: decimal.RequireFromString("24.7"), TVL: "$1.1M"},
			{ID: "doge-pepe", AssetA: dogecoin, AssetB: pepe, APR: decimal.RequireFromString("69"), TVL: "$420K"},
		},
		[]model.DailyPoint{
			{Day: "Lun", Value: decimal.NewFromInt(1200)},
			{Day: "Mar", Value: decimal.NewFromInt(1250)},
			{Day: "Mié", Value: decimal.NewFromInt(1180)},
			{Day: "Jue", Value: decimal.NewFromInt(1320)},
			{Day: "Vie", Value: decimal.NewFromInt(1400)},
			{Day: "Sáb", Value: decimal.NewFromInt(1380)},
			{Day: "Dom", Value: decimal.NewFromInt(1450)},
		},
	)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}

// DefaultPair is the asset pair a new session starts on.
func DefaultPair() (source, target string) {
	return "BTC", "USDC"
}
