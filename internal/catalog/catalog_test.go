package catalog

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestParsePoolID_Valid(t *testing.T) {
	p, err := ParsePoolID("btc-usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Base != "BTC" {
		t.Errorf("expected base=BTC, got %s", p.Base)
	}
	if p.Quote != "USDC" {
		t.Errorf("expected quote=USDC, got %s", p.Quote)
	}
	if id := PoolID(p.Base, p.Quote); id != "btc-usdc" {
		t.Errorf("expected round trip to btc-usdc, got %s", id)
	}
}

func TestParsePoolID_InvalidFormat(t *testing.T) {
	tests := []string{
		"",
		"btc",
		"btc-",
		"-usdc",
		"BTC-USDC", // upper case
		"btc-usdc-eth",
		"btc_usdc",
		"btc-btc", // same asset
	}
	for _, id := range tests {
		_, err := ParsePoolID(id)
		if !errors.Is(err, ErrInvalidPoolID) {
			t.Errorf("expected ErrInvalidPoolID for %q, got %v", id, err)
		}
	}
}

func TestDefault_RatesAndAssets(t *testing.T) {
	c := Default()

	if len(c.Assets()) != 6 {
		t.Fatalf("expected 6 assets, got %d", len(c.Assets()))
	}
	btc, err := c.Rate("btc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !btc.Equal(d(65000)) {
		t.Errorf("expected BTC=65000, got %s", btc)
	}
	pepe, _ := c.Rate("PEPE")
	if !pepe.Equal(decimal.RequireFromString("0.000008")) {
		t.Errorf("expected PEPE=0.000008, got %s", pepe)
	}

	a, err := c.Asset("usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "USD Coin" {
		t.Errorf("expected USD Coin, got %s", a.Name)
	}
}

func TestDefault_UnknownLookups(t *testing.T) {
	c := Default()

	if _, err := c.Asset("XRP"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
	if _, err := c.Rate("XRP"); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
	if _, err := c.Pool("xrp-usdc"); !errors.Is(err, ErrUnknownPool) {
		t.Errorf("expected ErrUnknownPool, got %v", err)
	}
}

func TestDefault_PoolsReferenceAssets(t *testing.T) {
	c := Default()
	p, err := c.Pool("btc-usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AssetA.Symbol != "BTC" || p.AssetB.Symbol != "USDC" {
		t.Errorf("unexpected pool assets %s/%s", p.AssetA.Symbol, p.AssetB.Symbol)
	}
	if !p.APR.IsPositive() {
		t.Errorf("APR should be positive, got %s", p.APR)
	}
}

func TestDefault_RatesCopy(t *testing.T) {
	c := Default()
	rates := c.Rates()
	rates["BTC"] = d(1)

	btc, _ := c.Rate("BTC")
	if !btc.Equal(d(65000)) {
		t.Errorf("catalog rate mutated through copy: %s", btc)
	}
}

func TestNew_RejectsNonPositiveRate(t *testing.T) {
	_, err := New(Default().Assets(), map[string]decimal.Decimal{
		"BTC": d(0), "ETH": d(1), "SOL": d(1), "USDC": d(1), "DOGE": d(1), "PEPE": d(1),
	}, nil, nil)
	if !errors.Is(err, ErrInvalidRate) {
		t.Errorf("expected ErrInvalidRate, got %v", err)
	}
}

func TestParse_File(t *testing.T) {
	raw := []byte(`
assets:
  - {id: bitcoin, symbol: BTC, name: Bitcoin, color: "#F7931A", rate: "60000"}
  - {id: usdc, symbol: USDC, name: USD Coin, rate: "1"}
pools:
  - {id: btc-usdc, asset_a: BTC, asset_b: USDC, apr: "10", tvl: "$1M"}
chart:
  - {day: Lun, value: "100"}
  - {day: Mar, value: "110.5"}
`)
	c, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	btc, _ := c.Rate("BTC")
	if !btc.Equal(d(60000)) {
		t.Errorf("expected BTC=60000, got %s", btc)
	}
	a, _ := c.Asset("BTC")
	if a.Color != "#F7931A" {
		t.Errorf("expected inline asset fields to decode, got color %q", a.Color)
	}
	p, err := c.Pool("btc-usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.APR.Equal(d(10)) {
		t.Errorf("expected apr=10, got %s", p.APR)
	}
	if len(c.Chart()) != 2 || !c.Chart()[1].Value.Equal(d(110.5)) {
		t.Errorf("unexpected chart %+v", c.Chart())
	}
}

func TestParse_PoolWithUnknownAsset(t *testing.T) {
	raw := []byte(`
assets:
  - {id: usdc, symbol: USDC, name: USD Coin, rate: "1"}
pools:
  - {id: btc-usdc, asset_a: BTC, asset_b: USDC, apr: "10", tvl: "$1M"}
`)
	if _, err := Parse(raw); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("expected ErrUnknownAsset, got %v", err)
	}
}

func TestParse_PoolIDMustMatchAssets(t *testing.T) {
	raw := []byte(`
assets:
  - {id: bitcoin, symbol: BTC, name: Bitcoin, rate: "60000"}
  - {id: ethereum, symbol: ETH, name: Ethereum, rate: "3000"}
  - {id: usdc, symbol: USDC, name: USD Coin, rate: "1"}
pools:
  - {id: eth-usdc, asset_a: BTC, asset_b: USDC, apr: "10", tvl: "$1M"}
`)
	if _, err := Parse(raw); !errors.Is(err, ErrInvalidPoolID) {
		t.Errorf("expected ErrInvalidPoolID, got %v", err)
	}
}
