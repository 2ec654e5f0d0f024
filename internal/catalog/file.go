package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/swaptoon/swap-engine/internal/model"
)

// fileAsset is one asset entry in a catalog file. Rates are strings so
// they keep their exact decimal value.
type fileAsset struct {
	model.Asset `yaml:",inline"`
	Rate        string `yaml:"rate"`
}

type filePool struct {
	ID     string `yaml:"id"`
	AssetA string `yaml:"asset_a"`
	AssetB string `yaml:"asset_b"`
	APR    string `yaml:"apr"`
	TVL    string `yaml:"tvl"`
}

type filePoint struct {
	Day   string `yaml:"day"`
	Value string `yaml:"value"`
}

type file struct {
	Assets []fileAsset `yaml:"assets"`
	Pools  []filePool  `yaml:"pools"`
	Chart  []filePoint `yaml:"chart"`
}

// LoadFile reads a YAML catalog:
//
//	assets:
//	  - {id: bitcoin, symbol: BTC, name: Bitcoin, rate: "65000"}
//	pools:
//	  - {id: btc-usdc, asset_a: BTC, asset_b: USDC, apr: "12.5", tvl: "$4.2M"}
//	chart:
//	  - {day: Lun, value: "1200"}
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	assets := make([]model.Asset, 0, len(f.Assets))
	rates := make(map[string]decimal.Decimal, len(f.Assets))
	bySymbol := make(map[string]model.Asset, len(f.Assets))
	for _, fa := range f.Assets {
		r, err := decimal.NewFromString(fa.Rate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s rate %q", ErrInvalidRate, fa.Symbol, fa.Rate)
		}
		assets = append(assets, fa.Asset)
		rates[fa.Symbol] = r
		bySymbol[fa.Symbol] = fa.Asset
	}

	pools := make([]model.LiquidityPool, 0, len(f.Pools))
	for _, fp := range f.Pools {
		a, ok := bySymbol[fp.AssetA]
		if !ok {
			return nil, fmt.Errorf("pool %s: %w: %s", fp.ID, ErrUnknownAsset, fp.AssetA)
		}
		b, ok := bySymbol[fp.AssetB]
		if !ok {
			return nil, fmt.Errorf("pool %s: %w: %s", fp.ID, ErrUnknownAsset, fp.AssetB)
		}
		apr, err := decimal.NewFromString(fp.APR)
		if err != nil {
			return nil, fmt.Errorf("pool %s: invalid apr %q", fp.ID, fp.APR)
		}
		pools = append(pools, model.LiquidityPool{ID: fp.ID, AssetA: a, AssetB: b, APR: apr, TVL: fp.TVL})
	}

	chart := make([]model.DailyPoint, 0, len(f.Chart))
	for _, p := range f.Chart {
		v, err := decimal.NewFromString(p.Value)
		if err != nil {
			return nil, fmt.Errorf("chart %s: invalid value %q", p.Day, p.Value)
		}
		chart = append(chart, model.DailyPoint{Day: p.Day, Value: v})
	}

	return New(assets, rates, pools, chart)
}
