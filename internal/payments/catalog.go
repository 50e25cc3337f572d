package payments

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type priceFile struct {
	ExtraPicks []packPrice `yaml:"extra_picks"`
	OGRank     int64       `yaml:"og_rank"`
}

type packPrice struct {
	Size  int   `yaml:"size"`
	Price int64 `yaml:"price"` // USDC base units (6 decimals)
}

var (
	priceOnce  sync.Once
	packPrices map[int]int64
	ogPrice    int64
)

func loadPrices() {
	priceOnce.Do(func() {
		var f priceFile
		if err := yaml.Unmarshal(pricesYAML, &f); err != nil {
			panic(fmt.Sprintf("embedded price table is invalid: %v", err))
		}
		packPrices = make(map[int]int64, len(f.ExtraPicks))
		for _, p := range f.ExtraPicks {
			packPrices[p.Size] = p.Price
		}
		ogPrice = f.OGRank
	})
}

// PriceFor returns the expected transfer amount in USDC base units for a
// purchase, or an error for an unknown kind/pack size.
func PriceFor(kind string, packSize int) (int64, error) {
	loadPrices()
	switch kind {
	case KindExtraPicks:
		price, ok := packPrices[packSize]
		if !ok {
			return 0, fmt.Errorf("no price for pack size %d", packSize)
		}
		return price, nil
	case KindOGRank:
		return ogPrice, nil
	default:
		return 0, fmt.Errorf("unknown purchase kind %q", kind)
	}
}

// ValidPackSizes returns the purchasable extra-pick pack sizes.
func ValidPackSizes() []int {
	loadPrices()
	sizes := make([]int, 0, len(packPrices))
	for size := range packPrices {
		sizes = append(sizes, size)
	}
	return sizes
}

// IsValidPackSize reports whether size is purchasable.
func IsValidPackSize(size int) bool {
	loadPrices()
	_, ok := packPrices[size]
	return ok
}
