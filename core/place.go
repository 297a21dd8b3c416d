package core

import (
	"context"

	"github.com/shopspring/decimal"
)

type PlaceCategory uint8

const (
	PlaceCategoryUnknown PlaceCategory = iota
	PlaceCategoryMerchant
	PlaceCategoryATM
)

type PaymentType uint8

const (
	PaymentTypeUnknown PaymentType = iota
	PaymentTypeOnline
	PaymentTypePhysical
	PaymentTypeOnlineAndPhysical
)

type ATMType uint8

const (
	ATMTypeUnknown ATMType = iota
	ATMTypeBuy
	ATMTypeSell
	ATMTypeBuyAndSell
)

// Place is a merchant or ATM point of use. Coordinates are optional;
// online merchants carry none.
type Place struct {
	ID             uint64          `json:"id,omitempty"`
	Name           string          `json:"name"`
	Category       PlaceCategory   `json:"category"`
	Payment        PaymentType     `json:"payment,omitempty"`
	ATM            ATMType         `json:"atm,omitempty"`
	Address        string          `json:"address,omitempty"`
	Latitude       float64         `json:"latitude,omitempty"`
	Longitude      float64         `json:"longitude,omitempty"`
	HasLocation    bool            `json:"has_location"`
	SavingsPercent decimal.Decimal `json:"savings_percent"`
	LogoURL        string          `json:"logo_url,omitempty"`
	Website        string          `json:"website,omitempty"`
}

// Bounds is a latitude/longitude box used to narrow a place query to
// the visible map region.
type Bounds struct {
	NorthEastLat float64 `json:"ne_lat"`
	NorthEastLng float64 `json:"ne_lng"`
	SouthWestLat float64 `json:"sw_lat"`
	SouthWestLng float64 `json:"sw_lng"`
}

func (b Bounds) Zero() bool {
	return b == Bounds{}
}

type PlaceQuery struct {
	Category PlaceCategory
	Payment  PaymentType
	ATM      ATMType
	Search   string
	Bounds   Bounds
	Offset   int
	Limit    int
}

type PlaceStore interface {
	Save(ctx context.Context, places []*Place) error
	List(ctx context.Context, query PlaceQuery) ([]*Place, bool, error)
	CountWithin(ctx context.Context, center Location, radiusMeters float64, category PlaceCategory) (int, error)
}
