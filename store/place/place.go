package place

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/coraldao/vote-wallet/core"
	"github.com/pandodao/generic"
	"github.com/tsenart/nap"
	"github.com/zyedidia/generic/cache"
)

func New(db *nap.DB) core.PlaceStore {
	return &store{
		db:     db,
		counts: cache.New[string, int](256),
	}
}

type store struct {
	db *nap.DB

	// nearby counts repeat per map center, cached between refreshes
	counts *cache.Cache[string, int]
	mux    sync.Mutex
}

func save(ctx context.Context, tx *sql.Tx, place *core.Place) error {
	b := sq.Insert("places").
		Columns("name", "category", "payment", "atm", "address", "latitude", "longitude", "has_location", "savings_percent", "logo_url", "website").
		Values(place.Name, place.Category, place.Payment, place.ATM, place.Address, place.Latitude, place.Longitude, place.HasLocation, place.SavingsPercent, place.LogoURL, place.Website).
		Suffix("ON CONFLICT (name, address) DO UPDATE SET savings_percent = EXCLUDED.savings_percent, logo_url = EXCLUDED.logo_url, website = EXCLUDED.website").
		PlaceholderFormat(sq.Dollar)

	stmt, args := b.MustSql()
	_, err := tx.ExecContext(ctx, stmt, args...)
	return err
}

func (s *store) Save(ctx context.Context, places []*core.Place) error {
	tx := generic.Must(s.db.Begin())
	defer tx.Rollback()

	for _, place := range places {
		if err := save(ctx, tx, place); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// List returns one page plus a has-more flag, fetched by reading one
// row past the requested limit.
func (s *store) List(ctx context.Context, query core.PlaceQuery) ([]*core.Place, bool, error) {
	b := sq.Select(scanColumns...).
		From("places").
		OrderBy("name", "id").
		Offset(uint64(query.Offset)).
		Limit(uint64(query.Limit + 1)).
		PlaceholderFormat(sq.Dollar)

	if query.Category != core.PlaceCategoryUnknown {
		b = b.Where("category = ?", query.Category)
	}

	if query.Payment != core.PaymentTypeUnknown {
		b = b.Where("payment = ?", query.Payment)
	}

	if query.ATM != core.ATMTypeUnknown {
		b = b.Where("atm = ?", query.ATM)
	}

	if query.Search != "" {
		b = b.Where("name ILIKE ?", escapeLike(query.Search)+"%")
	}

	if !query.Bounds.Zero() {
		b = b.Where("has_location AND latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			query.Bounds.SouthWestLat, query.Bounds.NorthEastLat,
			query.Bounds.SouthWestLng, query.Bounds.NorthEastLng)
	}

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	var places []*core.Place
	for rows.Next() {
		var place core.Place
		if err := scanPlace(rows, &place); err != nil {
			return nil, false, err
		}

		places = append(places, &place)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(places) > query.Limit
	if hasMore {
		places = places[:query.Limit]
	}

	return places, hasMore, nil
}

// CountWithin counts places inside radiusMeters of center. The SQL pass
// narrows to the bounding box; the exact circle is applied here.
func (s *store) CountWithin(ctx context.Context, center core.Location, radiusMeters float64, category core.PlaceCategory) (int, error) {
	key := fmt.Sprintf("%d:%.3f:%.3f:%.0f", category, center.Latitude, center.Longitude, radiusMeters)

	s.mux.Lock()
	v, ok := s.counts.Get(key)
	s.mux.Unlock()

	if ok {
		return v, nil
	}

	const metersPerDegree = 111_320.0
	dLat := radiusMeters / metersPerDegree
	dLng := dLat
	if cos := math.Cos(center.Latitude * math.Pi / 180); cos > 0.01 {
		dLng = radiusMeters / (metersPerDegree * cos)
	}

	b := sq.Select("latitude", "longitude").
		From("places").
		Where("category = ? AND has_location", category).
		Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			center.Latitude-dLat, center.Latitude+dLat,
			center.Longitude-dLng, center.Longitude+dLng).
		PlaceholderFormat(sq.Dollar)

	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return 0, err
	}

	defer rows.Close()

	var count int
	for rows.Next() {
		var lat, lng float64
		if err := rows.Scan(&lat, &lng); err != nil {
			return 0, err
		}

		if haversineMeters(center, core.Location{Latitude: lat, Longitude: lng}) <= radiusMeters {
			count++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, err
	}

	s.mux.Lock()
	s.counts.Put(key, count)
	s.mux.Unlock()

	return count, nil
}

func haversineMeters(a, b core.Location) float64 {
	const earthRadius = 6_371_000.0

	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadius * math.Asin(math.Sqrt(h))
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
