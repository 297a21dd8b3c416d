package explore

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/metrics"
	"github.com/coraldao/vote-wallet/pubsub"
)

// Segment is a named, mutually exclusive filter preset for the
// discovery list, each with its own pagination state.
type Segment uint8

const (
	SegmentMerchantsAll Segment = iota
	SegmentMerchantsOnline
	SegmentMerchantsNearby
	SegmentATMsAll
	SegmentATMsBuy
	SegmentATMsSell
	SegmentATMsBuySell
)

func (s Segment) String() string {
	switch s {
	case SegmentMerchantsAll:
		return "merchants_all"
	case SegmentMerchantsOnline:
		return "merchants_online"
	case SegmentMerchantsNearby:
		return "merchants_nearby"
	case SegmentATMsAll:
		return "atms_all"
	case SegmentATMsBuy:
		return "atms_buy"
	case SegmentATMsSell:
		return "atms_sell"
	case SegmentATMsBuySell:
		return "atms_buy_sell"
	default:
		return "unknown"
	}
}

func (s Segment) nearby() bool {
	return s == SegmentMerchantsNearby
}

func (s Segment) category() core.PlaceCategory {
	if s >= SegmentATMsAll {
		return core.PlaceCategoryATM
	}
	return core.PlaceCategoryMerchant
}

// placeQuery maps the segment preset onto a store query.
func (s Segment) placeQuery() core.PlaceQuery {
	q := core.PlaceQuery{Category: s.category()}

	switch s {
	case SegmentMerchantsOnline:
		q.Payment = core.PaymentTypeOnline
	case SegmentATMsBuy:
		q.ATM = core.ATMTypeBuy
	case SegmentATMsSell:
		q.ATM = core.ATMTypeSell
	case SegmentATMsBuySell:
		q.ATM = core.ATMTypeBuyAndSell
	}

	return q
}

type PageState uint8

const (
	StateIdle PageState = iota
	StateLoading
	StateLoaded
	StateLoadingNext
	StateExhausted
)

func (s PageState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateLoadingNext:
		return "loading_next"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

type Config struct {
	PageSize     int     `valid:"required"`
	RadiusMeters float64 `valid:"required"`
}

// Snapshot is the published discovery state for the active segment.
// NearbyCount backs the "N merchants in R km" subtitle; HasNextPage
// tells the caller whether to render a loading sentinel row.
type Snapshot struct {
	Segment       Segment       `json:"segment"`
	State         PageState     `json:"state"`
	Query         string        `json:"query,omitempty"`
	Items         []*core.Place `json:"items"`
	HasNextPage   bool          `json:"has_next_page"`
	NearbyCount   int           `json:"nearby_count"`
	NeedsLocation bool          `json:"needs_location"`
}

func New(places core.PlaceStore, location core.LocationProvider, logger *slog.Logger, cfg Config) *Controller {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Controller{
		places:    places,
		location:  location,
		logger:    logger.With("service", "explore"),
		cfg:       cfg,
		snapshots: pubsub.NewTopic[Snapshot](),
	}
}

// Controller keeps the segment presets and their offset based paging.
// State moves idle → loading → loaded → loadingNext → loaded, or to
// exhausted once the store reports no further rows.
type Controller struct {
	places   core.PlaceStore
	location core.LocationProvider
	logger   *slog.Logger
	cfg      Config

	snapshots *pubsub.Topic[Snapshot]

	mux     sync.Mutex
	segment Segment
	state   PageState
	query   string
	items   []*core.Place
	offset  int
	hasNext bool
}

func (c *Controller) Snapshots() *pubsub.Topic[Snapshot] { return c.snapshots }

// SwitchSegment resets pagination to idle for the new segment, then
// immediately loads its first page. The free-text query is dropped with
// the rest of the old segment's state.
func (c *Controller) SwitchSegment(ctx context.Context, segment Segment) error {
	c.mux.Lock()
	c.segment = segment
	c.state = StateIdle
	c.query = ""
	c.items = nil
	c.offset = 0
	c.hasNext = false
	c.mux.Unlock()

	return c.loadFirstPage(ctx)
}

// Fetch replaces the segment's default fetch with a search fetch and
// resets pagination. An empty query restores the default fetch.
func (c *Controller) Fetch(ctx context.Context, query string) error {
	c.mux.Lock()
	c.query = query
	c.state = StateIdle
	c.items = nil
	c.offset = 0
	c.hasNext = false
	c.mux.Unlock()

	return c.loadFirstPage(ctx)
}

// FetchNextPage appends the next page for the active segment. When the
// segment is exhausted, or a load is already running, it is a no-op.
func (c *Controller) FetchNextPage(ctx context.Context) error {
	c.mux.Lock()
	if c.state != StateLoaded || !c.hasNext {
		c.mux.Unlock()
		return nil
	}

	c.state = StateLoadingNext
	segment, query, offset := c.segment, c.query, c.offset
	c.mux.Unlock()

	return c.loadPage(ctx, segment, query, offset, false)
}

func (c *Controller) loadFirstPage(ctx context.Context) error {
	c.mux.Lock()
	if c.segment.nearby() && c.location.AuthStatus() != core.LocationAuthAuthorized {
		c.state = StateLoaded
		c.items = nil
		c.hasNext = false
		c.publishLocked(0, true)
		c.mux.Unlock()
		return nil
	}

	c.state = StateLoading
	segment, query := c.segment, c.query
	c.mux.Unlock()

	return c.loadPage(ctx, segment, query, 0, true)
}

func (c *Controller) loadPage(ctx context.Context, segment Segment, query string, offset int, first bool) error {
	pq := segment.placeQuery()
	pq.Search = query
	pq.Offset = offset
	pq.Limit = c.cfg.PageSize

	var nearbyCount int
	if loc, ok := c.currentLocation(segment); ok {
		pq.Bounds = boundsAround(loc, c.cfg.RadiusMeters)

		n, err := c.places.CountWithin(ctx, loc, c.cfg.RadiusMeters, segment.category())
		if err != nil {
			c.logger.Error("places.CountWithin", "segment", segment, "err", err)
		} else {
			nearbyCount = n
		}
	}

	items, hasMore, err := c.places.List(ctx, pq)
	if err != nil {
		c.logger.Error("places.List", "segment", segment, "err", err)

		c.mux.Lock()
		c.state = StateIdle
		c.mux.Unlock()
		return err
	}

	metrics.PlacePagesTotal.WithLabelValues(segment.String()).Inc()

	c.mux.Lock()
	defer c.mux.Unlock()

	// A segment or query switch while the page was in flight makes the
	// result stale.
	if c.segment != segment || c.query != query {
		return nil
	}

	if first {
		c.items = items
	} else {
		c.items = append(c.items, items...)
	}

	c.offset = offset + c.cfg.PageSize
	c.hasNext = hasMore
	if hasMore {
		c.state = StateLoaded
	} else {
		c.state = StateExhausted
	}

	c.publishLocked(nearbyCount, false)
	return nil
}

func (c *Controller) currentLocation(segment Segment) (core.Location, bool) {
	if !segment.nearby() || c.location.AuthStatus() != core.LocationAuthAuthorized {
		return core.Location{}, false
	}

	return c.location.Current()
}

func (c *Controller) publishLocked(nearbyCount int, needsLocation bool) {
	c.snapshots.Publish(Snapshot{
		Segment:       c.segment,
		State:         c.state,
		Query:         c.query,
		Items:         c.items,
		HasNextPage:   c.hasNext,
		NearbyCount:   nearbyCount,
		NeedsLocation: needsLocation,
	})
}

// boundsAround is the box of roughly radiusMeters around center used to
// narrow nearby queries before the store counts exact distance.
func boundsAround(center core.Location, radiusMeters float64) core.Bounds {
	const metersPerDegree = 111_320.0

	dLat := radiusMeters / metersPerDegree
	dLng := dLat
	if cos := math.Cos(center.Latitude * math.Pi / 180); cos > 0.01 {
		dLng = radiusMeters / (metersPerDegree * cos)
	}

	return core.Bounds{
		NorthEastLat: center.Latitude + dLat,
		NorthEastLng: center.Longitude + dLng,
		SouthWestLat: center.Latitude - dLat,
		SouthWestLng: center.Longitude - dLng,
	}
}
