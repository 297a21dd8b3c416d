package voting

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/metrics"
	"github.com/coraldao/vote-wallet/pubsub"
	"github.com/coraldao/vote-wallet/store"
	"golang.org/x/sync/singleflight"
)

const defaultSearchDebounce = 500 * time.Millisecond

type Config struct {
	// MaxVotes caps votes cast per username group in one session.
	MaxVotes int `valid:"required"`
	// SearchDebounce defaults to 500ms when zero.
	SearchDebounce time.Duration
}

// Snapshot is the published view state: the full grouped set matching
// the active filters, plus the search-narrowed subset actually shown.
type Snapshot struct {
	Filters core.VotingFilters       `json:"filters"`
	Query   string                   `json:"query"`
	Groups  []*core.GroupedUsernames `json:"groups"`
	Visible []*core.GroupedUsernames `json:"visible"`
}

// ActionSignal is the one-shot feedback published after a vote mutation,
// consumed by the UI layer for toasts.
type ActionSignal struct {
	Action    core.VoteAction `json:"action"`
	RequestID string          `json:"request_id"`
	Username  string          `json:"username"`
}

func New(requests core.RequestStore, logger *slog.Logger, cfg Config) *Controller {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = defaultSearchDebounce
	}

	return &Controller{
		requests:  requests,
		logger:    logger.With("service", "voting"),
		cfg:       cfg,
		snapshots: pubsub.NewTopic[Snapshot](),
		actions:   pubsub.NewTopic[ActionSignal](),
	}
}

// Controller coordinates fetching username requests, grouping them and
// publishing the filtered view. It owns the grouped cache exclusively;
// overlapping refreshes are resolved by a generation token so a stale
// fetch never overwrites a newer one.
type Controller struct {
	requests core.RequestStore
	logger   *slog.Logger
	cfg      Config

	snapshots *pubsub.Topic[Snapshot]
	actions   *pubsub.Topic[ActionSignal]

	gen atomic.Uint64
	sf  singleflight.Group

	mux       sync.Mutex
	filters   core.VotingFilters
	query     string
	groups    []*core.GroupedUsernames
	published uint64
	debounce  *time.Timer
	pending   string
	hasPend   bool
}

func (c *Controller) Snapshots() *pubsub.Topic[Snapshot]   { return c.snapshots }
func (c *Controller) Actions() *pubsub.Topic[ActionSignal] { return c.actions }

// Refresh fetches requests per the active filters, regroups with vote
// carry-over and republishes. Each call fetches independently; a result
// whose generation is older than the last published one is dropped.
func (c *Controller) Refresh(ctx context.Context) error {
	gen := c.gen.Add(1)

	c.mux.Lock()
	filters := c.filters
	c.mux.Unlock()

	var (
		fetched []*core.UsernameRequest
		err     error
	)

	if filters.OnlyDuplicates {
		fetched, err = c.requests.FetchDuplicates(ctx, filters.OnlyWithLinks)
	} else {
		fetched, err = c.requests.FetchAll(ctx, filters.OnlyWithLinks)
	}

	if err != nil {
		c.logger.Error("requests.Fetch", "duplicates", filters.OnlyDuplicates, "err", err)
		return err
	}

	c.mux.Lock()
	defer c.mux.Unlock()

	if gen <= c.published {
		c.logger.Debug("drop stale refresh", "gen", gen, "published", c.published)
		metrics.StaleRefreshesTotal.Inc()
		return nil
	}

	c.published = gen
	c.groups = Group(fetched, filters, c.groups)
	c.publishLocked()
	return nil
}

// Apply replaces the filter value wholesale, then refreshes.
func (c *Controller) Apply(ctx context.Context, filters core.VotingFilters) error {
	c.mux.Lock()
	c.filters = filters
	c.mux.Unlock()

	return c.Refresh(ctx)
}

// SetQuery schedules a search pass over the cached groups after the
// debounce window. Consecutive duplicate values are suppressed; no
// re-fetch happens.
func (c *Controller) SetQuery(query string) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.hasPend && query == c.pending {
		return
	}

	c.pending = query
	c.hasPend = true

	if c.debounce != nil {
		c.debounce.Stop()
	}

	c.debounce = time.AfterFunc(c.cfg.SearchDebounce, func() {
		c.mux.Lock()
		defer c.mux.Unlock()

		// A timer that fired between a later SetQuery and its Stop
		// call carries a superseded value.
		if query != c.pending {
			return
		}

		if query == c.query {
			return
		}

		c.query = query
		c.publishLocked()
	})
}

// Query returns the currently applied (post-debounce) search query.
func (c *Controller) Query() string {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.query
}

func (c *Controller) publishLocked() {
	c.snapshots.Publish(Snapshot{
		Filters: c.filters,
		Query:   c.query,
		Groups:  c.groups,
		Visible: Search(c.groups, c.query),
	})
}

func (c *Controller) Vote(ctx context.Context, requestID string) error {
	return c.mutate(ctx, requestID, core.VoteActionApproved, func(r *core.UsernameRequest) {
		r.Votes++
	})
}

func (c *Controller) Revoke(ctx context.Context, requestID string) error {
	return c.mutate(ctx, requestID, core.VoteActionRevoked, func(r *core.UsernameRequest) {
		r.Votes = max(r.Votes-1, 0)
	})
}

func (c *Controller) Block(ctx context.Context, requestID string) error {
	return c.mutate(ctx, requestID, core.VoteActionBlocked, func(r *core.UsernameRequest) {
		r.BlockVotes++
	})
}

func (c *Controller) Unblock(ctx context.Context, requestID string) error {
	return c.mutate(ctx, requestID, core.VoteActionUnblocked, func(r *core.UsernameRequest) {
		r.BlockVotes = max(r.BlockVotes-1, 0)
	})
}

// mutate loads a request by id, applies fn, persists and refreshes.
// Identical concurrent mutations are coalesced. A missing record comes
// back as a wrapped not-found error rather than a silent no-op.
func (c *Controller) mutate(ctx context.Context, requestID string, action core.VoteAction, fn func(*core.UsernameRequest)) error {
	_, err, _ := c.sf.Do(fmt.Sprintf("%s:%s", action, requestID), func() (interface{}, error) {
		request, err := c.requests.Find(ctx, requestID)
		if err != nil {
			if store.IsErrNotFound(err) {
				return nil, fmt.Errorf("request %s: %w", requestID, err)
			}

			c.logger.Error("requests.Find", "request", requestID, "err", err)
			return nil, err
		}

		fn(request)

		if err := c.requests.Update(ctx, request); err != nil {
			c.logger.Error("requests.Update", "request", requestID, "err", err)
			return nil, err
		}

		c.trackVotes(request.Username, action)
		metrics.VoteActionsTotal.WithLabelValues(action.String()).Inc()

		c.actions.Publish(ActionSignal{
			Action:    action,
			RequestID: request.RequestID,
			Username:  request.Username,
		})

		return nil, c.Refresh(ctx)
	})

	return err
}

func (c *Controller) trackVotes(username string, action core.VoteAction) {
	c.mux.Lock()
	defer c.mux.Unlock()

	for _, g := range c.groups {
		if g.Username != username {
			continue
		}

		switch action {
		case core.VoteActionApproved:
			g.VotesForUsername++
		case core.VoteActionRevoked:
			g.VotesForUsername = max(g.VotesForUsername-1, 0)
		}
	}
}

// VotesLeft reports the remaining allowed votes for the group owning
// requestID, never negative and never above the policy maximum.
func (c *Controller) VotesLeft(requestID string) int {
	c.mux.Lock()
	defer c.mux.Unlock()

	for _, g := range c.groups {
		for _, r := range g.Requests {
			if r.RequestID == requestID {
				return max(c.cfg.MaxVotes-max(g.VotesForUsername, 0), 0)
			}
		}
	}

	return c.cfg.MaxVotes
}

// VoteForAllFirstSubmitted casts one vote for the earliest submitted
// request of every currently visible group, in a single batched call.
func (c *Controller) VoteForAllFirstSubmitted(ctx context.Context) error {
	c.mux.Lock()
	visible := Search(c.groups, c.query)

	ids := make([]string, 0, len(visible))
	usernames := make([]string, 0, len(visible))
	for _, g := range visible {
		first := g.Requests[0]
		for _, r := range g.Requests[1:] {
			if r.CreatedAt.Before(first.CreatedAt) {
				first = r
			}
		}

		ids = append(ids, first.RequestID)
		usernames = append(usernames, g.Username)
	}
	c.mux.Unlock()

	if len(ids) == 0 {
		return nil
	}

	if err := c.requests.VoteForIDs(ctx, ids, 1); err != nil {
		c.logger.Error("requests.VoteForIDs", "count", len(ids), "err", err)
		return err
	}

	// Counters move only once the batch persisted, same as the
	// single-vote path.
	for _, username := range usernames {
		c.trackVotes(username, core.VoteActionApproved)
	}

	metrics.VoteActionsTotal.WithLabelValues("batch").Add(float64(len(ids)))
	return c.Refresh(ctx)
}
