package settler

import (
	"context"
	"log/slog"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/service/voting"
	"github.com/robfig/cron/v3"
)

type Config struct {
	// Schedule is a cron spec, e.g. "0 * * * *".
	Schedule string `valid:"required"`
	// MinVotes a request needs before it can win its username.
	MinVotes int `valid:"required"`
}

func New(requests core.RequestStore, logger *slog.Logger, cfg Config) *Settler {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	return &Settler{
		requests: requests,
		logger:   logger.With("worker", "settler"),
		cfg:      cfg,
	}
}

// Settler periodically settles contested usernames: the request leading
// its group on net votes gets approved, the rest lose the flag.
type Settler struct {
	requests core.RequestStore
	logger   *slog.Logger
	cfg      Config
}

func (w *Settler) Run(ctx context.Context) error {
	w.logger.Info("settler start", "schedule", w.cfg.Schedule)

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(w.cfg.Schedule, func() {
		if err := w.Settle(ctx); err != nil {
			w.logger.Error("settle", "err", err)
		}
	}); err != nil {
		return err
	}

	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return ctx.Err()
}

func (w *Settler) Settle(ctx context.Context) error {
	requests, err := w.requests.FetchAll(ctx, false)
	if err != nil {
		w.logger.Error("requests.FetchAll", "err", err)
		return err
	}

	changed := settle(requests, w.cfg.MinVotes)
	for _, request := range changed {
		if err := w.requests.Update(ctx, request); err != nil {
			w.logger.Error("requests.Update", "request", request.RequestID, "err", err)
			return err
		}
	}

	if len(changed) > 0 {
		w.logger.Info("usernames settled", "updated", len(changed))
	}

	return nil
}

// settle flips the approved flag per username group and returns the
// requests whose flag changed. The winner leads on votes minus block
// votes, needs at least minVotes and a positive margin; ties go to the
// earliest submission.
func settle(requests []*core.UsernameRequest, minVotes int) []*core.UsernameRequest {
	groups := voting.Group(requests, core.VotingFilters{SortBy: core.SortByDateAscending}, nil)

	var changed []*core.UsernameRequest
	for _, g := range groups {
		var winner *core.UsernameRequest
		for _, r := range g.Requests {
			if r.Votes < minVotes || r.Votes <= r.BlockVotes {
				continue
			}

			if winner == nil || r.Votes-r.BlockVotes > winner.Votes-winner.BlockVotes {
				winner = r
			}
		}

		for _, r := range g.Requests {
			approved := r == winner
			if r.Approved != approved {
				r.Approved = approved
				changed = append(changed, r)
			}
		}
	}

	return changed
}
