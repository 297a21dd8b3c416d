package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/metrics"
)

func New(
	requestz core.RequestService,
	requests core.RequestStore,
	properties core.PropertyStore,
	logger *slog.Logger,
) *Syncer {
	return &Syncer{
		requestz:   requestz,
		requests:   requests,
		properties: properties,
		logger:     logger.With("worker", "syncer"),
	}
}

// Syncer pulls contested username requests from the platform into the
// local store, tracking its offset as a property.
type Syncer struct {
	requestz   core.RequestService
	requests   core.RequestStore
	properties core.PropertyStore
	logger     *slog.Logger
}

func (w *Syncer) Run(ctx context.Context) error {
	w.logger.Info("syncer start")

	for {
		dur := 30 * time.Second
		if w.run(ctx) == nil {
			dur = time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
		}
	}
}

func (w *Syncer) run(ctx context.Context) error {
	var offset uint64
	if err := w.properties.Get(ctx, core.PropertyRequestOffset, &offset); err != nil {
		w.logger.Error("properties.Get", "err", err)
		return err
	}

	const limit = 500
	requests, nextOffset, err := w.requestz.Pull(ctx, offset, limit)
	if err != nil {
		w.logger.Error("requestz.Pull", "err", err)
		return err
	}

	if len(requests) > 0 {
		w.logger.Info("list new username requests", "count", len(requests), "offset", offset)

		for _, request := range requests {
			if err := w.requests.Create(ctx, request); err != nil {
				w.logger.Error("requests.Create", "request", request.RequestID, "err", err)
				return err
			}
		}

		metrics.RequestSyncTotal.Add(float64(len(requests)))
	}

	if nextOffset <= offset {
		return fmt.Errorf("no new username requests")
	}

	if err := w.properties.Set(ctx, core.PropertyRequestOffset, nextOffset); err != nil {
		w.logger.Error("properties.Set", "err", err)
		return err
	}

	return nil
}
