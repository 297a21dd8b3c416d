package core

import "context"

// Well known property keys. Info-screen flags default to unset, which
// reads back as false.
const (
	PropertyVotingInfoShown  = "voting_info_shown"
	PropertyExploreInfoShown = "explore_info_shown"
	PropertyRequestOffset    = "request_sync_offset"
)

type PropertyStore interface {
	Get(ctx context.Context, key string, value any) error
	Set(ctx context.Context, key string, value any) error
}
