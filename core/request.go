package core

import (
	"context"
	"time"
)

type SortBy uint8

const (
	SortByNone SortBy = iota
	SortByDateAscending
	SortByDateDescending
	SortByVotesAscending
	SortByVotesDescending
)

type FilterBy uint8

const (
	FilterByAll FilterBy = iota
	FilterByApproved
	FilterByNotApproved
)

// VotingFilters is the active view configuration for the username
// voting list. It is a pure value; the controller replaces it wholesale
// on apply.
type VotingFilters struct {
	SortBy         SortBy   `json:"sort_by"`
	FilterBy       FilterBy `json:"filter_by"`
	OnlyDuplicates bool     `json:"only_duplicates"`
	OnlyWithLinks  bool     `json:"only_with_links"`
}

// UsernameRequest is a contested-username registration record. Vote
// counters are bounded by a policy maximum enforced by the caller, not
// the record itself.
type UsernameRequest struct {
	RequestID  string    `json:"request_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	Identity   string    `json:"identity"`
	Link       string    `json:"link,omitempty"`
	Votes      int       `json:"votes"`
	BlockVotes int       `json:"block_votes"`
	Approved   bool      `json:"approved"`
}

// GroupedUsernames is the transient grouping of requests sharing one
// username. VotesForUsername is a display-only optimistic counter
// carried over between refreshes; the source of truth stays on the
// individual requests.
type GroupedUsernames struct {
	Username         string             `json:"username"`
	Requests         []*UsernameRequest `json:"requests"`
	VotesForUsername int                `json:"votes_for_username"`
}

type VoteAction uint8

const (
	_ VoteAction = iota
	VoteActionApproved
	VoteActionRevoked
	VoteActionBlocked
	VoteActionUnblocked
)

func (a VoteAction) String() string {
	switch a {
	case VoteActionApproved:
		return "approved"
	case VoteActionRevoked:
		return "revoked"
	case VoteActionBlocked:
		return "blocked"
	case VoteActionUnblocked:
		return "unblocked"
	default:
		return "unknown"
	}
}

type RequestStore interface {
	Create(ctx context.Context, request *UsernameRequest) error
	FetchAll(ctx context.Context, onlyWithLinks bool) ([]*UsernameRequest, error)
	FetchDuplicates(ctx context.Context, onlyWithLinks bool) ([]*UsernameRequest, error)
	Find(ctx context.Context, requestID string) (*UsernameRequest, error)
	Update(ctx context.Context, request *UsernameRequest) error
	VoteForIDs(ctx context.Context, ids []string, delta int) error
}

// RequestService pulls username requests from the upstream platform,
// ordered by sequence.
type RequestService interface {
	Pull(ctx context.Context, offset uint64, limit int) ([]*UsernameRequest, uint64, error)
}
