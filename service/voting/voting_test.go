package voting

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/store"
)

type fakeRequestStore struct {
	mux      sync.Mutex
	requests map[string]*core.UsernameRequest
	fetches  chan chan struct{}
	voted    [][]string
	voteErr  error
}

func newFakeRequestStore(requests ...*core.UsernameRequest) *fakeRequestStore {
	s := &fakeRequestStore{requests: map[string]*core.UsernameRequest{}}
	for _, r := range requests {
		s.requests[r.RequestID] = r
	}
	return s
}

func (s *fakeRequestStore) Create(ctx context.Context, r *core.UsernameRequest) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.requests[r.RequestID] = r
	return nil
}

func (s *fakeRequestStore) FetchAll(ctx context.Context, onlyWithLinks bool) ([]*core.UsernameRequest, error) {
	s.mux.Lock()
	var out []*core.UsernameRequest
	for _, r := range s.requests {
		if onlyWithLinks && r.Link == "" {
			continue
		}
		copied := *r
		out = append(out, &copied)
	}
	s.mux.Unlock()

	// The result set is captured before blocking, so a gated fetch
	// returns the data visible when it started.
	if s.fetches != nil {
		release := make(chan struct{})
		s.fetches <- release
		<-release
	}

	return out, nil
}

func (s *fakeRequestStore) FetchDuplicates(ctx context.Context, onlyWithLinks bool) ([]*core.UsernameRequest, error) {
	all, err := s.FetchAll(ctx, onlyWithLinks)
	if err != nil {
		return nil, err
	}

	counts := map[string]int{}
	for _, r := range all {
		counts[r.Username]++
	}

	var out []*core.UsernameRequest
	for _, r := range all {
		if counts[r.Username] > 1 {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeRequestStore) Find(ctx context.Context, requestID string) (*core.UsernameRequest, error) {
	s.mux.Lock()
	defer s.mux.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *r
	return &copied, nil
}

func (s *fakeRequestStore) Update(ctx context.Context, r *core.UsernameRequest) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.requests[r.RequestID]; !ok {
		return sql.ErrNoRows
	}
	copied := *r
	s.requests[r.RequestID] = &copied
	return nil
}

func (s *fakeRequestStore) VoteForIDs(ctx context.Context, ids []string, delta int) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.voteErr != nil {
		return s.voteErr
	}

	s.voted = append(s.voted, ids)
	for _, id := range ids {
		if r, ok := s.requests[id]; ok {
			r.Votes += delta
		}
	}
	return nil
}

func newTestController(s *fakeRequestStore, maxVotes int) *Controller {
	return New(s, slog.Default(), Config{MaxVotes: maxVotes, SearchDebounce: time.Millisecond})
}

func TestControllerRefreshPublishes(t *testing.T) {
	s := newFakeRequestStore(
		request("1", "alice", 100, 0, false),
		request("2", "bob", 200, 0, false),
	)
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap, ok := c.Snapshots().Latest()
	if !ok {
		t.Fatal("no snapshot published")
	}
	if len(snap.Groups) != 2 || snap.Groups[0].Username != "alice" || snap.Groups[1].Username != "bob" {
		t.Errorf("snapshot groups = %+v", snap.Groups)
	}
	if len(snap.Visible) != len(snap.Groups) {
		t.Errorf("empty query narrowed the visible set to %d groups", len(snap.Visible))
	}
}

func TestControllerOnlyWithLinks(t *testing.T) {
	linked := request("1", "alice", 100, 0, false)
	linked.Link = "https://example.com/alice"
	s := newFakeRequestStore(linked, request("2", "bob", 200, 0, false))
	c := newTestController(s, 3)

	if err := c.Apply(context.Background(), core.VotingFilters{OnlyWithLinks: true}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	snap, _ := c.Snapshots().Latest()
	if len(snap.Groups) != 1 || snap.Groups[0].Username != "alice" {
		t.Errorf("got %+v, want only the linked alice request", snap.Groups)
	}
}

func TestControllerOnlyDuplicates(t *testing.T) {
	s := newFakeRequestStore(
		request("1", "alice", 100, 0, false),
		request("2", "alice", 200, 0, false),
		request("3", "bob", 300, 0, false),
	)
	c := newTestController(s, 3)

	if err := c.Apply(context.Background(), core.VotingFilters{OnlyDuplicates: true}); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	snap, _ := c.Snapshots().Latest()
	if len(snap.Groups) != 1 || snap.Groups[0].Username != "alice" || len(snap.Groups[0].Requests) != 2 {
		t.Errorf("got %+v, want the contested alice group", snap.Groups)
	}
}

func TestControllerStaleRefreshDropped(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	s.fetches = make(chan chan struct{})
	c := newTestController(s, 3)

	done := make(chan error, 2)

	// First refresh suspends inside its fetch.
	go func() { done <- c.Refresh(context.Background()) }()
	first := <-s.fetches

	// A newer request appears, then a second refresh starts and wins.
	s.mux.Lock()
	s.requests["2"] = request("2", "bob", 200, 0, false)
	s.mux.Unlock()

	go func() { done <- c.Refresh(context.Background()) }()
	second := <-s.fetches

	close(second)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	// The older fetch completes last; its result must be dropped.
	close(first)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap, _ := c.Snapshots().Latest()
	if len(snap.Groups) != 2 {
		t.Errorf("stale refresh overwrote the newer snapshot: %+v", snap.Groups)
	}
}

func TestControllerVoteFlow(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	if got := c.VotesLeft("1"); got != 3 {
		t.Fatalf("VotesLeft() = %d, want 3", got)
	}

	for i := 0; i < 3; i++ {
		if err := c.Vote(context.Background(), "1"); err != nil {
			t.Fatalf("Vote() failed: %v", err)
		}
	}

	if got := c.VotesLeft("1"); got != 0 {
		t.Errorf("VotesLeft() after 3 votes = %d, want 0", got)
	}

	stored, _ := s.Find(context.Background(), "1")
	if stored.Votes != 3 {
		t.Errorf("persisted votes = %d, want 3", stored.Votes)
	}

	action, ok := c.Actions().Latest()
	if !ok || action.Action != core.VoteActionApproved || action.RequestID != "1" {
		t.Errorf("last action = %+v", action)
	}

	if err := c.Revoke(context.Background(), "1"); err != nil {
		t.Fatalf("Revoke() failed: %v", err)
	}
	if got := c.VotesLeft("1"); got != 1 {
		t.Errorf("VotesLeft() after revoke = %d, want 1", got)
	}
}

func TestControllerVotesLeftMonotonic(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	prev := c.VotesLeft("1")
	if prev > 3 {
		t.Fatalf("VotesLeft() = %d exceeds the maximum", prev)
	}

	for i := 0; i < 5; i++ {
		if err := c.Vote(context.Background(), "1"); err != nil {
			t.Fatalf("Vote() failed: %v", err)
		}

		got := c.VotesLeft("1")
		if got > prev {
			t.Errorf("VotesLeft() rose from %d to %d", prev, got)
		}
		if got < 0 {
			t.Errorf("VotesLeft() = %d, want >= 0", got)
		}
		prev = got
	}
}

func TestControllerBlockUnblock(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	c := newTestController(s, 3)

	if err := c.Block(context.Background(), "1"); err != nil {
		t.Fatalf("Block() failed: %v", err)
	}
	stored, _ := s.Find(context.Background(), "1")
	if stored.BlockVotes != 1 {
		t.Errorf("block votes = %d, want 1", stored.BlockVotes)
	}

	if err := c.Unblock(context.Background(), "1"); err != nil {
		t.Fatalf("Unblock() failed: %v", err)
	}
	stored, _ = s.Find(context.Background(), "1")
	if stored.BlockVotes != 0 {
		t.Errorf("block votes = %d, want 0", stored.BlockVotes)
	}
}

func TestControllerVoteMissingRequest(t *testing.T) {
	c := newTestController(newFakeRequestStore(), 3)

	err := c.Vote(context.Background(), "nope")
	if err == nil {
		t.Fatal("voting on a missing request succeeded")
	}
	if !store.IsErrNotFound(err) {
		t.Errorf("error %v does not unwrap to not found", err)
	}
}

func TestControllerSearchDebounce(t *testing.T) {
	s := newFakeRequestStore(
		request("1", "alice", 100, 0, false),
		request("2", "bob", 200, 0, false),
	)
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	c.SetQuery("a")
	c.SetQuery("al")
	c.SetQuery("ali")

	deadline := time.Now().Add(time.Second)
	for c.Query() != "ali" {
		if time.Now().After(deadline) {
			t.Fatal("debounced query never applied")
		}
		time.Sleep(time.Millisecond)
	}

	snap, _ := c.Snapshots().Latest()
	if len(snap.Visible) != 1 || snap.Visible[0].Username != "alice" {
		t.Errorf("visible = %+v, want only alice", snap.Visible)
	}
	if len(snap.Groups) != 2 {
		t.Errorf("search narrowed the full grouped set: %+v", snap.Groups)
	}
}

func TestControllerVoteForAllFirstSubmitted(t *testing.T) {
	s := newFakeRequestStore(
		request("1", "alice", 300, 0, false),
		request("2", "alice", 100, 0, false),
		request("3", "bob", 200, 0, false),
	)
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	if err := c.VoteForAllFirstSubmitted(context.Background()); err != nil {
		t.Fatalf("VoteForAllFirstSubmitted() failed: %v", err)
	}

	if len(s.voted) != 1 {
		t.Fatalf("batched calls = %d, want 1", len(s.voted))
	}

	got := map[string]bool{}
	for _, id := range s.voted[0] {
		got[id] = true
	}
	if len(got) != 2 || !got["2"] || !got["3"] {
		t.Errorf("voted ids = %v, want the earliest of each group [2 3]", s.voted[0])
	}
}

func TestControllerBatchVoteFailureKeepsBudget(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	s.voteErr = errors.New("connection reset")
	c := newTestController(s, 3)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	if err := c.VoteForAllFirstSubmitted(context.Background()); err == nil {
		t.Fatal("batch vote succeeded against a failing store")
	}

	// Nothing persisted, so the budget must be untouched.
	if got := c.VotesLeft("1"); got != 3 {
		t.Errorf("VotesLeft() = %d after failed batch, want 3 (no vote persisted)", got)
	}

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}
	if got := c.VotesLeft("1"); got != 3 {
		t.Errorf("VotesLeft() = %d after refresh, want 3", got)
	}

	s.mux.Lock()
	s.voteErr = nil
	s.mux.Unlock()

	if err := c.VoteForAllFirstSubmitted(context.Background()); err != nil {
		t.Fatalf("VoteForAllFirstSubmitted() failed: %v", err)
	}
	if got := c.VotesLeft("1"); got != 2 {
		t.Errorf("VotesLeft() = %d after successful batch, want 2", got)
	}
}

func TestControllerRefreshGroupsWithFetchFilters(t *testing.T) {
	s := newFakeRequestStore(request("1", "alice", 100, 0, false))
	s.fetches = make(chan chan struct{})
	c := newTestController(s, 3)

	done := make(chan error, 2)

	// A refresh under the all filter suspends inside its fetch.
	go func() { done <- c.Refresh(context.Background()) }()
	first := <-s.fetches

	// Filters change while it is in flight.
	go func() { done <- c.Apply(context.Background(), core.VotingFilters{FilterBy: core.FilterByApproved}) }()
	second := <-s.fetches

	// The first refresh publishes grouped under the filters that drove
	// its fetch, not the ones applied afterwards.
	close(first)
	if err := <-done; err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	snap, _ := c.Snapshots().Latest()
	if len(snap.Groups) != 1 || snap.Groups[0].Username != "alice" {
		t.Errorf("first publish grouped with the raced filters: %+v", snap.Groups)
	}

	close(second)
	if err := <-done; err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	snap, _ = c.Snapshots().Latest()
	if len(snap.Groups) != 0 {
		t.Errorf("approved filter kept the unapproved request: %+v", snap.Groups)
	}
}

func TestControllerDebounceDropsSupersededQuery(t *testing.T) {
	s := newFakeRequestStore(
		request("1", "alice", 100, 0, false),
		request("2", "bob", 200, 0, false),
	)
	c := New(s, slog.Default(), Config{MaxVotes: 3, SearchDebounce: 20 * time.Millisecond})

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() failed: %v", err)
	}

	var (
		mux     sync.Mutex
		queries []string
	)
	cancel := c.Snapshots().Subscribe(func(snap Snapshot) {
		mux.Lock()
		queries = append(queries, snap.Query)
		mux.Unlock()
	})
	defer cancel()

	c.SetQuery("b")
	c.SetQuery("a")

	deadline := time.Now().Add(time.Second)
	for c.Query() != "a" {
		if time.Now().After(deadline) {
			t.Fatal("debounced query never applied")
		}
		time.Sleep(time.Millisecond)
	}

	// Give a stale timer for "b" every chance to fire.
	time.Sleep(60 * time.Millisecond)

	mux.Lock()
	defer mux.Unlock()
	for _, q := range queries {
		if q == "b" {
			t.Fatal("superseded query was published")
		}
	}
}
