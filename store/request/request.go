package request

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/coraldao/vote-wallet/core"
	"github.com/tsenart/nap"
)

func New(db *nap.DB) core.RequestStore {
	return &store{db: db}
}

type store struct {
	db *nap.DB
}

func (s *store) Create(ctx context.Context, request *core.UsernameRequest) error {
	b := sq.Insert("username_requests").
		Columns(scanColumns...).
		Values(request.RequestID, request.Username, request.CreatedAt, request.Identity, request.Link, request.Votes, request.BlockVotes, request.Approved).
		Suffix("ON CONFLICT (request_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar)

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *store) FetchAll(ctx context.Context, onlyWithLinks bool) ([]*core.UsernameRequest, error) {
	b := sq.Select(scanColumns...).
		From("username_requests").
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar)

	if onlyWithLinks {
		b = b.Where("link <> ''")
	}

	return s.list(ctx, b)
}

// FetchDuplicates keeps only requests whose username is contested by at
// least one other request.
func (s *store) FetchDuplicates(ctx context.Context, onlyWithLinks bool) ([]*core.UsernameRequest, error) {
	b := sq.Select(scanColumns...).
		From("username_requests").
		Where(`username IN (
			SELECT username FROM username_requests GROUP BY username HAVING COUNT(*) > 1
		)`).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar)

	if onlyWithLinks {
		b = b.Where("link <> ''")
	}

	return s.list(ctx, b)
}

func (s *store) list(ctx context.Context, b sq.SelectBuilder) ([]*core.UsernameRequest, error) {
	rows, err := b.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var requests []*core.UsernameRequest
	for rows.Next() {
		var request core.UsernameRequest
		if err := scanRequest(rows, &request); err != nil {
			return nil, err
		}

		requests = append(requests, &request)
	}

	return requests, rows.Err()
}

func (s *store) Find(ctx context.Context, requestID string) (*core.UsernameRequest, error) {
	b := sq.Select(scanColumns...).
		From("username_requests").
		Where("request_id = ?", requestID).
		PlaceholderFormat(sq.Dollar)
	row := b.RunWith(s.db).QueryRowContext(ctx)

	var request core.UsernameRequest
	if err := scanRequest(row, &request); err != nil {
		return nil, err
	}

	return &request, nil
}

func (s *store) Update(ctx context.Context, request *core.UsernameRequest) error {
	b := sq.Update("username_requests").
		Set("votes", request.Votes).
		Set("block_votes", request.BlockVotes).
		Set("approved", request.Approved).
		Where("request_id = ?", request.RequestID).
		PlaceholderFormat(sq.Dollar)

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}

func (s *store) VoteForIDs(ctx context.Context, ids []string, delta int) error {
	if len(ids) == 0 {
		return nil
	}

	b := sq.Update("username_requests").
		Set("votes", sq.Expr("GREATEST(votes + ?, 0)", delta)).
		Where(sq.Eq{"request_id": ids}).
		PlaceholderFormat(sq.Dollar)

	_, err := b.RunWith(s.db).ExecContext(ctx)
	return err
}
