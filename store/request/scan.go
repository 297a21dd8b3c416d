package request

import (
	"database/sql"

	"github.com/coraldao/vote-wallet/core"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

var scanColumns = []string{
	"request_id",
	"username",
	"created_at",
	"identity",
	"link",
	"votes",
	"block_votes",
	"approved",
}

func scanRequest(scanner scanner, request *core.UsernameRequest) error {
	var link sql.NullString

	if err := scanner.Scan(
		&request.RequestID,
		&request.Username,
		&request.CreatedAt,
		&request.Identity,
		&link,
		&request.Votes,
		&request.BlockVotes,
		&request.Approved,
	); err != nil {
		return err
	}

	request.Link = link.String
	return nil
}
