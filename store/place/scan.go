package place

import (
	"database/sql"

	"github.com/coraldao/vote-wallet/core"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

var scanColumns = []string{
	"id",
	"name",
	"category",
	"payment",
	"atm",
	"address",
	"latitude",
	"longitude",
	"has_location",
	"savings_percent",
	"logo_url",
	"website",
}

func scanPlace(scanner scanner, place *core.Place) error {
	var (
		address sql.NullString
		logo    sql.NullString
		website sql.NullString
	)

	if err := scanner.Scan(
		&place.ID,
		&place.Name,
		&place.Category,
		&place.Payment,
		&place.ATM,
		&address,
		&place.Latitude,
		&place.Longitude,
		&place.HasLocation,
		&place.SavingsPercent,
		&logo,
		&website,
	); err != nil {
		return err
	}

	place.Address = address.String
	place.LogoURL = logo.String
	place.Website = website.String
	return nil
}
