package main

import (
	"github.com/coraldao/vote-wallet/core"
	"github.com/coraldao/vote-wallet/service/explore"
	"github.com/coraldao/vote-wallet/service/geo"
	"github.com/coraldao/vote-wallet/service/masternode"
	"github.com/coraldao/vote-wallet/service/voting"
	"github.com/google/wire"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideVotingConfig,
	voting.New,
	provideExploreConfig,
	provideLocationProvider,
	explore.New,
	provideGeoConfig,
	geo.New,
	provideMasternodeConfig,
	masternode.New,
)

func provideVotingConfig(v *viper.Viper) voting.Config {
	v.SetDefault("voting.max_votes", 3)
	v.SetDefault("voting.search_debounce", "500ms")

	return voting.Config{
		MaxVotes:       v.GetInt("voting.max_votes"),
		SearchDebounce: v.GetDuration("voting.search_debounce"),
	}
}

func provideExploreConfig(v *viper.Viper) explore.Config {
	v.SetDefault("explore.page_size", 20)
	v.SetDefault("explore.radius_meters", 32_000)

	return explore.Config{
		PageSize:     v.GetInt("explore.page_size"),
		RadiusMeters: v.GetFloat64("explore.radius_meters"),
	}
}

func provideGeoConfig(v *viper.Viper) geo.Config {
	return geo.Config{
		BaseURL: v.GetString("geo.base_url"),
	}
}

func provideMasternodeConfig(v *viper.Viper) masternode.Config {
	return masternode.Config{
		AllowedKeys: v.GetStringSlice("masternode.allowed_keys"),
	}
}

// provideLocationProvider stands in for the device location service:
// the server reads a fixed vantage point from config.
func provideLocationProvider(v *viper.Viper) core.LocationProvider {
	return &configLocation{
		authorized: v.GetBool("explore.location.authorized"),
		loc: core.Location{
			Latitude:  v.GetFloat64("explore.location.latitude"),
			Longitude: v.GetFloat64("explore.location.longitude"),
		},
	}
}

type configLocation struct {
	authorized bool
	loc        core.Location
}

func (c *configLocation) AuthStatus() core.LocationAuthStatus {
	if c.authorized {
		return core.LocationAuthAuthorized
	}
	return core.LocationAuthNeedsAuthorization
}

func (c *configLocation) Current() (core.Location, bool) {
	return c.loc, c.authorized
}
