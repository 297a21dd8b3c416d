package main

import (
	"github.com/coraldao/vote-wallet/worker/settler"
	"github.com/coraldao/vote-wallet/worker/syncer"
	"github.com/google/wire"
	"github.com/spf13/viper"
)

var workerSet = wire.NewSet(
	syncer.New,
	provideSettlerConfig,
	settler.New,
)

func provideSettlerConfig(v *viper.Viper) settler.Config {
	v.SetDefault("settler.schedule", "0 * * * *")
	v.SetDefault("settler.min_votes", 1)

	return settler.Config{
		Schedule: v.GetString("settler.schedule"),
		MinVotes: v.GetInt("settler.min_votes"),
	}
}
