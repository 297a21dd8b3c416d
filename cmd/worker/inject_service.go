package main

import (
	"github.com/coraldao/vote-wallet/service/request"
	"github.com/google/wire"
	"github.com/spf13/viper"
)

var serviceSet = wire.NewSet(
	provideRequestServiceConfig,
	request.New,
)

func provideRequestServiceConfig(v *viper.Viper) request.Config {
	return request.Config{
		BaseURL: v.GetString("platform.base_url"),
	}
}
