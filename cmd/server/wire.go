//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/conf"
	"rankup_tech/subscription-service/internal/data"
	"rankup_tech/subscription-service/internal/server"
	"rankup_tech/subscription-service/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Bootstrap, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(server.ProviderSet, data.ProviderSet, biz.ProviderSet, service.ProviderSet, newApp))
}
