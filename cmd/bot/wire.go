//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"github.com/gorilla/mux"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/wardenbot/warden/pkg/ticketing"
)

func InitializeApp() (*App, error) {
	wire.Build(
		wire.Value(logging.Name(AppName)),
		logging.NewConfig,
		logging.CommonLogger,
		mux.NewRouter,
		dataaccess.NewGuildDal,
		dataaccess.NewTicketDal,
		dataaccess.NewStatsDal,
		dataaccess.NewStatsCache,
		newTranscriptStore,
		ticketing.NewAggregator,
		ticketing.NewDirectory,
		NewApp,
	)
	return new(App), nil
}
