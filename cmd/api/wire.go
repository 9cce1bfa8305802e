//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"goflare.io/quotes/handlers"
	"goflare.io/quotes/server"

	"goflare.io/quotes"
	"goflare.io/quotes/config"
	"goflare.io/quotes/docstore"
	"goflare.io/quotes/driver"
	"goflare.io/quotes/notification"
	"goflare.io/quotes/quote"
	"goflare.io/quotes/sellerquotes"
	"goflare.io/quotes/settings"
)

func InitializeQuoteService() (*server.Server, error) {

	wire.Build(
		config.ProvideApplicationConfig,
		config.NewLogger,
		config.ProvidePostgresConn,
		config.ProvideEmber,
		config.ProvideIgnite,
		driver.NewTransactionManager,
		docstore.NewPostgresStore,
		quote.NewRepository,
		quote.NewReconciler,
		settings.NewService,
		notification.NewService,
		provideCartClient,
		provideOrderClient,
		provideMailClient,
		provideDirectoryClient,
		provideSellerSettingsClient,
		provideMetricsReporter,
		quotes.ProvideDispatcher,
		wire.Bind(new(sellerquotes.TaskQueue), new(*quotes.Dispatcher)),
		sellerquotes.NewController,
		quotes.NewQuoteManager,
		handlers.NewQuoteHandler,
		handlers.NewSellerHandler,
		handlers.NewMaintenanceHandler,
		server.NewServer,
	)

	return &server.Server{}, nil
}
