package main

import (
	"go.uber.org/zap"

	"goflare.io/quotes/checkout"
	"goflare.io/quotes/config"
	"goflare.io/quotes/metrics"
	"goflare.io/quotes/notification"
	"goflare.io/quotes/sellerquotes"
)

func provideCartClient(cfg *config.Config, logger *zap.Logger) checkout.CartClient {
	return checkout.NewHTTPCartClient(cfg.Platform.CheckoutURL, logger)
}

func provideOrderClient(cfg *config.Config, logger *zap.Logger) checkout.OrderClient {
	return checkout.NewHTTPOrderClient(cfg.Platform.OrdersURL, logger)
}

func provideMailClient(cfg *config.Config, logger *zap.Logger) notification.MailClient {
	return notification.NewHTTPMailClient(cfg.Platform.MailURL, logger)
}

func provideDirectoryClient(cfg *config.Config, logger *zap.Logger) notification.DirectoryClient {
	return notification.NewHTTPDirectoryClient(cfg.Platform.UsersURL, logger)
}

func provideSellerSettingsClient(cfg *config.Config, logger *zap.Logger) sellerquotes.SettingsClient {
	return sellerquotes.NewHTTPSettingsClient(cfg.Platform.SellerURLTemplate, logger)
}

func provideMetricsReporter(cfg *config.Config, logger *zap.Logger) metrics.Reporter {
	return metrics.NewHTTPReporter(cfg.Platform.AnalyticsURL, logger)
}
