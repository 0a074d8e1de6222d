package payment_service_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luxscaler/internal/api/controllers"
	"luxscaler/internal/config"
	"luxscaler/internal/infra"
	"luxscaler/internal/repositories"
	"luxscaler/internal/services"
)

var Module = fx.Provide(
	provideEntitlementRepo,
	provideCreditPackRepo,
	provideLineItemSource,
	services.NewWebhookVerifier,
	services.NewEntitlementMetrics,
	services.NewEntitlementService,
	services.NewCreditPackService,
	controllers.NewPaymentController,
)

func provideEntitlementRepo(db *infra.PrivilegedDB) repositories.EntitlementRepository {
	return repositories.NewEntitlementRepository(db)
}

func provideCreditPackRepo(db *gorm.DB) repositories.CreditPackRepository {
	return repositories.NewCreditPackRepository(db)
}

func provideLineItemSource(cfg *config.Config, log *zap.Logger) services.LineItemSource {
	source := services.NewLineItemSource(cfg)
	if source == nil {
		log.Warn("STRIPE_SECRET_KEY not set, checkout events must embed their line items")
	}
	return source
}
