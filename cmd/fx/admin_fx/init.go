package admin_fx

import (
	"go.uber.org/fx"

	"luxscaler/internal/api/controllers"
	"luxscaler/internal/infra"
	"luxscaler/internal/repositories"
	"luxscaler/internal/services"
)

var Module = fx.Provide(
	provideDashboardRepo,
	provideProvisioningRepo,
	provideTokenRepo,
	services.NewProvisioningService,
	services.NewNotificationService,
	services.NewAdminService,
	controllers.NewAdminController,
)

func provideDashboardRepo(db *infra.PrivilegedDB) repositories.DashboardRepository {
	return repositories.NewDashboardRepository(db)
}

func provideProvisioningRepo(db *infra.PrivilegedDB) repositories.ProvisioningRepository {
	return repositories.NewProvisioningRepository(db)
}

func provideTokenRepo(db *infra.PrivilegedDB) repositories.TokenRepository {
	return repositories.NewTokenRepository(db)
}
