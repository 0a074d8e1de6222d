package account_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"luxscaler/internal/config"
	"luxscaler/internal/infra"
	"luxscaler/internal/repositories"
	"luxscaler/internal/services"
	"luxscaler/pkg/middleware"
	"luxscaler/pkg/utils"
)

var Module = fx.Provide(
	provideAccountRepo,
	provideAccountDirectory,
	provideRecoveryTokenRepo,
	provideWaitlistRepo,
	provideTokenIssuer,
	provideAccountLookup,
	services.NewAccountService,
)

func provideAccountRepo(db *gorm.DB) repositories.AccountRepository {
	return repositories.NewAccountRepository(db)
}

func provideAccountDirectory(db *infra.PrivilegedDB) repositories.AccountDirectory {
	return repositories.NewAccountDirectory(db)
}

func provideRecoveryTokenRepo(db *infra.PrivilegedDB) repositories.RecoveryTokenRepository {
	return repositories.NewRecoveryTokenRepository(db)
}

func provideWaitlistRepo(db *infra.PrivilegedDB) repositories.WaitlistRepository {
	return repositories.NewWaitlistRepository(db)
}

func provideTokenIssuer(cfg *config.Config) (*utils.TokenIssuer, error) {
	return utils.NewTokenIssuer(cfg.Auth)
}

// The admin gate reads the caller's own profile.
func provideAccountLookup(repo repositories.AccountRepository) middleware.AccountLookup {
	return repo
}
