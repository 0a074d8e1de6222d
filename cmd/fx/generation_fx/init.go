package generation_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"luxscaler/internal/api/controllers"
	"luxscaler/internal/config"
	"luxscaler/internal/infra"
	"luxscaler/internal/repositories"
	"luxscaler/internal/services"
	"luxscaler/pkg/ai"
)

var Module = fx.Provide(
	ProvideEnhancer,
	infra.NewObjectStorage,
	provideGenerationRepo,
	services.NewGenerationService,
	controllers.NewGenerationController,
)

// ProvideEnhancer builds the client selected by AI_PROVIDER and closes it on stop.
func ProvideEnhancer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (ai.Enhancer, error) {
	enhancer, err := ai.NewEnhancer(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("enhancer ready",
		zap.String("provider", enhancer.Provider()),
		zap.String("model", enhancer.Model()))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return enhancer.Close()
		},
	})
	return enhancer, nil
}

func provideGenerationRepo(db *gorm.DB) repositories.GenerationRepository {
	return repositories.NewGenerationRepository(db)
}
