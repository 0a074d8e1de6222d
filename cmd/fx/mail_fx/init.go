package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService(cfg *config.Config, log *zap.Logger) (services.IMailService, error) {
	mailService, err := services.NewSMTPMailService(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("SMTP mail service ready",
		zap.String("host", cfg.SMTP.Host),
		zap.Int("port", cfg.SMTP.Port),
		zap.String("from", cfg.SMTP.From))
	return mailService, nil
}
