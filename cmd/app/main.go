package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"luxscaler/cmd/fx/account_fx"
	"luxscaler/cmd/fx/admin_fx"
	"luxscaler/cmd/fx/config_fx"
	"luxscaler/cmd/fx/controllers_fx"
	"luxscaler/cmd/fx/db_fx"
	"luxscaler/cmd/fx/generation_fx"
	"luxscaler/cmd/fx/mail_fx"
	"luxscaler/cmd/fx/payment_service_fx"
	"luxscaler/internal/config"
)

// @title LuxScaler API
// @version 1.0
// @description Image enhancement backend: accounts, token balances, Stripe entitlements and admin tools.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := fx.New(
		config_fx.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		db_fx.Module,
		mail_fx.Module,
		account_fx.Module,
		payment_service_fx.Module,
		admin_fx.Module,
		generation_fx.Module,
		controllers_fx.Module,

		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// generations wait on the AI provider
		WriteTimeout: 2 * time.Minute,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting HTTP server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}
