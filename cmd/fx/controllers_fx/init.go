package controllers_fx

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"luxscaler/internal/api"
	"luxscaler/internal/api/controllers"
	"luxscaler/pkg/middleware"
)

var Module = fx.Options(
	fx.Provide(controllers.NewAccountController),
	fx.Provide(provideHTTPMetrics),
	fx.Provide(provideRateLimiter),
	fx.Provide(api.ProvideRouter),
)

func provideHTTPMetrics(reg prometheus.Registerer) *middleware.HTTPMetrics {
	return middleware.NewHTTPMetrics(reg)
}

// Five requests per second per IP with bursts of ten on public account routes.
func provideRateLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(5, 10)
}
