package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	_ "luxscaler/docs"
	"luxscaler/internal/api/controllers"
	"luxscaler/pkg/middleware"
	"luxscaler/pkg/utils"
)

type RouterParams struct {
	fx.In

	Log         *zap.Logger
	Issuer      *utils.TokenIssuer
	Accounts    middleware.AccountLookup
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter

	Account    *controllers.AccountController
	Payment    *controllers.PaymentController
	Admin      *controllers.AdminController
	Generation *controllers.GenerationController
}

func ProvideRouter(p RouterParams) *gin.Engine {
	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(p.Metrics.Handler())

	RegisterRoutes(r, p)
	return r
}

func RegisterRoutes(r *gin.Engine, p RouterParams) {
	auth := middleware.JWTAuthMiddleware(p.Issuer)
	admin := middleware.RequireAdmin(p.Accounts)

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/webhooks/stripe", p.Payment.HandleStripeWebhook)
	r.Match([]string{
		http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodDelete,
	}, "/webhooks/stripe", p.Payment.RejectWebhookMethod)
	r.GET("/credit-packs", p.Payment.ListCreditPacks)

	accounts := r.Group("/accounts")
	accounts.POST("/login", p.RateLimiter.Handler(), p.Account.Login)
	accounts.POST("/forgot-password", p.RateLimiter.Handler(), p.Account.ForgotPassword)
	accounts.POST("/recover", p.RateLimiter.Handler(), p.Account.Recover)
	accounts.GET("/me", auth, p.Account.Me)

	r.POST("/waitlist", p.RateLimiter.Handler(), p.Account.JoinWaitlist)

	generations := r.Group("/generations", auth)
	generations.POST("", p.Generation.CreateGeneration)
	generations.GET("", p.Generation.ListGenerations)

	adminGroup := r.Group("/admin", auth, admin)
	adminGroup.POST("/actions", p.Admin.ExecuteAction)
	adminGroup.POST("/onboard", p.Admin.Onboard)
	adminGroup.GET("/dashboard", p.Admin.GetDashboard)

	r.POST("/notifications", auth, admin, p.Admin.SendNotification)
}
