package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"crm/internal/authz"
	"crm/internal/config"
	"crm/internal/handlers"
	"crm/internal/metrics"
	"crm/internal/middleware"
	"crm/internal/service"
	"crm/internal/store"
	"crm/internal/telemetry"
)

// NewRouter wires the CRM routes and middleware.
func NewRouter(
	cfg config.Config,
	authSvc *service.AuthService,
	userSvc *service.UserService,
	customerSvc *service.CustomerService,
	pinger store.Pinger,
	m *metrics.Metrics,
	tp *telemetry.Provider,
	limiter *middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		logger.Warn("ignoring trusted proxies", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.Recovery(logger))
	r.Use(otelgin.Middleware(cfg.ServiceName, otelgin.WithTracerProvider(tp.TracerProvider())))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
	}))
	r.Use(middleware.Metrics(m))

	r.GET("/healthz", handlers.Health(pinger, logger))
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	authGroup := r.Group("/auth")
	authGroup.Use(limiter.Handler())
	{
		authGroup.POST("/register", handlers.Register(authSvc, logger))
		authGroup.POST("/login", handlers.Login(authSvc, logger))
	}

	requireAuth := middleware.Authenticate(authSvc, logger)

	users := r.Group("/users")
	users.Use(requireAuth)
	{
		users.GET("/me", handlers.GetMe(userSvc, logger))
		users.GET("/team-members", handlers.GetTeamMembers(userSvc, logger))
		users.GET("", middleware.RequireAction(authz.ActionUserList, logger), handlers.ListUsers(userSvc, logger))
		users.GET("/:id", middleware.RequireAction(authz.ActionUserRead, logger), handlers.GetUser(userSvc, logger))
		users.PUT("/:id", middleware.RequireAction(authz.ActionUserUpdate, logger), handlers.UpdateUser(userSvc, logger))
		users.DELETE("/:id", middleware.RequireAction(authz.ActionUserDelete, logger), handlers.DeleteUser(userSvc, logger))
	}

	customers := r.Group("/customers")
	customers.Use(requireAuth)
	{
		customers.GET("", handlers.ListCustomers(customerSvc, logger))
		customers.POST("", handlers.CreateCustomer(customerSvc, logger))
		customers.GET("/stats", handlers.GetCustomerStats(customerSvc, logger))
		customers.GET("/:id", handlers.GetCustomer(customerSvc, logger))
		customers.PUT("/:id", handlers.UpdateCustomer(customerSvc, logger))
		customers.DELETE("/:id", middleware.RequireAction(authz.ActionCustomerDelete, logger), handlers.DeleteCustomer(customerSvc, logger))
	}

	return r
}
