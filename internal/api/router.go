package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/user-service/docs"
	"github.com/99minutos/user-service/internal/api/handler"
	"github.com/99minutos/user-service/internal/api/middleware"
	"github.com/99minutos/user-service/internal/core/access"
	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/infrastructure/http/handlers"
)

// Deps is everything the router needs to register routes.
type Deps struct {
	Log     zerolog.Logger
	Service string
	Auth    ports.AuthService
	Profile ports.ProfileService
	Users   ports.UserService
	Access  middleware.Authorizer

	// Revocation registers POST /auth/logout.
	Revocation bool
	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.PingFunc
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		registerer, gatherer = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/swagger")
		},
	}))

	authn := middleware.Authenticate(deps.Auth)
	can := func(action string) echo.MiddlewareFunc {
		return middleware.RequirePermission(deps.Access, action, deps.Log)
	}

	authHandler := handler.NewAuthHandler(deps.Auth)
	profileHandler := handler.NewProfileHandler(deps.Profile)
	userHandler := handler.NewUserHandler(deps.Users, deps.Access, deps.Log)
	roleHandler := handler.NewRoleHandler()

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	if deps.Revocation {
		auth.POST("/logout", authHandler.Logout, authn)
	}

	// --- Profile (any authenticated role) ---
	profile := e.Group("/profile", authn)
	profile.GET("", profileHandler.Get, can(access.ProfileRead))
	profile.POST("", profileHandler.Update, can(access.ProfileUpdate))
	profile.POST("/change-password", profileHandler.ChangePassword, can(access.ProfileUpdate))

	// --- Administration ---
	users := e.Group("/users", authn)
	users.GET("", userHandler.List, can(access.UsersList))
	users.POST("", userHandler.Create, can(access.UsersCreate))
	users.GET("/:id", userHandler.Get, can(access.UsersRead))
	users.PUT("/:id", userHandler.Update, can(access.UsersUpdate))
	users.PATCH("/:id", userHandler.Update, can(access.UsersUpdate))
	users.DELETE("/:id", userHandler.Delete, can(access.UsersDelete))

	mutators := []string{http.MethodPatch, http.MethodPut, http.MethodPost}
	users.Match(mutators, "/:id/active", userHandler.SetActive, can(access.UsersActivate))
	users.Match(mutators, "/:id/password", userHandler.SetPassword, can(access.UsersPassword))

	e.GET("/roles", roleHandler.List, authn, can(access.RolesRead))

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler(deps.Service)
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
