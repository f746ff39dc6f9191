package http

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/http/middleware"
	"github.com/mnavarrete/customers-api/internal/metrics"
	"github.com/mnavarrete/customers-api/internal/repository"
	"github.com/mnavarrete/customers-api/internal/service/stats"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB *sqlx.DB, rds *redis.Client) *Server {
	// repos
	customersRepo := repository.NewCustomersRepository(mysqlDB)
	accountsRepo := repository.NewAccountsRepository(mysqlDB)
	statsRepo := repository.NewStatsRepository(mysqlDB)

	return &Server{e: newRouter(cfg, customersRepo, accountsRepo, statsRepo, rds)}
}

var registerMetrics sync.Once

func newRouter(
	cfg config.Config,
	customersRepo repository.CustomersRepository,
	accountsRepo repository.AccountsRepository,
	statsRepo repository.StatsRepository,
	rds *redis.Client,
) *echo.Echo {
	// services
	statsSvc := stats.New(customersRepo, statsRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Pre(echoMid.RemoveTrailingSlash())
	e.Use(echoMid.Recover(), echoMid.Logger(), requestMetrics)

	registerMetrics.Do(func() {
		metrics.MustRegister(prometheus.DefaultRegisterer)
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.AuthMiddleware(accountsRepo, cfg.Auth.ServiceTokens)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:  rds,
		Limits: cfg.RateLimit,
	})
	policyMW := middleware.ReadOpenWriteAdmin()

	// routes
	g := e.Group("/customers", authMW, rlMW, policyMW)
	g.GET("", listCustomersHandler(customersRepo, cfg.Pagination))
	g.POST("", createCustomerHandler(customersRepo), middleware.StaffOnlyCreate(cfg.Auth.StaffOnlyCreate))
	g.GET("/statistics-summary", summaryStatsHandler(statsSvc))
	g.GET("/:id", getCustomerHandler(customersRepo))
	g.PUT("/:id", updateCustomerHandler(customersRepo, true))
	g.PATCH("/:id", updateCustomerHandler(customersRepo, false))
	g.DELETE("/:id", deleteCustomerHandler(customersRepo))
	g.GET("/:id/statistics", recordStatsHandler(statsSvc))

	return e
}

// requestMetrics counts customer API requests by operation and status class.
func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		op := operationName(c.Request().Method, c.Path())
		if op == "" {
			return err
		}
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
		}
		metrics.RequestsTotal.WithLabelValues(op, strconv.Itoa(status/100)+"xx").Inc()
		return err
	}
}

func operationName(method, path string) string {
	switch path {
	case "/customers":
		if method == http.MethodPost {
			return "create"
		}
		return "list"
	case "/customers/:id":
		switch method {
		case http.MethodPut:
			return "update"
		case http.MethodPatch:
			return "partial_update"
		case http.MethodDelete:
			return "delete"
		}
		return "get"
	case "/customers/:id/statistics":
		return "stats_record"
	case "/customers/statistics-summary":
		return "stats_summary"
	}
	return ""
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo { return s.e }
