package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"pi-gateway/config"
	"pi-gateway/handlers"
	"pi-gateway/ledger"
	"pi-gateway/lock"
	"pi-gateway/logging"
	"pi-gateway/monitoring"
	"pi-gateway/piplatform"
	"pi-gateway/service"
	"pi-gateway/settlement"
)

func main() {
	// Initialize structured logging
	if err := logging.InitLogger(); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logging.Sync()
	defer func() {
		if err := logging.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()

	// Load configuration
	cfg := config.Load()

	// Initialize OpenTelemetry
	tp, tracer, err := monitoring.InitTracer(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	mp, _, err := monitoring.InitMeter(cfg.ServiceName, cfg.OTELEndpoint)
	if err != nil {
		logging.Fatal("Failed to initialize meter", zap.Error(err))
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logging.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Wire the domain: platform client, the two fixed ledgers, settlement.
	platform := piplatform.New(cfg.PiPlatformURL, cfg.PiAPIKey)
	mainnet := ledger.New(cfg.HorizonMainnetURL, ledger.PassphraseMainnet)
	testnet := ledger.New(cfg.HorizonTestnetURL, ledger.PassphraseTestnet)
	settler := settlement.New(cfg.WalletSecret, cfg.WalletAddress, mainnet, testnet)

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		locker = lock.NewRedis(cfg.RedisAddr)
		logging.Info("Advisory locking enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	gateway := service.New(cfg, platform, settler, locker, tracer)
	paymentHandler := handlers.New(gateway, platform)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		// Generic 500 with the panic message; never a stack trace.
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprint(recovered)})
	}))
	r.Use(requestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	// OpenTelemetry middleware
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMetricsMiddleware())

	// Routes
	r.GET("/health", paymentHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/api/payments", paymentHandler.HandleAction)

	// Start server
	logging.Info("Pi payment gateway starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logging.Fatal("Failed to start server", zap.Error(err))
	}
}

// requestIDMiddleware attaches a request id for log correlation, honoring one
// supplied by the caller.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// httpMetricsMiddleware records HTTP request metrics
func httpMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		if monitoring.HTTPServerDuration == nil {
			return
		}
		duration := float64(time.Since(start).Milliseconds())
		monitoring.HTTPServerDuration.Record(c.Request.Context(), duration,
			metric.WithAttributes(
				attribute.String("http_method", c.Request.Method),
				attribute.String("http_route", c.FullPath()),
				attribute.String("http_status_code", strconv.Itoa(c.Writer.Status())),
			),
		)
	}
}
