package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/willjrcristo/storefront-billing/docs" // Documentação Swagger
	"github.com/willjrcristo/storefront-billing/internal/auth"
	"github.com/willjrcristo/storefront-billing/internal/config"
	httphandler "github.com/willjrcristo/storefront-billing/internal/handler/http"
	"github.com/willjrcristo/storefront-billing/internal/payment"
	"github.com/willjrcristo/storefront-billing/internal/repository"
	"github.com/willjrcristo/storefront-billing/internal/service"
	"github.com/willjrcristo/storefront-billing/internal/storage"
)

// @title           Storefront Billing API
// @version         1.0
// @description     Webhooks da Stripe, checkout, portal do cliente, downloads assinados e administração do catálogo.
//
// @contact.name   Will Cristo
// @contact.url    https://linkedin.com/in/willjrcristo
// @contact.email  willjrcristo@gmail.com
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// --- 1. LOGGER E CONFIGURAÇÃO ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	slog.Info("Iniciando a Storefront Billing API")

	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Erro ao ler a configuração", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuração incompleta", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. BANCO DE DADOS ---
	db, err := repository.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Erro ao inicializar o banco de dados", "error", err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Conexão com o banco de dados estabelecida", "driver", cfg.DBDriver)

	// --- 3. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	r, err := newApp(ctx, cfg, db, logger)
	if err != nil {
		slog.Error("Erro ao montar a aplicação", "error", err)
		os.Exit(1)
	}

	// --- 4. SERVIDOR HTTP COM DESLIGAMENTO GRACIOSO ---
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Servidor pronto para receber requisições", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Erro ao iniciar o servidor", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Desligando o servidor")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Erro ao desligar o servidor", "error", err)
	}
}

// newApp liga DB -> Repository -> Service -> Handler e devolve o roteador pronto.
func newApp(ctx context.Context, cfg config.Config, db *sql.DB, logger *slog.Logger) (http.Handler, error) {
	profiles := repository.NewProfileRepository(db, cfg.DBDriver)
	events := repository.NewEventRepository(db, cfg.DBDriver)
	catalog := repository.NewCatalogRepository(db, cfg.DBDriver)

	gateway := payment.NewGateway(cfg.Stripe.SecretKey, nil)
	presigner, err := storage.NewPresigner(ctx, storage.Config{
		Endpoint:        cfg.R2.Endpoint,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		Bucket:          cfg.R2.BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("cliente do R2: %w", err)
	}

	reconciler := service.NewReconciler(profiles, gateway, service.ReconcilerConfig{
		Plans:       cfg.Stripe.Plans(),
		DefaultPlan: cfg.Stripe.DefaultPlan,
	}, logger)
	webhookService := service.NewWebhookService(payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret), events, reconciler, service.WebhookOptions{
		EscalateUnresolved: cfg.Stripe.EscalateUnresolved,
		Recorder:           webhookMetrics{},
	}, logger)
	checkoutService := service.NewCheckoutService(gateway, service.CheckoutPrices{
		IndividualMonthly: cfg.Stripe.IndividualMonthlyPriceID,
		IndividualAnnual:  cfg.Stripe.IndividualAnnualPriceID,
		Business:          cfg.Stripe.BusinessPriceID,
	}, cfg.SiteURL)
	accountService := service.NewAccountService(profiles, gateway, presigner, cfg.SiteURL, cfg.R2.DownloadTTL, logger)
	catalogService := service.NewCatalogService(catalog)

	return newRouter(
		httphandler.NewStripeWebhookHandler(webhookService),
		httphandler.NewCatalogHandler(catalogService, cfg.AdminKey),
		httphandler.NewBillingHandler(checkoutService, accountService, auth.NewVerifier(cfg.AuthJWTSecret)),
	), nil
}

// newRouter monta os middlewares e todas as rotas da API.
func newRouter(webhooks *httphandler.StripeWebhookHandler, catalog *httphandler.CatalogHandler, billing *httphandler.BillingHandler) chi.Router {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Admin-Key"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Storefront Billing API está no ar!"))
	})

	r.Handle("/metrics", promhttp.Handler())

	// A URL será http://localhost:8080/swagger/index.html
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/stripe-webhook", webhooks.Routes())
		r.Mount("/admin-track", catalog.Routes())
		r.Mount("/", billing.Routes())
	})

	return r
}
