package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cbsvault/paymentvault/internal/callbacklog"
	"github.com/cbsvault/paymentvault/internal/charges"
	"github.com/cbsvault/paymentvault/internal/collections"
	"github.com/cbsvault/paymentvault/internal/config"
	"github.com/cbsvault/paymentvault/internal/disbursement"
	"github.com/cbsvault/paymentvault/internal/ledger"
	"github.com/cbsvault/paymentvault/internal/middleware"
	"github.com/cbsvault/paymentvault/internal/partner"
	"github.com/cbsvault/paymentvault/internal/topup"
	"github.com/cbsvault/paymentvault/internal/wallet"
	"github.com/cbsvault/paymentvault/internal/webhook"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Storage backends: PostgreSQL when configured, in-memory for local runs.
	var (
		ledgerBackend  ledger.Ledger
		partnerRepo    partner.Repository
		callbackLog    callbacklog.Log
		chargeRepo     charges.Repository
		disbRepo       disbursement.Repository
		collectionRepo collections.Repository
		topupRepo      topup.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		partnerRepo = partner.NewPostgresRepository(d.DB)
		callbackLog = callbacklog.NewPostgresLog(d.DB)
		chargeRepo = charges.NewPostgresRepository(d.DB)
		disbRepo = disbursement.NewPostgresRepository(d.DB)
		collectionRepo = collections.NewPostgresRepository(d.DB)
		topupRepo = topup.NewPostgresRepository(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
		partnerRepo = partner.NewMemoryRepository()
		callbackLog = callbacklog.NewMemoryLog()
		chargeRepo = charges.NewMemoryRepository()
		disbRepo = disbursement.NewMemoryRepository()
		collectionRepo = collections.NewMemoryRepository()
		topupRepo = topup.NewMemoryRepository()
	}

	partnerSvc := partner.NewService(partnerRepo)
	walletSvc := wallet.NewService(ledgerBackend)

	var notifier webhook.Notifier
	if d.Cfg.OriginWebhookURL != "" {
		notifier = webhook.NewHTTPNotifier(d.Cfg.OriginWebhookURL, d.Cfg.OriginWebhookTimeout, d.Cfg.OriginWebhookInsecure)
	} else {
		notifier = webhook.NewLoggerNotifier(d.Logger)
	}

	settlement := charges.NewSettlement(chargeRepo, ledgerBackend, disbursement.StatusChecker(disbRepo), d.Logger)

	var disbClient disbursement.Client
	var topupClient topup.Client
	if d.Cfg.ProviderBaseURL != "" {
		disbClient = disbursement.NewHTTPClient(d.Cfg.ProviderBaseURL, d.Cfg.ProviderShortCode, d.Cfg.ProviderTimeout)
		topupClient = topup.NewHTTPClient(d.Cfg.ProviderBaseURL, d.Cfg.ProviderAPIKey, d.Cfg.ProviderTimeout)
	} else {
		disbClient = disbursement.StaticClient{}
		topupClient = topup.StaticClient{}
	}

	disbSvc := disbursement.NewService(disbRepo, ledgerBackend, settlement, disbClient,
		d.Cfg.ResultCallbackURL, d.Cfg.TimeoutCallbackURL, d.Logger)
	reconciler := disbursement.NewReconciler(disbRepo, settlement, callbackLog, notifier, d.Logger)
	disbHandler := disbursement.NewHandler(disbSvc, reconciler)

	collectionSvc := collections.NewService(collectionRepo, partnerRepo, ledgerBackend, callbackLog,
		collections.Credentials{
			ShortCode:     d.Cfg.PaybillShortCode,
			Username:      d.Cfg.PaybillUsername,
			Password:      d.Cfg.PaybillPassword,
			SecretKey:     d.Cfg.PaybillSecretKey,
			AccountNumber: d.Cfg.PaybillAccount,
		}, d.Cfg.AccountSeparator, d.Logger)
	collectionHandler := collections.NewHandler(collectionSvc)

	topupSvc := topup.NewService(topupRepo, ledgerBackend, topupClient, callbackLog, d.Cfg.TopupCallbackURL, d.Logger)
	topupHandler := topup.NewHandler(topupSvc)

	walletHandler := wallet.NewHandler(walletSvc)
	partnerHandler := partner.NewHandler(partnerSvc)

	// Provider-facing webhooks: no authentication beyond each payload's own
	// validation, never idempotency-keyed.
	RegisterCallbackRoutes(app, disbHandler, collectionHandler, topupHandler)

	// Partner-facing API.
	api := app.Group("/api/v1", middleware.PartnerAuth(partnerSvc))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	if d.Cache != nil {
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	verifyLimit := middleware.VerifyAttemptLimit(d.Cache, d.Cfg.VerifyMaxAttempts, d.Cfg.VerifyWindow)
	RegisterDisbursementRoutes(api, disbHandler)
	RegisterTopupRoutes(api, topupHandler, verifyLimit)
	RegisterWalletRoutes(api, walletHandler)

	// Operator endpoints.
	admin := app.Group("/admin", middleware.AdminAuth(d.Cfg.AdminAPIKey))
	RegisterAdminRoutes(admin, partnerHandler, walletHandler)

	return nil
}
