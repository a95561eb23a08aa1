package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"flipcheck/internal/alerting"
	"flipcheck/internal/config"
	"flipcheck/internal/ebay"
	"flipcheck/internal/pricing"
	"flipcheck/internal/quota"
	"flipcheck/internal/scheduler"
	"flipcheck/internal/service"
	"flipcheck/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newProvider() *ebay.Client {
	return ebay.NewClient(ebay.Options{
		ClientID:      a.Config.Ebay.ClientID,
		ClientSecret:  a.Config.Ebay.ClientSecret,
		BaseURL:       a.Config.Ebay.BaseURL,
		TokenURL:      a.Config.Ebay.TokenURL,
		MarketplaceID: a.Config.Ebay.MarketplaceID,
		Timeout:       a.Config.Ebay.RequestTimeout,
		RatePerSecond: a.Config.Ebay.RatePerSecond,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn is not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newService(store *storage.Store) *service.Service {
	resolver := pricing.NewResolver(a.newProvider(), a.Logger)
	tracker := quota.NewTracker(store, nil)
	return service.New(a.Config, resolver, tracker, store, a.newNotifier(), a.Logger)
}

// Run executes the long-running engine: it serves no requests itself, but
// keeps the maintenance sweep running until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Maintenance.Interval,
		StartupDelay: a.Config.Maintenance.StartupDelay,
	}, a.Logger)

	a.Logger.Info().
		Dur("interval", a.Config.Maintenance.Interval).
		Msg("starting maintenance loop")

	err = sched.Run(ctx, svc.Sweep)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("maintenance loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("maintenance loop stopped")
	return nil
}

// LookupOptions configure a single price lookup.
type LookupOptions struct {
	UserID      string
	Query       string
	Category    string
	AskingPrice string
}

// UsageOptions configure the usage report.
type UsageOptions struct {
	UserID string
}

// IngestOptions configure a deal submission.
type IngestOptions struct {
	UserID            string
	ExternalListingID string
	Title             string
	SourceURL         string
	AskingPrice       string
	EstimateLow       string
	EstimateHigh      string
	EstimateAvg       string
	Notes             string
}

// SoldOptions configure the sale record.
type SoldOptions struct {
	UserID        string
	DealID        int64
	PurchasePrice string
	SoldPrice     string
}

// DealsOptions configure the deal listing.
type DealsOptions struct {
	UserID string
	Limit  int
}

// ExportOptions hold parameters for exporting price history.
type ExportOptions struct {
	Query     string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// WarmOptions configure the cache warm-up job.
type WarmOptions struct {
	QueriesPath string
	Category    string
	Tier        string
	DryRun      bool
}

// SimulateOptions configure a simulated profit alert.
type SimulateOptions struct {
	Query       string
	AskingPrice string
	Low         string
	High        string
}
