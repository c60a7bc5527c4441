package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/example/wordbot/internal/ai"
	"github.com/example/wordbot/internal/bot"
	"github.com/example/wordbot/internal/config"
	"github.com/example/wordbot/internal/database"
	"github.com/example/wordbot/internal/ecdict"
	"github.com/example/wordbot/internal/health"
	"github.com/example/wordbot/internal/scheduler"
	"github.com/example/wordbot/internal/translation"
	"github.com/example/wordbot/internal/upload"
	"github.com/example/wordbot/internal/wordlist"
)

func main() {
	importCSV := flag.String("import-ecdict", "", "import an ECDICT CSV into the dictionary database and exit")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *importCSV != "" {
		res, err := ecdict.ImportCSV(ctx, *importCSV, cfg.Dictionary.Path)
		if err != nil {
			logger.Fatal("Failed to import dictionary", zap.Error(err))
		}
		logger.Info("Dictionary imported",
			zap.String("path", cfg.Dictionary.Path),
			zap.Int("processed", res.TotalProcessed),
			zap.Int("created", res.Created),
			zap.Int("skipped", res.Skipped),
		)
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Bot stopped with error", zap.Error(err))
	}
	logger.Info("Bot stopped successfully")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg.Level = level
	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	db, err := database.Connect(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	users := database.NewUserRepository(db).WithDefaults(cfg.Delivery.IntervalMin, cfg.Delivery.IntervalMax, cfg.Wordlists.Default)
	history := database.NewHistoryRepository(db)
	cache := database.NewTranslationCacheRepository(db)

	store := wordlist.NewStore(cfg.Wordlists.SystemDir, cfg.Wordlists.UserDir, cfg.Wordlists.Default, logger.Named("wordlist"))
	if err := store.Scan(); err != nil {
		return fmt.Errorf("failed to scan wordlists: %w", err)
	}
	store.LoadDefault()

	var dict translation.Dictionary
	d, err := ecdict.Open(cfg.Dictionary.Path)
	switch {
	case err == nil:
		dict = d
		defer func() { err = multierr.Append(err, d.Close()) }()
	case errors.Is(err, ecdict.ErrUnavailable):
		logger.Warn("Local dictionary not found, using fallback provider only", zap.String("path", cfg.Dictionary.Path))
	default:
		return fmt.Errorf("failed to open dictionary: %w", err)
	}

	gen, closeGen, err := newGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeGen()) }()

	resolver := translation.NewResolver(cache, dict, gen, logger.Named("translation")).
		WithPromptTemplate(cfg.Fallback.PromptTemplate)
	importer := upload.NewImporter(store, cfg.Upload.MaxBytes, logger.Named("upload"))

	b, err := bot.New(cfg.Telegram.Token, bot.Deps{
		Users:      users,
		History:    history,
		Wordlists:  store,
		Translator: resolver,
		Uploader:   importer,
		Logger:     logger.Named("bot"),
	})
	if err != nil {
		return err
	}

	sched := scheduler.New(users, history, store, b, logger.Named("scheduler"))
	b.AttachScheduler(sched)
	sched.Start()
	defer sched.Stop()

	if cfg.Delivery.ResumeOnStart {
		n, err := sched.Resume(ctx)
		if err != nil {
			logger.Error("Failed to resume deliveries", zap.Error(err))
		}
		logger.Info("Deliveries resumed", zap.Int("chats", n))
	}

	if cfg.Health.Addr != "" {
		hs := health.NewServer(cfg.Health.Addr, sched, logger.Named("health"))
		go func() {
			if err := hs.Start(); err != nil {
				logger.Error("Health server error", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, hs.Stop(shutdownCtx))
		}()
	}

	logger.Info("Bot started. Press Ctrl+C to stop.")
	return b.Run(ctx)
}

// newGenerator builds the configured fallback provider; a nil generator disables the fallback
func newGenerator(ctx context.Context, cfg *config.Config) (translation.Generator, func() error, error) {
	noop := func() error { return nil }
	timeout := time.Duration(cfg.Fallback.TimeoutSeconds) * time.Second

	switch cfg.Fallback.Provider {
	case "openai":
		return ai.NewOpenAIClient(ai.OpenAIConfig{
			BaseURL: cfg.Fallback.BaseURL,
			APIKey:  cfg.Fallback.APIKey,
			Model:   cfg.Fallback.Model,
			Timeout: timeout,
		}), noop, nil
	case "gemini":
		model := cfg.Fallback.Model
		if model == config.DefaultFallbackModel {
			model = ai.DefaultGeminiModel
		}
		client, err := ai.NewGeminiClient(ctx, cfg.Fallback.APIKey, model)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, client.Close, nil
	case "none":
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown fallback provider %q", cfg.Fallback.Provider)
	}
}
