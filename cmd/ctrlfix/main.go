package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Cyph3rcat/ctrlfix/internal/cli"
	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/flow"
	"github.com/Cyph3rcat/ctrlfix/internal/genai"
	"github.com/Cyph3rcat/ctrlfix/internal/intent"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
	"github.com/Cyph3rcat/ctrlfix/internal/pricing"
	"github.com/Cyph3rcat/ctrlfix/internal/sheets"
	"github.com/Cyph3rcat/ctrlfix/internal/store"
	"github.com/Cyph3rcat/ctrlfix/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for ctrlfix state data
	DefaultStateDir = "/var/lib/ctrlfix"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "ctrlfix.db"
)

func main() {
	initializeLogger()

	envCfg := loadEnvironmentConfig()
	flags := parseCommandLineFlags(envCfg)

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		slog.Error("Failed to load flow configuration", "error", err)
		os.Exit(1)
	}
	if secs := util.ParseIntEnv("CTRLFIX_COLLAB_TIMEOUT_SECS", 0); secs > 0 {
		cfg.CollaboratorTimeout = time.Duration(secs) * time.Second
		slog.Debug("Collaborator timeout overridden from environment", "seconds", secs)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open ticket store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	gen, err := buildGenAI(flags)
	if err != nil {
		slog.Error("Failed to initialize GenAI client", "error", err)
		os.Exit(1)
	}

	detector := intent.NewRuleBasedDetector()
	prices := buildPricing(flags, cfg)
	remote := buildRemoteSync(flags, cfg)

	engine := flow.NewEngine(cfg, detector, gen, prices, st, remote)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := newSession()
	ui := cli.New(engine, os.Stdin, os.Stdout)
	slog.Info("Bootstrapping ctrlfix session", "ticketID", session.TicketID)
	if err := ui.Run(ctx, session); err != nil {
		slog.Error("ctrlfix session failed", "error", err, "ticketID", session.TicketID)
		os.Exit(1)
	}
	slog.Info("ctrlfix exited successfully", "ticketID", session.TicketID)
}

// Config holds environment configuration
type Config struct {
	DbDriver   string
	DbDSN      string
	StateDir   string
	OpenAIKey  string
	SerpAPIKey string
	SheetURL   string
	ConfigPath string
}

// Flags holds command line flag values
type Flags struct {
	stateDir   *string
	dbDriver   *string
	dbDSN      *string
	openaiKey  *string
	serpAPIKey *string
	sheetURL   *string
	configPath *string
	inMemory   *bool
}

// initializeLogger sets up structured logging. CTRLFIX_DEBUG raises the level
// so conversation logs stay quiet by default.
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("CTRLFIX_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	envCfg := Config{
		DbDriver:   os.Getenv("CTRLFIX_DB_DRIVER"),
		DbDSN:      os.Getenv("DATABASE_URL"),
		StateDir:   util.GetEnvOrDefault("CTRLFIX_STATE_DIR", DefaultStateDir),
		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		SerpAPIKey: os.Getenv("SERPAPI_API_KEY"),
		SheetURL:   os.Getenv("SHEET_WEBHOOK_URL"),
		ConfigPath: os.Getenv("CTRLFIX_CONFIG"),
	}

	if envCfg.DbDSN == "" {
		envCfg.DbDSN = filepath.Join(envCfg.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", envCfg.DbDSN)
	}

	slog.Debug("environment variables loaded",
		"CTRLFIX_DB_DRIVER", envCfg.DbDriver,
		"DATABASE_URL_SET", envCfg.DbDSN != "",
		"CTRLFIX_STATE_DIR", envCfg.StateDir,
		"OPENAI_API_KEY_SET", envCfg.OpenAIKey != "",
		"SERPAPI_API_KEY_SET", envCfg.SerpAPIKey != "",
		"SHEET_WEBHOOK_URL_SET", envCfg.SheetURL != "",
		"CTRLFIX_CONFIG", envCfg.ConfigPath)

	return envCfg
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(envCfg Config) Flags {
	flags := Flags{
		stateDir:   flag.String("state-dir", envCfg.StateDir, "state directory for ctrlfix data (overrides $CTRLFIX_STATE_DIR)"),
		dbDriver:   flag.String("db-driver", envCfg.DbDriver, "database driver for the ticket store (overrides $CTRLFIX_DB_DRIVER)"),
		dbDSN:      flag.String("db-dsn", envCfg.DbDSN, "database DSN for the ticket store (overrides $DATABASE_URL)"),
		openaiKey:  flag.String("openai-api-key", envCfg.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		serpAPIKey: flag.String("serpapi-key", envCfg.SerpAPIKey, "product search API key for part pricing (overrides $SERPAPI_API_KEY)"),
		sheetURL:   flag.String("sheet-webhook", envCfg.SheetURL, "webhook URL for remote ticket sync (overrides $SHEET_WEBHOOK_URL)"),
		configPath: flag.String("config", envCfg.ConfigPath, "path to a YAML flow configuration (overrides $CTRLFIX_CONFIG)"),
		inMemory:   flag.Bool("in-memory", false, "keep tickets in memory instead of a database"),
	}

	flag.Parse()

	// Follow a moved state directory when the DSN was derived from it.
	if *flags.dbDSN == envCfg.DbDSN && envCfg.DbDSN == filepath.Join(envCfg.StateDir, DefaultDBFileName) && *flags.stateDir != envCfg.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"serpKeySet", *flags.serpAPIKey != "",
		"sheetURLSet", *flags.sheetURL != "",
		"configPath", *flags.configPath,
		"inMemory", *flags.inMemory)

	return flags
}

// openStore picks the ticket store backend from the flags: in-memory when
// requested, otherwise PostgreSQL or SQLite by DSN shape.
func openStore(flags Flags) (store.Store, error) {
	if *flags.inMemory {
		slog.Debug("Using in-memory ticket store")
		return store.NewInMemoryStore(), nil
	}
	driver := *flags.dbDriver
	if driver == "" {
		driver = store.DetectDSNType(*flags.dbDSN)
	}
	if driver == "postgres" {
		slog.Debug("Opening PostgreSQL ticket store", "dsn_set", *flags.dbDSN != "")
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN))
	}
	slog.Debug("Opening SQLite ticket store", "db_path", *flags.dbDSN)
	return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
}

// buildGenAI constructs the generative collaborator from the flags.
func buildGenAI(flags Flags) (genai.ClientInterface, error) {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genai.NewClient(opts...)
}

// buildPricing picks the price lookup: the live product search when a key is
// configured, the static catalog otherwise.
func buildPricing(flags Flags, cfg *config.Config) pricing.Lookup {
	if *flags.serpAPIKey != "" {
		lookup, err := pricing.NewSerpClient(
			pricing.WithAPIKey(*flags.serpAPIKey),
			pricing.WithTimeout(cfg.CollaboratorTimeout),
		)
		if err == nil {
			slog.Debug("Using live product search for part pricing")
			return lookup
		}
		slog.Error("Failed to initialize product search pricing, falling back to static catalog", "error", err)
	}
	slog.Debug("No product search key configured, using static price catalog")
	return pricing.NewStaticCatalog()
}

// buildRemoteSync picks the remote ticket sync backend.
func buildRemoteSync(flags Flags, cfg *config.Config) sheets.Appender {
	if *flags.sheetURL != "" {
		slog.Debug("Remote ticket sync enabled")
		return sheets.NewWebhookAppender(*flags.sheetURL, cfg.CollaboratorTimeout)
	}
	slog.Debug("No sheet webhook configured, remote sync disabled")
	return sheets.NoopAppender{}
}

func newSession() *models.Session {
	return models.NewSession(util.NewTicketID())
}
