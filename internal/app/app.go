package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/andy/billhours/internal/config"
	"github.com/andy/billhours/internal/crypto"
	"github.com/andy/billhours/internal/db"
	"github.com/andy/billhours/internal/logging"
	"github.com/andy/billhours/internal/repository"
	"github.com/andy/billhours/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB
	Logger zerolog.Logger

	Repos service.Repos

	// Services
	ContractService service.ContractService
	ReportService   service.ReportService
}

// New loads the default config and builds the App. It handles:
// 1. Loading config
// 2. Getting the encryption key from the environment or keyring
// 3. Opening the database and running migrations
// 4. Creating repositories and services
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates an App with a provided config
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logger := logging.New(cfg.Log, os.Stderr)

	password, err := encryptionKey(crypto.NewKeyring())
	if err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := database.Version()
	if err != nil {
		database.Close()
		return nil, err
	}

	a := NewWithDB(cfg, database, logger)
	logger.Debug().Str("path", cfg.Database.Path).Int("schema_version", version).Msg("database ready")
	return a, nil
}

// NewWithDB wires repositories and services over an open, migrated database
func NewWithDB(cfg *config.Config, database *db.DB, logger zerolog.Logger) *App {
	repos := service.Repos{
		Projects:   repository.NewProjectRepo(database),
		Users:      repository.NewUserRepo(database),
		Categories: repository.NewCategoryRepo(database),
		Contracts:  repository.NewContractRepo(database),
		Entries:    repository.NewEntryRepo(database),
		Rates:      repository.NewRateRepo(database),
		Ledger:     repository.NewLedgerRepo(database),
	}

	opts := service.Options{
		SmartTimeEntries:       cfg.Allocation.SmartTimeEntries,
		LegacySingleEntryRange: cfg.Allocation.LegacySingleEntryRange,
		ShowLockedContracts:    cfg.Display.ShowLockedContracts,
		Logger:                 logger,
	}

	return &App{
		Config:          cfg,
		DB:              database,
		Logger:          logger,
		Repos:           repos,
		ContractService: service.NewContractService(repos, opts),
		ReportService:   service.NewReportService(repos, opts),
	}
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(config.DefaultConfigPath())
}

// encryptionKey returns the stored key, prompting for a new one on first run
func encryptionKey(keyring crypto.Keyring) (string, error) {
	password, err := keyring.GetKey()
	if err == nil {
		return password, nil
	}
	if !errors.Is(err, crypto.ErrNoKey) {
		return "", err
	}

	if !keyring.IsAvailable() || !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no database key: set %s", crypto.EnvKey)
	}

	fmt.Println("Setting up database encryption for the first time...")
	password, err = promptForPassword(os.Stdout)
	if err != nil {
		return "", fmt.Errorf("failed to set password: %w", err)
	}

	if err := keyring.SetKey(password); err != nil {
		return "", fmt.Errorf("failed to store encryption key: %w", err)
	}
	return password, nil
}

// promptForPassword asks for a new database password twice without echo
func promptForPassword(out io.Writer) (string, error) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Your billing data will be encrypted with a password.")
	fmt.Fprint(out, "Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Fprint(out, "Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(password), nil
}
