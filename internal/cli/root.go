// Package cli implements the syllabus admin command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jacentio/syllabus/catalog"
	"github.com/jacentio/syllabus/dynamo"
	"github.com/jacentio/syllabus/internal/config"
	"github.com/jacentio/syllabus/memstore"
	"github.com/jacentio/syllabus/schema"
	"github.com/jacentio/syllabus/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	Format     string // "json" | "text"
	Offline    bool
	Policy     string
	Verbose    bool

	env *Env
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Env is what a command runs against.
type Env struct {
	Registry *schema.Registry
	Store    *store.Store
	Logger   *zap.Logger
}

// NewRootCommand creates the root command for the syllabus CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syllabus",
		Short: "Inspect and patch training-admin entities",
		Long: `syllabus reads and patches courses, customers, catalog items and quizzes
stored in DynamoDB. Without credentials, or with --offline, it serves the
built-in fallback dataset instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Policy != "" {
				if _, err := store.ParseFallbackPolicy(opts.Policy); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", os.Getenv("SYLLABUS_CONFIG"), "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Offline, "offline", false, "serve the fallback dataset without contacting DynamoDB")
	cmd.PersistentFlags().StringVar(&opts.Policy, "policy", "", "fallback policy (never|missing-credentials|any-transport-error)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewEntitiesCommand(opts))
	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewPatchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Env builds the environment on first use.
func (o *RootOptions) Env(ctx context.Context) (*Env, error) {
	if o.env != nil {
		return o.env, nil
	}

	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.Offline {
		cfg.Offline = true
	}
	if o.Policy != "" {
		cfg.FallbackPolicy = o.Policy
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	fallback, err := loadFallback(cfg, reg)
	if err != nil {
		return nil, err
	}
	sc, err := cfg.StoreConfig()
	if err != nil {
		return nil, err
	}

	storeOpts := []store.Option{
		store.WithFallback(fallback),
		store.WithLogger(logger),
		store.WithMetrics(store.NewMetrics(cfg.MetricsNamespace)),
	}
	var live store.Adapter
	if !cfg.Offline {
		client, awsCfg, err := dynamo.NewClient(ctx, cfg.ClientOptions())
		if err != nil {
			logger.Warn("dynamodb unavailable, using fallback dataset", zap.Error(err))
		} else {
			live = dynamo.New(client, logger)
			storeOpts = append(storeOpts, store.WithCredentials(dynamo.CredentialSource(awsCfg.Credentials)))
		}
	}

	o.env = &Env{
		Registry: reg,
		Store:    store.New(reg, live, sc, storeOpts...),
		Logger:   logger,
	}
	return o.env, nil
}

func loadRegistry(cfg *config.Config) (*schema.Registry, error) {
	if cfg.SchemaFile == "" {
		return catalog.NewRegistry()
	}
	f, err := os.Open(cfg.SchemaFile)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()

	reg := schema.NewRegistry()
	if err := reg.RegisterYAML(f); err != nil {
		return nil, fmt.Errorf("schema %s: %w", cfg.SchemaFile, err)
	}
	return reg, nil
}

func loadFallback(cfg *config.Config, reg *schema.Registry) (*memstore.Repository, error) {
	if cfg.SeedFile == "" {
		return catalog.NewFallback(reg)
	}
	f, err := os.Open(cfg.SeedFile)
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	repo := memstore.New(reg)
	if err := repo.SeedYAML(f); err != nil {
		return nil, fmt.Errorf("seed %s: %w", cfg.SeedFile, err)
	}
	return repo, nil
}
