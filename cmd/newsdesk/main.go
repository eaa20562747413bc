package main

import (
	"fmt"
	"os"

	"newsdesk/internal/config"
	"newsdesk/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	configPath string
	storeFlag  string
	sqliteFlag string
	redisFlag  string
	badgerFlag string
	roleFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "newsdesk",
	Short:         "newsdesk - manage the news posts of the website",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}

		if cfg.Log.Format == "json" {
			logger, err = zap.NewProduction()
		} else {
			logger, err = zap.NewDevelopment()
		}
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Driver = storeFlag
	}
	if flags.Changed("sqlite") {
		cfg.Store.SQLitePath = sqliteFlag
	}
	if flags.Changed("redis") {
		cfg.Redis.Addr = redisFlag
	}
	if flags.Changed("badger") {
		cfg.Store.BadgerPath = badgerFlag
	}
}

// openStore opens the configured backend. Client mode skips Badger so that
// CLI commands can run next to a serving process holding the Badger lock.
func openStore(clientMode bool) (store.Store, error) {
	policy := store.DefaultPolicy()

	switch cfg.Store.Driver {
	case config.DriverHybrid:
		badgerPath := cfg.Store.BadgerPath
		if clientMode {
			badgerPath = ""
		}
		return store.NewHybridStore(cfg.Redis.Addr, badgerPath, policy, logger)
	case config.DriverREST:
		return store.NewRESTStore(cfg.Store.REST.URL, cfg.Store.REST.APIKey, map[store.Role]string{
			store.RoleAdmin:  cfg.Store.REST.AdminToken,
			store.RoleEditor: cfg.Store.REST.EditorToken,
		}), nil
	default:
		return store.NewSQLiteStore(cfg.Store.SQLitePath, policy)
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "newsdesk.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", config.DriverSQLite, "Store driver: sqlite, hybrid or rest")
	rootCmd.PersistentFlags().StringVar(&sqliteFlag, "sqlite", "data/newsdesk.db", "Path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&redisFlag, "redis", "localhost:6379", "Address of Redis server")
	rootCmd.PersistentFlags().StringVar(&badgerFlag, "badger", "data/badger", "Path to BadgerDB data directory")
	rootCmd.PersistentFlags().StringVar(&roleFlag, "role", string(store.RoleAdmin), "Store role for post commands")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(postsCmd)
	rootCmd.AddCommand(importCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
