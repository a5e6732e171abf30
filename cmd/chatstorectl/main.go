package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ospreychat/chatstore/internal/config"
	"github.com/ospreychat/chatstore/internal/database"
	"github.com/ospreychat/chatstore/internal/logging"
	"github.com/ospreychat/chatstore/internal/store"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "chatstorectl",
		Short: "Maintenance tooling for the on-device chat store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(statsCmd(), backupCmd(), wipeCmd(), destroyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().Int("busy-timeout-ms", defaults.GetInt("database.busy_timeout_ms"), "SQLite busy timeout in milliseconds")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")

	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.busy_timeout_ms", "busy-timeout-ms")
	bindFlag(cmd, "log.level", "log-level")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func loadEnvironment() (config.AppConfig, *zap.Logger, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return appConfig, logger, nil
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-table row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := database.OpenSQLite(appConfig.DatabasePath, appConfig.BusyTimeoutMS, logger)
			if err != nil {
				return err
			}

			tables := []interface {
				TableName() string
			}{
				store.Contact{},
				store.Message{},
				store.Group{},
				store.GroupMember{},
				store.GroupMessage{},
				store.FileTransfer{},
			}
			for _, table := range tables {
				var count int64
				if err := db.Table(table.TableName()).Count(&count).Error; err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", table.TableName(), count)
			}
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the store file aside under a unique name",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			destination := filepath.Join(outputDir, fmt.Sprintf("backup-%s.db", uuid.NewString()))
			if err := copyFile(appConfig.DatabasePath, destination); err != nil {
				return err
			}

			logger.Info("backup written", zap.String("destination", destination))
			fmt.Fprintln(cmd.OutOrStdout(), destination)
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory to write the backup into")
	return cmd
}

func wipeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wipe",
		Short: "Drop all tables, keeping the file",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			db, err := database.OpenSQLite(appConfig.DatabasePath, appConfig.BusyTimeoutMS, logger)
			if err != nil {
				return err
			}
			return database.Wipe(db, logger)
		},
	}
}

func destroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Delete the backing file",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return database.Destroy(appConfig.DatabasePath, logger)
		},
	}
}

func copyFile(source, destination string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
