package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rkotari/smartdrive/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "smartdrive",
	Short:   "Authenticated file storage server with presigned downloads",
	Long: `SmartDrive is a small file storage backend. Users sign up and log in
with email and password, then upload, list, and delete files over a REST
API. Downloads go through short-lived presigned URLs so file content is
never proxied through the API itself.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init writes the config file, so it must run without one.
		if cmd.Name() == "init" {
			setupLogging("info")
			return nil
		}

		configFiles, _ := cmd.Flags().GetStringSlice("config")
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log.Level)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path(s), later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().Int("port", 0, "HTTP server port (default: 5000, env: SMARTDRIVE_SERVER_PORT)")
	rootCmd.PersistentFlags().String("store-type", "", "metadata store: memory, sqlite, postgres, dynamo (default: sqlite, env: SMARTDRIVE_STORE_TYPE)")
	rootCmd.PersistentFlags().String("store-dsn", "", "metadata store connection string (default: smartdrive.db, env: SMARTDRIVE_STORE_DSN)")
	rootCmd.PersistentFlags().String("blob-type", "", "blob store: memory, filesystem, s3 (default: filesystem, env: SMARTDRIVE_BLOB_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem blob directory (default: ./data, env: SMARTDRIVE_BLOB_PATH)")
	rootCmd.PersistentFlags().String("secret", "", "token signing secret (env: SMARTDRIVE_AUTH_SECRET)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
