package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively write a starter config file",
	Long: `Walk through the server settings and write them to a config file.

You will be prompted for:
  - HTTP port and base URL
  - Metadata store backend and connection string
  - Blob store backend
  - Token signing secret (a random one is generated by default)

The resulting file is read by 'smartdrive serve' on startup.`,
	RunE: runInit,
}

var initOutput string

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "path of the config file to write")
	rootCmd.AddCommand(initCmd)
}

// starterConfig mirrors the config file layout. Only the settings the
// prompts cover are included; everything else falls back to defaults.
type starterConfig struct {
	Server struct {
		Port    int    `yaml:"port"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`
	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`
	Store struct {
		Type string `yaml:"type"`
		DSN  string `yaml:"dsn,omitempty"`
	} `yaml:"store"`
	Blob struct {
		Type   string `yaml:"type"`
		Path   string `yaml:"path,omitempty"`
		Bucket string `yaml:"bucket,omitempty"`
	} `yaml:"blob"`
}

func runInit(_ *cobra.Command, _ []string) error {
	if _, err := os.Stat(initOutput); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", initOutput),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	var cfg starterConfig

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: "5000",
		Validate: func(input string) error {
			port, err := strconv.Atoi(input)
			if err != nil || port < 1 || port > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	baseURLPrompt := promptui.Prompt{
		Label:   "Base URL (used in download links)",
		Default: fmt.Sprintf("http://localhost:%d", cfg.Server.Port),
	}
	cfg.Server.BaseURL, err = baseURLPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	storeSelect := promptui.Select{
		Label: "Metadata store",
		Items: []string{"sqlite", "postgres", "dynamo", "memory"},
	}
	_, cfg.Store.Type, err = storeSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	switch cfg.Store.Type {
	case "sqlite":
		dsnPrompt := promptui.Prompt{Label: "SQLite database file", Default: "smartdrive.db"}
		cfg.Store.DSN, err = dsnPrompt.Run()
	case "postgres":
		dsnPrompt := promptui.Prompt{Label: "Postgres connection string"}
		cfg.Store.DSN, err = dsnPrompt.Run()
	}
	if err != nil {
		return handlePromptError(err)
	}

	blobSelect := promptui.Select{
		Label: "Blob store",
		Items: []string{"filesystem", "s3", "memory"},
	}
	_, cfg.Blob.Type, err = blobSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	switch cfg.Blob.Type {
	case "filesystem":
		pathPrompt := promptui.Prompt{Label: "Storage directory", Default: "./data"}
		cfg.Blob.Path, err = pathPrompt.Run()
	case "s3":
		bucketPrompt := promptui.Prompt{
			Label: "S3 bucket",
			Validate: func(input string) error {
				if input == "" {
					return errors.New("bucket name is required")
				}
				return nil
			},
		}
		cfg.Blob.Bucket, err = bucketPrompt.Run()
	}
	if err != nil {
		return handlePromptError(err)
	}

	generated, err := generateSecret()
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	secretPrompt := promptui.Prompt{
		Label:   "Token signing secret (press Enter for a generated one)",
		Default: generated,
		Mask:    '*',
		Validate: func(input string) error {
			if len(input) < 16 {
				return errors.New("secret must be at least 16 characters")
			}
			return nil
		},
	}
	cfg.Auth.Secret, err = secretPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// The file holds the signing secret, keep it private.
	if err := os.WriteFile(initOutput, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s.\n", initOutput)
	fmt.Println("Start the server with: smartdrive serve")
	return nil
}

// generateSecret returns a 32-byte random secret as hex.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// handlePromptError maps promptui cancellation to a clean exit.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
