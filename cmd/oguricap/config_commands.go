package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/melodiabl/OguriCap-Bot-sub001/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.library_dir", cfg.Paths.LibraryDir},
				{"paths.staging_dir", cfg.Paths.StagingDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"delivery.max_transfer_bytes", fmt.Sprintf("%d", cfg.Delivery.MaxTransferBytes)},
				{"delivery.timeout_seconds", fmt.Sprintf("%d", cfg.Delivery.TimeoutSeconds)},
				{"chooser.attempt_timeout_seconds", fmt.Sprintf("%d", cfg.Chooser.AttemptTimeoutSeconds)},
				{"chooser.max_rows", fmt.Sprintf("%d", cfg.Chooser.MaxRows)},
				{"resolution.confirmation_ttl_minutes", fmt.Sprintf("%d", cfg.Resolution.ConfirmationTTLMinutes)},
				{"dedupe.window_seconds", fmt.Sprintf("%d", cfg.Dedupe.WindowSeconds)},
				{"events.webhook_url", cfg.Events.WebhookURL},
				{"classifier.rules_path", cfg.Classifier.RulesPath},
				{"auth.owner_id", cfg.Auth.OwnerID},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Key", "Value"}, rows))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := os.WriteFile(target, []byte(config.SampleConfig()), 0o644); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set auth.owner_id before running the engine.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
