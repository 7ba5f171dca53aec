// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/odin/internal/config"
	"github.com/xkilldash9x/odin/internal/observability"
)

// ErrInterrupted is returned when a run ends because of a signal or Stop.
var ErrInterrupted = errors.New("interrupted")

// ErrRunFailed is returned when the agent finished without success.
var ErrRunFailed = errors.New("task did not succeed")

// app carries per-invocation state shared by the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree. Each call has its own Viper
// instance so flags never leak between invocations.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "odin",
		Short:         "Odin drives a desktop browser with a vision model.",
		Long:          "Odin observes the screen, asks a vision model for the next action and performs it with human-like input until the task is done.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			return a.initialize(cmd)
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "odin version %s\n" .Version}}`)
	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.odin/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newInteractiveCmd(a))
	rootCmd.AddCommand(newRunsCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrInterrupted) && !errors.Is(err, ErrRunFailed) {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initialize reads configuration, applies flag overrides, validates and
// starts the logger.
func (a *app) initialize(cmd *cobra.Command) error {
	if err := readConfig(a.v, a.cfgFile); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		a.v.Set("logger.level", f.Value.String())
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "odin"}, zapcore.Lock(os.Stderr))
		return err
	}
	a.cfg = cfg

	// Logs go to stderr so that stdout stays readable in the REPL.
	observability.Initialize(cfg.Logger(), zapcore.Lock(os.Stderr))
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("config_file", a.v.ConfigFileUsed()), zap.String("version", Version))
	return nil
}

// readConfig loads defaults, the optional YAML file and ODIN_ environment
// variables into v.
func readConfig(v *viper.Viper, cfgFile string) error {
	config.SetDefaults(v)

	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".odin"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("ODIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
