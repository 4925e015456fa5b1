// Package commands implements the pdf-compressor CLI.
package commands

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spherical/pdf-compressor/internal/config"
	"github.com/spherical/pdf-compressor/internal/observability"
	"github.com/spherical/pdf-compressor/internal/ui"
	"github.com/spherical/pdf-compressor/pkg/compressor"
)

const version = "1.0.0"

var (
	cfgFile string
	verbose bool
	noColor bool

	cfg    *config.Config
	logger *observability.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdf-compressor",
	Short: "Shrink PDFs by re-rendering every page as a JPEG image",
	Long: `pdf-compressor rasterizes each page of a PDF, re-encodes it as a lossy JPEG
at a chosen quality and resolution, and rebuilds a smaller PDF from the images.
Text selection and vector fidelity are not preserved.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load() // Ignore error if .env doesn't exist

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Observability.LogLevel
		if verbose {
			level = "debug"
		}
		logger = observability.NewLogger(observability.LogConfig{
			Level:       level,
			Format:      cfg.Observability.LogFormat,
			ServiceName: cfg.Observability.ServiceName,
		})

		ui.SetColor(!noColor)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("CONFIG_PATH"), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		return err
	}
	return nil
}

// newClient wires a library client from the loaded configuration.
func newClient() *compressor.Client {
	objectStreams := cfg.Compression.ObjectStreams
	return compressor.NewClientWithConfig(&compressor.Config{
		Logger:        logger,
		YieldDelay:    cfg.Compression.YieldDelay,
		ObjectStreams: &objectStreams,
	})
}
