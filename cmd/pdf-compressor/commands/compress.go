package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/ui"
)

var outputPath string

var compressCmd = &cobra.Command{
	Use:   "compress <input.pdf>",
	Short: "Compress a PDF by rasterizing and re-encoding every page",
	Example: `  pdf-compressor compress brochure.pdf
  pdf-compressor compress -o small.pdf --preset max brochure.pdf
  pdf-compressor compress --quality 60 --scale 2 scan.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(cmd, args[0])
	},
}

func init() {
	compressCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default: <input-name>-compressed.pdf)")
	addSettingsFlags(compressCmd)
	rootCmd.AddCommand(compressCmd)
}

func runCompress(cmd *cobra.Command, inputPath string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		baseName := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		out = filepath.Join(filepath.Dir(inputPath), baseName+"-compressed.pdf")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Info("Compressing %s (quality %d, scale %.2fx)", inputPath, settings.Quality, settings.Scale)

	progress := ui.NewProgress(verbose)
	result, err := newClient().CompressFile(ctx, inputPath, settings, progress.Handle)
	progress.Stop()
	if err != nil {
		return err
	}

	if err := os.WriteFile(out, result.Bytes, 0644); err != nil {
		return domain.IOError("failed to write output file", err)
	}

	ui.Summary(result, out)
	if result.ReductionPercent <= 0 {
		ui.Warning("Output is not smaller than the input; try a lower quality or scale")
	}
	return nil
}
