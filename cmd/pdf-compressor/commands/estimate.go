package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spherical/pdf-compressor/internal/compress"
	"github.com/spherical/pdf-compressor/internal/domain"
	"github.com/spherical/pdf-compressor/internal/ui"
)

var estimateSize int64

var estimateCmd = &cobra.Command{
	Use:   "estimate [input.pdf]",
	Short: "Preview the expected output size without compressing",
	Long: `Estimate applies a rough heuristic to the input size and settings.
The range is a preview only; real results depend on page content.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := resolveSettings(cmd)
		if err != nil {
			return err
		}

		size := estimateSize
		if len(args) == 1 {
			info, err := os.Stat(args[0])
			if err != nil {
				return domain.ValidationError(fmt.Sprintf("cannot access file: %s", args[0]), err)
			}
			size = info.Size()
		}
		if size <= 0 {
			return domain.ValidationError("provide an input file or a positive --size", nil)
		}

		est := compress.Estimate(size, settings)
		ui.Info("Settings: quality %d, scale %.2fx", settings.Quality, settings.Scale)
		fmt.Printf("  Original:  %s\n", compress.FormatMB(size))
		fmt.Printf("  Expected:  %s - %s\n", compress.FormatMB(int64(est.Min)), compress.FormatMB(int64(est.Max)))
		fmt.Printf("  Reduction: about %d%%\n", est.Percent)
		return nil
	},
}

func init() {
	estimateCmd.Flags().Int64Var(&estimateSize, "size", 0, "input size in bytes (instead of a file)")
	addSettingsFlags(estimateCmd)
	rootCmd.AddCommand(estimateCmd)
}
