package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spherical/pdf-compressor/internal/domain"
)

var (
	presetName string
	quality    int
	scale      float64
)

// addSettingsFlags registers --preset, --quality and --scale on cmd.
func addSettingsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "preset: max, balanced or clarity")
	cmd.Flags().IntVarP(&quality, "quality", "q", domain.DefaultQuality, "JPEG quality 1-100 (clamped)")
	cmd.Flags().Float64VarP(&scale, "scale", "s", domain.DefaultScale, "render scale 0.5-3.0 (clamped)")
}

// resolveSettings layers config, then --preset, then explicit --quality/--scale.
func resolveSettings(cmd *cobra.Command) (domain.CompressionSettings, error) {
	settings := cfg.Settings()

	if presetName != "" {
		p, ok := domain.LookupPreset(presetName)
		if !ok {
			return settings, domain.ValidationError(fmt.Sprintf("unknown preset %q", presetName), nil)
		}
		settings = p.Settings
	}

	if cmd.Flags().Changed("quality") {
		settings.Quality = quality
	}
	if cmd.Flags().Changed("scale") {
		settings.Scale = scale
	}

	return settings.Normalize(), nil
}
