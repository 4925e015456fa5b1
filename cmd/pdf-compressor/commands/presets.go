package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spherical/pdf-compressor/pkg/compressor"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the named compression presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, p := range compressor.Presets() {
			fmt.Printf("  %-10s quality %3d  scale %.1fx  %s\n", p.Name, p.Settings.Quality, p.Settings.Scale, p.Description)
		}
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
