package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

func main() {
	os.Exit(execute())
}

func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:   "dicer",
		Short: "Cut polygon records into fragments along a lat/lon grid",
		Long: `dicer reads polygon records (list_id, location_id, hex WKB), repairs
invalid geometries, clips each one against a fixed fishnet grid and writes
one fragment per intersected tile.

Examples:
  # dice a TSV export with 1 degree tiles into diced_out.txt
  dicer run --input locations.txt

  # half degree tiles, GeoJSON output, keep a copy of the input
  dicer run --input locations.txt --cell-size 0.5 --sink geojson --output diced.geojson --undiced undiced_out.txt`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// a missing env file is fine
			_ = godotenv.Load(envFile)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before reading configuration")
	root.AddCommand(newRunCmd())
	return root
}
