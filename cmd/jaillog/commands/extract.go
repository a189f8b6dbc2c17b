package commands

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/scrapers/jaillog"
	"jaillog-backend/internal/telemetry"
	"jaillog-backend/lib/htmlutil"
	"jaillog-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	extractJson    bool
	extractCharges bool
)

func init() {
	extractCmd.Flags().BoolVar(&extractJson, "json", false, "Print the raw records as JSON, the output can be fed back to `import --records`.")
	extractCmd.Flags().BoolVar(&extractCharges, "charges", false, "Also print every extracted charge.")
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract <page.html|url>",
	Short: "Extracts bookings from a jail log page without storing anything.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		source := args[0]

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		tel := telemetry.API(telemetry.SlogAPI{})

		var doc *htmlutil.Document
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			options := cfg.ClientOptions(newInstrumentOutput(cfg))
			options.PageURL = source
			doc, err = jaillog.NewClient(options, tel).FetchPage(ctx)
		} else {
			doc, err = readDocument(source)
		}
		if err != nil {
			serviceutil.Fatal("failed to load page", err)
		}

		records, provenance := jaillog.DefaultChain(tel).Extract(ctx, doc)
		slog.Info("extracted bookings", "count", len(records), "provenance", provenance)

		if extractJson {
			if records == nil {
				records = []bookings.Raw{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(records)
			if err != nil {
				serviceutil.Fatal("failed to write records", err)
			}
			return
		}

		renderRecords(records, cfg.Policy())
		if extractCharges {
			renderCharges(records)
		}
	},
}
