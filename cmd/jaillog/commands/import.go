package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"jaillog-backend/internal/bookings"
	"jaillog-backend/internal/reconcile"
	"jaillog-backend/lib/htmlutil"
	"jaillog-backend/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	importHtml    string
	importRecords string
)

func init() {
	importCmd.Flags().StringVar(&importHtml, "html", "", "Import a saved copy of the jail log page instead of fetching it.")
	importCmd.Flags().StringVar(&importRecords, "records", "", "Import a JSON array of already extracted records.")
	importCmd.MarkFlagsMutuallyExclusive("html", "records")
	rootCmd.AddCommand(importCmd)
}

func readRecords(path string) ([]bookings.Raw, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []bookings.Raw
	err = json.NewDecoder(f).Decode(&records)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return records, nil
}

func readDocument(path string) (*htmlutil.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := htmlutil.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

var importCmd = &cobra.Command{
	Use:   "import [--html <page.html>] [--records <records.json>]",
	Short: "Runs one import of the jail log into the configured stores.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			serviceutil.Fatal("failed to load config", err)
		}
		a, err := newApp(ctx, cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize", err)
		}
		defer a.Close()
		a.banner()

		var summary reconcile.Summary
		switch {
		case importRecords != "":
			records, readErr := readRecords(importRecords)
			if readErr != nil {
				serviceutil.Fatal("failed to read records", readErr)
			}
			summary, err = a.coordinator.RunRecords(ctx, records)
		case importHtml != "":
			doc, readErr := readDocument(importHtml)
			if readErr != nil {
				serviceutil.Fatal("failed to read page", readErr)
			}
			summary, err = a.coordinator.RunDocument(ctx, doc)
		default:
			summary, err = a.coordinator.Run(ctx)
		}

		renderSummary(summary)
		if err != nil {
			a.notify(ctx, summary, err)
			a.Close()
			serviceutil.Fatal("import failed", wrapRun(summary, err))
		}
	},
}
