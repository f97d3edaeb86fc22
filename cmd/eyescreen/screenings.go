package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dudu/eyescreen/internal/screening"
)

var screeningsLimit int

var screeningsCmd = &cobra.Command{
	Use:   "screenings",
	Short: "List recent screening results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScreenings(cmd.Context())
	},
}

func init() {
	screeningsCmd.Flags().IntVarP(&screeningsLimit, "limit", "n", 20, "number of rows to show")
	rootCmd.AddCommand(screeningsCmd)
}

func runScreenings(ctx context.Context) error {
	if cfg.Screening.DatabaseURL == "" {
		return errors.New("screening.database_url is not configured")
	}

	store, err := screening.NewStore(ctx, cfg.Screening.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	recs, err := store.Recent(ctx, screeningsLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No screenings recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tCONFIDENCE\tPROVENANCE\tQUALITY\tCREATED")
	for _, rec := range recs {
		fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%s\t%.0f%%\t%s\n",
			rec.ID, rec.Classification.Class, rec.Classification.Confidence*100,
			rec.Provenance, rec.QualityScore*100,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
