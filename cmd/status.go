package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/monitoring"
	"github.com/sells-group/dse-bonds/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarise recent uploads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		hours, _ := cmd.Flags().GetInt("hours")
		if hours <= 0 {
			hours = cfg.Monitor.LookbackHours
		}
		format, _ := cmd.Flags().GetString("format")

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		return formatSnapshot(os.Stdout, format, snap)
	},
}

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List the upload log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		hours, _ := cmd.Flags().GetInt("hours")

		filter := store.UploadFilter{
			Status: model.UploadStatus(status),
			Limit:  limit,
		}
		if hours > 0 {
			filter.Since = time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
		}

		uploads, err := st.ListUploads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "uploads list")
		}
		if len(uploads) == 0 {
			fmt.Fprintln(os.Stderr, "No uploads found.")
			return nil
		}
		formatUploads(os.Stdout, uploads)
		return nil
	},
}

// formatSnapshot writes snap as a table, JSON or YAML.
func formatSnapshot(out io.Writer, format string, snap *monitoring.MetricsSnapshot) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case "yaml":
		return yaml.NewEncoder(out).Encode(snap)
	case "", "table":
	default:
		return eris.Errorf("status: unknown format %q", format)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\tlast %dh\n", snap.LookbackHours)
	_, _ = fmt.Fprintf(w, "Uploads:\t%d\n", snap.UploadsTotal)
	_, _ = fmt.Fprintf(w, "  inserted\t%d\n", snap.UploadsInserted)
	_, _ = fmt.Fprintf(w, "  skipped\t%d\n", snap.UploadsSkipped)
	_, _ = fmt.Fprintf(w, "  no marker\t%d\n", snap.UploadsNoMarker)
	_, _ = fmt.Fprintf(w, "  no data\t%d\n", snap.UploadsNoData)
	_, _ = fmt.Fprintf(w, "  failed\t%d\n", snap.UploadsFailed)
	_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.FailRate*100)
	_, _ = fmt.Fprintf(w, "Records extracted:\t%d\n", snap.RecordsExtracted)
	_, _ = fmt.Fprintf(w, "Rows inserted:\t%d\n", snap.RowsInserted)
	latest := snap.LatestTradeDate
	if latest == "" {
		latest = "-"
	}
	_, _ = fmt.Fprintf(w, "Latest trade date:\t%s\n", latest)
	return w.Flush()
}

// formatUploads writes a tabular representation of the upload log to out.
func formatUploads(out io.Writer, uploads []model.Upload) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CREATED\tSTATUS\tSOURCE\tFILE\tRECORDS\tINSERTED\tTRADE DATES\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t----\t-------\t--------\t-----------\t-----")
	for _, u := range uploads {
		dates := "-"
		if len(u.TradeDates) > 0 {
			dates = strings.Join(u.TradeDates, ",")
		}
		errMsg := u.Error
		if errMsg == "" {
			errMsg = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			u.CreatedAt.Format("2006-01-02 15:04"),
			u.Status, u.Source, u.Filename, u.Records, u.Inserted, dates, errMsg,
		)
	}
	_ = w.Flush()
}

func init() {
	statusCmd.Flags().Int("hours", 0, "lookback window in hours (default from monitor.lookback_hours)")
	statusCmd.Flags().String("format", "table", "output format: table, json or yaml")

	uploadsCmd.Flags().String("status", "", "only uploads with this status")
	uploadsCmd.Flags().Int("limit", 50, "maximum number of uploads to list")
	uploadsCmd.Flags().Int("hours", 0, "only uploads from the last N hours")

	rootCmd.AddCommand(statusCmd, uploadsCmd)
}
