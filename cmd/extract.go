package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dse-bonds/internal/fetcher"
	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/pipeline"
	"github.com/sells-group/dse-bonds/internal/store"
)

// Output formats accepted by extract --format.
const (
	formatXLSX = "xlsx"
	formatJSON = "json"
	formatYAML = "yaml"
)

type extractOptions struct {
	Path    string
	URL     string
	Output  string
	Format  string
	Charset string
	Load    bool
}

var extractOpts extractOptions

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract bond trades from a saved report or a URL",
	Long: "Runs a trading report through the same extraction as the upload server. " +
		"Writes the spreadsheet by default, or prints the records with --format json|yaml. " +
		"With --load the rows go through the duplicate gate into the configured store.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := extractOpts
		if len(args) == 1 {
			opts.Path = args[0]
		}
		return runExtract(cmd.Context(), opts, os.Stdout)
	},
}

func runExtract(ctx context.Context, opts extractOptions, out io.Writer) error {
	format := strings.ToLower(opts.Format)
	switch format {
	case "":
		format = formatXLSX
	case formatXLSX, formatJSON, formatYAML:
	default:
		return eris.Errorf("extract: unknown format %q (want xlsx, json or yaml)", opts.Format)
	}

	doc, err := readDocument(ctx, opts)
	if err != nil {
		return err
	}

	var st store.Store
	if opts.Load {
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close() //nolint:errcheck
		st = s
	}

	res, err := pipeline.New(st, nil, cfg.Export).Process(ctx, doc)
	if err != nil {
		return err
	}
	if res.Load != nil {
		if res.Load.Skipped {
			zap.L().Info("trade dates already stored, nothing inserted",
				zap.Strings("existing_dates", res.Load.ExistingDates))
		} else {
			zap.L().Info("trades stored", zap.Int64("inserted", res.Load.Inserted))
		}
	}

	if format != formatXLSX {
		return writeTrades(out, format, res.Trades)
	}

	path := opts.Output
	if path == "" {
		path = res.Filename
	}
	if err := os.WriteFile(path, res.Workbook, 0o644); err != nil {
		return eris.Wrapf(err, "extract: write %s", path)
	}
	zap.L().Info("workbook written", zap.String("path", path), zap.Int("records", len(res.Trades)))
	return nil
}

// readDocument loads the report from disk or downloads it. Exactly one of
// opts.Path and opts.URL must be set.
func readDocument(ctx context.Context, opts extractOptions) (pipeline.Document, error) {
	switch {
	case opts.Path != "" && opts.URL != "":
		return pipeline.Document{}, eris.New("extract: pass either a file or --url, not both")
	case opts.Path != "":
		body, err := os.ReadFile(opts.Path)
		if err != nil {
			return pipeline.Document{}, eris.Wrapf(err, "extract: read %s", opts.Path)
		}
		return pipeline.Document{
			Name:    filepath.Base(opts.Path),
			Source:  model.UploadSourceFile,
			Content: body,
			Charset: opts.Charset,
		}, nil
	case opts.URL != "":
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		report, err := f.Fetch(ctx, opts.URL)
		if err != nil {
			return pipeline.Document{}, err
		}
		return pipeline.Document{
			Name:        report.Name,
			Source:      model.UploadSourceURL,
			Content:     report.Body,
			ContentType: report.ContentType,
			Charset:     opts.Charset,
		}, nil
	default:
		return pipeline.Document{}, eris.New("extract: a report file or --url is required")
	}
}

// writeTrades prints the records as JSON or YAML.
func writeTrades(w io.Writer, format string, trades []model.BondTrade) error {
	if trades == nil {
		trades = []model.BondTrade{}
	}
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(trades); err != nil {
			return eris.Wrap(err, "extract: encode json")
		}
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(trades); err != nil {
			return eris.Wrap(err, "extract: encode yaml")
		}
		if err := enc.Close(); err != nil {
			return eris.Wrap(err, "extract: encode yaml")
		}
	default:
		return fmt.Errorf("extract: cannot print format %q", format)
	}
	return nil
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractOpts.URL, "url", "", "download the report from this URL")
	f.StringVarP(&extractOpts.Output, "output", "o", "", "spreadsheet path (default from export.filename)")
	f.StringVar(&extractOpts.Format, "format", formatXLSX, "output format: xlsx, json or yaml")
	f.StringVar(&extractOpts.Charset, "charset", "", "decode the report with this charset instead of detecting it")
	f.BoolVar(&extractOpts.Load, "load", false, "store new trading days in the configured database")
	rootCmd.AddCommand(extractCmd)
}
