package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/godilite/helpdesk-kpi/internal/kpi"
	"github.com/godilite/helpdesk-kpi/internal/service"
	"github.com/spf13/cobra"
)

type views interface {
	GetOverview(ctx context.Context, f kpi.Filter) (service.Overview, error)
	GetAnalystSummary(ctx context.Context, f kpi.Filter) (service.AnalystSummary, error)
	GetTimeSeries(ctx context.Context, f kpi.Filter) (service.TimeSeries, error)
	GetCSATBreakdown(ctx context.Context, f kpi.Filter) (service.CSATBreakdown, error)
	GetRawTable(ctx context.Context, f kpi.Filter, limit int) (service.RawTable, error)
	GetDailyIndividual(ctx context.Context, f kpi.Filter) (service.DailySummary, error)
}

type filterOptions struct {
	start     string
	end       string
	analysts  []string
	timeBase  string
	aggregate string
	pretty    bool
}

func (o filterOptions) filter() (kpi.Filter, error) {
	var f kpi.Filter
	var err error
	if o.start != "" {
		if f.Start, err = time.Parse(kpi.DayLayout, o.start); err != nil {
			return f, fmt.Errorf("invalid --start: %w", err)
		}
	}
	if o.end != "" {
		if f.End, err = time.Parse(kpi.DayLayout, o.end); err != nil {
			return f, fmt.Errorf("invalid --end: %w", err)
		}
	}
	for _, a := range o.analysts {
		if a = strings.TrimSpace(a); a != "" {
			f.Analysts = append(f.Analysts, a)
		}
	}
	if o.timeBase != "" {
		if f.TimeBase, err = kpi.ParseTimeBase(o.timeBase); err != nil {
			return f, err
		}
	}
	if o.aggregate != "" {
		if f.Aggregate, err = kpi.ParseStat(o.aggregate); err != nil {
			return f, err
		}
	}
	return f, nil
}

func newRootCmd(open func() (views, error), out io.Writer) *cobra.Command {
	var opts filterOptions

	root := &cobra.Command{
		Use:           "kpi-report",
		Short:         "Print helpdesk KPI views as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.start, "start", "", "First day to include (YYYY-MM-DD)")
	flags.StringVar(&opts.end, "end", "", "Last day to include (YYYY-MM-DD)")
	flags.StringSliceVar(&opts.analysts, "analyst", nil, "Restrict to these analysts (repeatable)")
	flags.StringVar(&opts.timeBase, "time-base", "", "created or completed (default from KPI_TIME_BASE)")
	flags.StringVar(&opts.aggregate, "aggregate", "", "mean or median (default from KPI_AGGREGATE)")
	flags.BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output")

	view := func(use, short string, run func(ctx context.Context, v views, f kpi.Filter) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				f, err := opts.filter()
				if err != nil {
					return err
				}
				v, err := open()
				if err != nil {
					return err
				}
				result, err := run(cmd.Context(), v, f)
				if err != nil {
					return err
				}
				return writeJSON(out, result, opts.pretty)
			},
		}
	}

	var limit int
	raw := view("raw", "Joined ticket rows", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
		return v.GetRawTable(ctx, f, limit)
	})
	raw.Flags().IntVar(&limit, "limit", 0, "Maximum rows to print (0 prints all)")

	root.AddCommand(
		view("overview", "Team KPIs and per-category split", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
			return v.GetOverview(ctx, f)
		}),
		view("analysts", "KPIs per analyst", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
			return v.GetAnalystSummary(ctx, f)
		}),
		view("timeseries", "KPIs per day", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
			return v.GetTimeSeries(ctx, f)
		}),
		view("csat", "Score distribution and CSAT breakdown", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
			return v.GetCSATBreakdown(ctx, f)
		}),
		raw,
		view("daily", "Per-analyst summary of the latest day", func(ctx context.Context, v views, f kpi.Filter) (any, error) {
			return v.GetDailyIndividual(ctx, f)
		}),
	)
	return root
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
