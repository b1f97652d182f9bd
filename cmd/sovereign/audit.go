package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/sovereign/pkg/audit"
	"mercator-hq/sovereign/pkg/audit/export"
	"mercator-hq/sovereign/pkg/cli"
)

var auditFlags struct {
	actor   string
	tenant  string
	action  string
	target  string
	outcome string
	since   string
	until   string
	offset  int
	output  string

	queryLimit   int
	queryFormat  string
	exportLimit  int
	exportFormat string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query and export the audit trail",
	Long: `Query and export the append-only audit trail.

Subcommands:
  query   - Print matching entries, newest first
  export  - Stream matching entries to JSON or CSV

Time Format:
  RFC3339 timestamps ("2025-11-19T00:00:00Z") or durations relative to
  now ("24h", "30m").

Examples:
  # Denied reads in the last day
  sovereign audit query --action read --outcome denied --since 24h

  # Everything one actor did, as JSON
  sovereign audit query --actor alice --format json

  # Export a tenant's trail to CSV
  sovereign audit export --tenant acme --format csv --output acme.csv`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit entries",
	RunE:  queryAudit,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries",
	Long: `Stream matching audit entries to a file or stdout.

The number of exported entries is capped by audit.export.max_entries.
Progress is reported on stderr when writing to a file.`,
	RunE: exportAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd)

	for _, c := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		c.Flags().StringVar(&auditFlags.actor, "actor", "", "filter by actor")
		c.Flags().StringVar(&auditFlags.tenant, "tenant", "", "filter by tenant ID")
		c.Flags().StringVar(&auditFlags.action, "action", "", "filter by action (classify, write, read, delete, compliance-check, tenant-create, policy-update)")
		c.Flags().StringVar(&auditFlags.target, "target", "", "filter by target, e.g. record:<id>")
		c.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (success, denied, failure, blocked)")
		c.Flags().StringVar(&auditFlags.since, "since", "", "only entries at or after this time")
		c.Flags().StringVar(&auditFlags.until, "until", "", "only entries at or before this time")
		c.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	}

	auditQueryCmd.Flags().IntVar(&auditFlags.queryLimit, "limit", 100, "max results")
	auditQueryCmd.Flags().StringVar(&auditFlags.queryFormat, "format", "text", "output format: text, json, csv")

	auditExportCmd.Flags().IntVar(&auditFlags.exportLimit, "limit", 0, "max entries (0 uses audit.export.max_entries)")
	auditExportCmd.Flags().StringVar(&auditFlags.exportFormat, "format", "", "export format: json, csv (default from config)")
	auditExportCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
}

// buildAuditQuery turns the filter flags into a query. now anchors
// relative times.
func buildAuditQuery(now time.Time, limit int) (*audit.Query, error) {
	q := &audit.Query{
		Actor:    auditFlags.actor,
		TenantID: auditFlags.tenant,
		Action:   audit.Action(auditFlags.action),
		Target:   auditFlags.target,
		Outcome:  audit.Outcome(auditFlags.outcome),
		Limit:    limit,
		Offset:   auditFlags.offset,
	}
	if q.Action != "" && !q.Action.Valid() {
		return nil, cli.NewConfigError("action", fmt.Sprintf("unknown action %q", auditFlags.action))
	}
	if q.Outcome != "" && !q.Outcome.Valid() {
		return nil, cli.NewConfigError("outcome", fmt.Sprintf("unknown outcome %q", auditFlags.outcome))
	}

	var err error
	if q.StartTime, err = parseTimeFlag("since", auditFlags.since, now); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTimeFlag("until", auditFlags.until, now); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, cli.NewConfigError("query", err.Error())
	}
	return q, nil
}

// parseTimeFlag accepts RFC3339 or a duration before now. Empty is nil.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return nil, cli.NewConfigError(name, fmt.Sprintf("expected RFC3339 time or positive duration, got %q", value))
	}
	t := now.Add(-d)
	return &t, nil
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.queryFormat)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	q, err := buildAuditQuery(time.Now().UTC(), auditFlags.queryLimit)
	if err != nil {
		return err
	}

	return withSystem(func(ctx context.Context, sys *system) error {
		entries, err := sys.engine.AuditTrail(ctx, q)
		if err != nil {
			return cli.NewCommandError("audit query", err)
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), auditTable(entries))
	})
}

func exportAudit(cmd *cobra.Command, args []string) error {
	q, err := buildAuditQuery(time.Now().UTC(), auditFlags.exportLimit)
	if err != nil {
		return err
	}

	return withSystem(func(ctx context.Context, sys *system) error {
		format := auditFlags.exportFormat
		if format == "" {
			format = sys.cfg.Audit.Export.Format
		}
		exporter, err := export.New(format)
		if err != nil {
			return cli.NewConfigError("format", err.Error())
		}
		if maxEntries := sys.cfg.Audit.Export.MaxEntries; maxEntries > 0 && (q.Limit == 0 || q.Limit > maxEntries) {
			q.Limit = maxEntries
		}

		var w io.Writer = cmd.OutOrStdout()
		var progress cli.ProgressReporter
		if auditFlags.output != "" {
			// #nosec G304 - User-specified output path is expected behavior for a CLI tool.
			f, err := os.OpenFile(auditFlags.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
			if err != nil {
				return cli.NewCommandError("audit export", err)
			}
			defer f.Close()
			w = f
			progress = cli.NewProgressReporter(cmd.ErrOrStderr())
		}

		unbounded := *q
		unbounded.Limit, unbounded.Offset = 0, 0
		total, err := sys.auditLog.Count(ctx, &unbounded)
		if err != nil {
			return cli.NewCommandError("audit export", err)
		}
		total = exportTotal(total, q)

		entries, errc := sys.auditLog.QueryStream(ctx, q)
		counted := countEntries(ctx, entries, progress, total)

		if err := exporter.ExportStream(ctx, counted, w); err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("audit export", err)
		}
		if err := <-errc; err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("audit export", err)
		}
		if progress != nil {
			progress.Finish()
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported to %s\n", auditFlags.output)
		}
		return nil
	})
}

// exportTotal is the number of entries q will yield out of count matches.
func exportTotal(count int64, q *audit.Query) int64 {
	n := count - int64(q.Offset)
	if n < 0 {
		n = 0
	}
	if q.Limit > 0 && n > int64(q.Limit) {
		n = int64(q.Limit)
	}
	return n
}

// countEntries forwards entries and reports progress. The returned channel
// closes when in does or ctx is cancelled.
func countEntries(ctx context.Context, in <-chan *audit.Entry, progress cli.ProgressReporter, total int64) <-chan *audit.Entry {
	if progress == nil {
		return in
	}
	progress.Start(total)
	out := make(chan *audit.Entry)
	go func() {
		defer close(out)
		var n int64
		for e := range in {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
			n++
			progress.Update(n)
		}
	}()
	return out
}

// auditTable renders entries one per row. JSON output is the entry list.
type auditTable []*audit.Entry

func (t auditTable) Header() []string {
	return []string{"sequence", "timestamp", "actor", "tenant", "action", "target", "outcome", "reason"}
}

func (t auditTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			strconv.FormatInt(e.Sequence, 10),
			e.Timestamp.Format(time.RFC3339),
			e.Actor,
			e.TenantID,
			string(e.Action),
			e.Target,
			string(e.Outcome),
			e.Reason,
		})
	}
	return rows
}
