package export

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"mercator-hq/sovereign/pkg/audit"
)

const flushEvery = 100

// CSVExporter writes entries as CSV rows.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the CSV column names.
func Header() []string {
	return []string{
		"sequence", "id", "timestamp", "actor", "tenant_id", "action",
		"target", "outcome", "success", "reason", "metadata",
	}
}

// Export writes entries as CSV.
func (e *CSVExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}
	for i, entry := range entries {
		if err := writer.Write(row(entry)); err != nil {
			return audit.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(entries), err)
	}
	return nil
}

// ExportStream writes entries from the channel as CSV, flushing every
// hundred rows.
func (e *CSVExporter) ExportStream(ctx context.Context, entries <-chan *audit.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	written := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", written, err)
				}
				return nil
			}

			if err := writer.Write(row(entry)); err != nil {
				return audit.NewExportError("csv", written, err)
			}
			written++

			if written%flushEvery == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", written, err)
				}
			}
		}
	}
}

func row(entry *audit.Entry) []string {
	return []string{
		strconv.FormatInt(entry.Sequence, 10),
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Actor,
		entry.TenantID,
		string(entry.Action),
		entry.Target,
		string(entry.Outcome),
		strconv.FormatBool(entry.Success),
		entry.Reason,
		formatMetadata(entry.Metadata),
	}
}

// formatMetadata renders metadata as sorted key=value pairs joined by ';'.
func formatMetadata(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, ";")
}
