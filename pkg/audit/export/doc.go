// Package export writes audit entries to JSON or CSV.
//
// Both exporters accept either a slice or a channel of entries. The
// streaming form pairs with audit.Log.QueryStream so large trails never
// have to be held in memory:
//
//	entries, errCh := log.QueryStream(ctx, &audit.Query{TenantID: "acme"})
//	exporter, _ := export.New("csv")
//	if err := exporter.ExportStream(ctx, entries, os.Stdout); err != nil {
//	    return err
//	}
//	if err := <-errCh; err != nil {
//	    return err
//	}
package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"mercator-hq/sovereign/pkg/audit"
	"mercator-hq/sovereign/pkg/governance"
)

// Exporter writes audit entries in one format.
type Exporter interface {
	Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error
	ExportStream(ctx context.Context, entries <-chan *audit.Entry, w io.Writer) error
}

// Formats lists the supported export formats.
var Formats = []string{"json", "csv"}

// New returns the exporter for format. JSON output is pretty-printed.
func New(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(true), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q (want one of %s)",
			governance.ErrInvalidValue, format, strings.Join(Formats, ", "))
	}
}
