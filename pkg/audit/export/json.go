package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/sovereign/pkg/audit"
)

// JSONExporter writes entries as a JSON array.
type JSONExporter struct {
	// Pretty enables indentation.
	Pretty bool
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes entries as a JSON array. An empty slice produces "[]".
func (e *JSONExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	if entries == nil {
		entries = []*audit.Entry{}
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(entries, "", "  ")
	} else {
		data, err = json.Marshal(entries)
	}
	if err != nil {
		return audit.NewExportError("json", 0, err)
	}

	if _, err := w.Write(data); err != nil {
		return audit.NewExportError("json", 0, err)
	}
	return nil
}

// ExportStream writes entries from the channel as a JSON array, one entry
// at a time.
func (e *JSONExporter) ExportStream(ctx context.Context, entries <-chan *audit.Entry, w io.Writer) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return audit.NewExportError("json", 0, err)
	}

	written := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case entry, ok := <-entries:
			if !ok {
				closing := "]"
				if e.Pretty && written > 0 {
					closing = "\n]"
				}
				if _, err := io.WriteString(w, closing); err != nil {
					return audit.NewExportError("json", written, err)
				}
				return nil
			}

			sep := ","
			if written == 0 {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			if _, err := io.WriteString(w, sep); err != nil {
				return audit.NewExportError("json", written, err)
			}

			data, err := e.serialize(entry)
			if err != nil {
				return audit.NewExportError("json", written, err)
			}
			if _, err := w.Write(data); err != nil {
				return audit.NewExportError("json", written, err)
			}
			written++
		}
	}
}

func (e *JSONExporter) serialize(entry *audit.Entry) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(entry, "  ", "  ")
	}
	return json.Marshal(entry)
}
