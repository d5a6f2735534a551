package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/output"
)

func newTable(a *app, headers []string) *output.Table {
	return output.NewPrinterTable(a.printer, headers)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readJSONFile decodes path into dst; "-" reads stdin.
func readJSONFile(cmd *cobra.Command, path string, dst any) error {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return usageError(err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return usageError(fmt.Errorf("parsing %s: %w", path, err))
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatAmount(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncate shortens s to n runes for table cells.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatRemaining renders a deadline distance like "2d 3h" or "overdue 5h".
func formatRemaining(d time.Duration) string {
	prefix := ""
	if d < 0 {
		prefix = "overdue "
		d = -d
	}
	d = d.Round(time.Hour)
	days := int(d / (24 * time.Hour))
	hours := int((d % (24 * time.Hour)) / time.Hour)
	if days > 0 {
		return fmt.Sprintf("%s%dd %dh", prefix, days, hours)
	}
	return fmt.Sprintf("%s%dh", prefix, hours)
}
