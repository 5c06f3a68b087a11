package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"k8s.io/client-go/util/jsonpath"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/residency"
)

// FileReport is the residency of one file as printed by `ratio`.
type FileReport struct {
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	PageSize int               `json:"page_size"`
	Cached   int64             `json:"cached"`
	Total    int64             `json:"total"`
	Ratio    float64           `json:"ratio"`
	Ranges   []residency.Range `json:"ranges,omitempty"`
}

// FormatReports formats file reports according to flags.
func FormatReports(reports []FileReport, flags *OutputFlags, pages bool) (string, error) {
	if reports == nil {
		reports = []FileReport{}
	}
	switch flags.Format() {
	case OutputFormatJSON:
		return formatJSON(reports)
	case OutputFormatJSONPath:
		return formatJSONPath(reports, flags.JSONPathExpr())
	default:
		return formatReportsTable(reports, pages), nil
	}
}

// FormatSamples formats monitor samples according to flags.
func FormatSamples(samples []pagecache.Sample, flags *OutputFlags, now time.Time) (string, error) {
	if samples == nil {
		samples = []pagecache.Sample{}
	}
	switch flags.Format() {
	case OutputFormatJSON:
		return formatJSON(samples)
	case OutputFormatJSONPath:
		return formatJSONPath(samples, flags.JSONPathExpr())
	default:
		return formatSamplesTable(samples, now), nil
	}
}

func formatJSON(v any) (string, error) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}
	return string(output) + "\n", nil
}

func formatJSONPath(v any, expr string) (string, error) {
	jp := jsonpath.New("output")
	if err := jp.Parse(expr); err != nil {
		return "", fmt.Errorf("invalid jsonpath expression %q: %w", expr, err)
	}

	// Round-trip through JSON so the expression sees the json tags.
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	var data any
	if err := json.Unmarshal(jsonBytes, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal: %w", err)
	}

	var buf bytes.Buffer
	if err := jp.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("jsonpath execution failed: %w", err)
	}
	return buf.String() + "\n", nil
}

func formatReportsTable(reports []FileReport, pages bool) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tPAGES\tCACHED\tPERCENT")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f%%\n",
			r.Path, humanize.IBytes(uint64(r.Size)), r.Total, r.Cached, r.Ratio*100)
	}
	tw.Flush()

	if pages {
		for _, r := range reports {
			fmt.Fprintf(&b, "\n%s\n  resident: %s\n", r.Path, formatRanges(r.Ranges))
		}
	}
	return b.String()
}

// formatRanges renders half-open ranges as inclusive page spans,
// e.g. "0-2,5,7-8".
func formatRanges(ranges []residency.Range) string {
	if len(ranges) == 0 {
		return "(none)"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		if r.Len() == 1 {
			parts[i] = fmt.Sprintf("%d", r.Start)
		} else {
			parts[i] = fmt.Sprintf("%d-%d", r.Start, r.End-1)
		}
	}
	return strings.Join(parts, ",")
}

func formatSamplesTable(samples []pagecache.Sample, now time.Time) string {
	if len(samples) == 0 {
		return "No samples recorded\n"
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tAGE\tMIN_CACHED\tTRACKED\tDELETED\tRUN")
	for _, s := range samples {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID,
			s.Time.UTC().Format(time.RFC3339),
			humanize.RelTime(s.Time, now, "ago", "from now"),
			s.MinCachedTime,
			s.Tracked,
			s.Deleted,
			shortID(s.RunID.String()),
		)
	}
	tw.Flush()
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
