package cli_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-pagecache"
	"github.com/frobware/go-pagecache/cmd/pagecache/cli"
	"github.com/frobware/go-pagecache/residency"
)

func testReports() []cli.FileReport {
	return []cli.FileReport{
		{
			Path:     "/data/a.log",
			Size:     10 * 4096,
			PageSize: 4096,
			Cached:   6,
			Total:    10,
			Ratio:    0.6,
			Ranges:   []residency.Range{{Start: 0, End: 3}, {Start: 5, End: 6}, {Start: 7, End: 9}},
		},
		{
			Path:     "/data/b.log",
			Size:     100,
			PageSize: 4096,
			Cached:   0,
			Total:    1,
		},
	}
}

func TestFormatReports_Table(t *testing.T) {
	out, err := cli.FormatReports(testReports(), &cli.OutputFlags{Output: "table"}, false)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"FILE", "SIZE", "PAGES", "CACHED", "PERCENT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"/data/a.log", "40", "KiB", "10", "6", "60.00%"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"/data/b.log", "100", "B", "1", "0", "0.00%"}, strings.Fields(lines[2]))
	assert.NotContains(t, out, "resident:")
}

func TestFormatReports_TableWithPages(t *testing.T) {
	out, err := cli.FormatReports(testReports(), &cli.OutputFlags{Output: "table"}, true)
	require.NoError(t, err)

	assert.Contains(t, out, "/data/a.log\n  resident: 0-2,5,7-8\n")
	assert.Contains(t, out, "/data/b.log\n  resident: (none)\n")
}

func TestFormatReports_JSON(t *testing.T) {
	out, err := cli.FormatReports(testReports(), &cli.OutputFlags{Output: "json"}, true)
	require.NoError(t, err)

	var got []cli.FileReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, testReports(), got)
}

func TestFormatReports_JSONEmptyIsArray(t *testing.T) {
	out, err := cli.FormatReports(nil, &cli.OutputFlags{Output: "json"}, false)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestFormatReports_JSONPath(t *testing.T) {
	out, err := cli.FormatReports(testReports(), &cli.OutputFlags{Output: "jsonpath={[*].cached}"}, false)
	require.NoError(t, err)
	assert.Equal(t, "6 0\n", out)

	_, err = cli.FormatReports(testReports(), &cli.OutputFlags{Output: "jsonpath={.["}, false)
	assert.ErrorContains(t, err, "invalid jsonpath expression")
}

func TestFormatSamples_Table(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := uuid.MustParse("0b5c1a7e-1111-2222-3333-444455556666")
	samples := []pagecache.Sample{
		{ID: 2, RunID: run, Time: now.Add(-time.Minute), MinCachedTime: 42 * time.Second, Tracked: 9, Deleted: 1},
		{ID: 1, RunID: run, Time: now.Add(-2 * time.Hour), MinCachedTime: 0, Tracked: 1, Deleted: 1},
	}

	out, err := cli.FormatSamples(samples, &cli.OutputFlags{Output: "table"}, now)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ID", "TIME", "AGE", "MIN_CACHED", "TRACKED", "DELETED", "RUN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"2", "2026-03-01T11:59:00Z", "1", "minute", "ago", "42s", "9", "1", "0b5c1a7e"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "2026-03-01T10:00:00Z", "2", "hours", "ago", "0s", "1", "1", "0b5c1a7e"}, strings.Fields(lines[2]))
}

func TestFormatSamples_Empty(t *testing.T) {
	out, err := cli.FormatSamples(nil, &cli.OutputFlags{Output: "table"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "No samples recorded\n", out)

	out, err = cli.FormatSamples(nil, &cli.OutputFlags{Output: "json"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestFormatSamples_JSONPath(t *testing.T) {
	samples := []pagecache.Sample{{ID: 7, MinCachedTime: 3 * time.Second}}

	out, err := cli.FormatSamples(samples, &cli.OutputFlags{Output: "jsonpath={[0].id}"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)
}
