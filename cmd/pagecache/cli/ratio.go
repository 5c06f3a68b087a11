package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/frobware/go-pagecache/residency"
)

// RatioCmd measures page cache residency of one or more files.
type RatioCmd struct {
	OutputFlags
	Pages bool     `help:"Also list resident page ranges."`
	Files []string `arg:"" name:"file" help:"Files to measure." type:"path"`
}

// Run executes the ratio command.
func (c *RatioCmd) Run(cli *CLI) error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := cli.Logger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closer.Close()

	probe := residency.New()
	reports := make([]FileReport, len(c.Files))
	errs := make([]error, len(c.Files))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range c.Files {
		g.Go(func() error {
			reports[i], errs[i] = measureFile(probe, path, c.Pages)
			if errs[i] != nil {
				logger.Debug("measure failed", "path", path, "error", errs[i])
			}
			return nil
		})
	}
	g.Wait()

	var ok []FileReport
	for i := range reports {
		if errs[i] == nil {
			ok = append(ok, reports[i])
		}
	}

	out, err := FormatReports(ok, &c.OutputFlags, c.Pages)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(cli.stdout(), out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return errors.Join(errs...)
}

func measureFile(probe *residency.Probe, path string, pages bool) (FileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileReport{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return FileReport{}, fmt.Errorf("%s: %w", path, err)
	}

	report := FileReport{Path: path, Size: fi.Size(), PageSize: residency.PageSize()}
	if pages {
		m, err := probe.ResidencyFile(f)
		if err != nil {
			return FileReport{}, fmt.Errorf("%s: %w", path, err)
		}
		report.Cached, report.Total = m.Cached, m.Total
		report.Ranges = m.Ranges()
	} else {
		res, err := probe.MeasureFile(f)
		if err != nil {
			return FileReport{}, fmt.Errorf("%s: %w", path, err)
		}
		report.Cached, report.Total = res.Cached, res.Total
	}
	report.Ratio = residency.Result{Cached: report.Cached, Total: report.Total}.Ratio()
	return report, nil
}
