package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/noisexc/noisexc/archive"
	"github.com/noisexc/noisexc/export"
	"github.com/noisexc/noisexc/figure"
	"github.com/noisexc/noisexc/noise/corrdata"
	"github.com/noisexc/noisexc/noise/moveout"
	"github.com/noisexc/noisexc/noise/stack"
)

func expandGlob(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, fmt.Errorf("no input files given")
	}
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	return files, nil
}

func splitComps(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// loadStacks reads the stacked comp record from every archive matching
// the glob and orients the traces toward the virtual source. Files
// without that record are skipped.
func loadStacks(log *zap.SugaredLogger, pattern, source, comp string, method stack.Method) ([]*moveout.Trace, error) {
	files, err := expandGlob(pattern)
	if err != nil {
		return nil, err
	}

	tag := archive.StackTag(method)
	var corrs []*corrdata.CorrData
	for _, name := range files {
		f, err := archive.Open(name)
		if err != nil {
			return nil, err
		}
		c, err := f.Read(tag, comp)
		closeErr := f.Close()
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				log.Debugw("no stacked record", "file", name, "tag", tag, "comp", comp)
				continue
			}
			return nil, err
		}
		if closeErr != nil {
			return nil, closeErr
		}
		corrs = append(corrs, c)
	}
	if len(corrs) == 0 {
		return nil, fmt.Errorf("no %s/%s records under %q", tag, comp, pattern)
	}
	return moveout.Gather(corrs, source)
}

// runHeatmap renders the distance-binned moveout matrix for one virtual
// source and component.
func runHeatmap(log *zap.SugaredLogger, cfg heatmapConfig) error {
	method, err := stack.ParseMethod(cfg.method)
	if err != nil {
		return err
	}
	traces, err := loadStacks(log, cfg.in, cfg.source, cfg.comp, method)
	if err != nil {
		return err
	}

	mcfg := moveout.Config{FreqMin: cfg.freqMin, FreqMax: cfg.freqMax, LagSecs: cfg.lagSecs}
	bins, err := moveout.BinByDistance(traces, mcfg, cfg.distInc)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s %s filtered at %.2f-%.2f Hz", cfg.source, cfg.comp, cfg.freqMin, cfg.freqMax)
	if err := figure.Heatmap(bins, title, cfg.out); err != nil {
		return err
	}
	log.Infow("saved figure", "file", cfg.out, "traces", len(traces), "bins", len(bins.Dists))
	return nil
}

// runWiggle renders one distance-offset record section per component.
func runWiggle(log *zap.SugaredLogger, cfg wiggleConfig) error {
	method, err := stack.ParseMethod(cfg.method)
	if err != nil {
		return err
	}
	comps := splitComps(cfg.comps)
	if len(comps) == 0 {
		return fmt.Errorf("no components given")
	}

	mcfg := moveout.Config{FreqMin: cfg.freqMin, FreqMax: cfg.freqMax, LagSecs: cfg.lagSecs}
	var sections []figure.WiggleSection
	for _, comp := range comps {
		traces, err := loadStacks(log, cfg.in, cfg.source, comp, method)
		if err != nil {
			return err
		}
		sec, err := moveout.NewRecordSection(traces, mcfg, cfg.minSNR)
		if err != nil {
			return err
		}
		if sec.Dropped > 0 {
			log.Infow("dropped low-SNR traces", "comp", comp, "dropped", sec.Dropped)
		}
		sections = append(sections, figure.WiggleSection{Comp: comp, Section: sec})
	}

	if err := figure.Wiggles(cfg.source, cfg.scale, sections, cfg.out); err != nil {
		return err
	}
	log.Infow("saved figure", "file", cfg.out, "components", len(sections))
	return nil
}

// runPeaks picks velocity-windowed peak amplitudes for every component
// and writes whichever of the map, CSV and Parquet outputs are set.
func runPeaks(log *zap.SugaredLogger, cfg peaksConfig) error {
	method, err := stack.ParseMethod(cfg.method)
	if err != nil {
		return err
	}
	if cfg.csv == "" && cfg.parquet == "" && cfg.maps == "" {
		return fmt.Errorf("nothing to write: set -csv, -parquet or -maps")
	}

	mcfg := moveout.Config{FreqMin: cfg.freqMin, FreqMax: cfg.freqMax, LagSecs: cfg.lagSecs}
	var peaks []moveout.Peak
	for _, comp := range splitComps(cfg.comps) {
		traces, err := loadStacks(log, cfg.in, cfg.source, comp, method)
		if err != nil {
			return err
		}
		pks, err := moveout.PeakAmplitudes(traces, mcfg, cfg.vmin, cfg.vmax, cfg.minSNR)
		if err != nil {
			return err
		}
		log.Infow("picked peaks", "comp", comp, "traces", len(traces), "picks", len(pks))
		peaks = append(peaks, pks...)
	}
	if len(peaks) == 0 {
		return fmt.Errorf("no picks survived the SNR cutoff")
	}

	if cfg.csv != "" {
		files, err := export.WriteCSV(cfg.csv, peaks)
		if err != nil {
			return err
		}
		log.Infow("saved tables", "files", files)
	}
	if cfg.parquet != "" {
		if err := export.WriteParquet(cfg.parquet, peaks); err != nil {
			return err
		}
		log.Infow("saved table", "file", cfg.parquet)
	}
	if cfg.maps != "" {
		files, err := figure.AmplitudeMaps(cfg.maps, peaks)
		if err != nil {
			return err
		}
		log.Infow("saved maps", "files", files)
	}
	return nil
}

// runSAC exports one archive record to SAC files under a directory.
func runSAC(log *zap.SugaredLogger, cfg sacConfig) error {
	f, err := archive.Open(cfg.in)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := f.Read(cfg.tag, cfg.path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", cfg.dir, err)
	}
	files, err := c.ToSAC(cfg.dir)
	if err != nil {
		return err
	}
	log.Infow("saved SAC files", "count", len(files), "dir", cfg.dir)
	return nil
}
