package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noisexc/noisexc/archive"
	"github.com/noisexc/noisexc/dsp/filter"
	"github.com/noisexc/noisexc/figure"
	"github.com/noisexc/noisexc/noise/corrdata"
	"github.com/noisexc/noisexc/noise/stack"
	"github.com/noisexc/noisexc/seis/sacio"
)

const filterOrder = 4

// runWaveform reads one or three SAC components, bandpasses each, and
// renders stacked panels sharing a time axis.
func runWaveform(log *zap.SugaredLogger, cfg waveformConfig) error {
	files, err := expandGlob(cfg.in)
	if err != nil {
		return err
	}
	if n := len(files); n != 1 && n != 3 {
		return fmt.Errorf("waveform wants 1 or 3 SAC files, matched %d", n)
	}

	var (
		dt     float64
		title  string
		panels []figure.WaveformPanel
	)
	for i, name := range files {
		hdr, data, err := sacio.ReadFile(name)
		if err != nil {
			return err
		}
		if i == 0 {
			dt = hdr.Delta
			title = fmt.Sprintf("%s.%s %.2f-%.2f Hz", hdr.Knetwk, hdr.Kstnm, cfg.freqMin, cfg.freqMax)
		} else if hdr.Delta != dt {
			return fmt.Errorf("mixed sample intervals %v and %v across components", dt, hdr.Delta)
		}
		if err := filter.Bandpass(data, cfg.freqMin, cfg.freqMax, 1/dt, filterOrder); err != nil {
			return err
		}
		label := fmt.Sprintf("%s.%s.%s.%s", hdr.Knetwk, hdr.Kstnm, hdr.Khole, hdr.Kcmpnm)
		panels = append(panels, figure.WaveformPanel{Label: label, Data: data})
	}

	if err := figure.Waveform(title, dt, panels, cfg.out); err != nil {
		return err
	}
	log.Infow("saved figure", "file", cfg.out, "components", len(panels))
	return nil
}

// runSubstack renders the windowed-correlation figure for one archived
// pair.
func runSubstack(log *zap.SugaredLogger, cfg substackConfig) error {
	f, err := archive.Open(cfg.in)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := f.Read(cfg.pair, cfg.chans)
	if err != nil {
		return err
	}
	d, err := c.Display(cfg.freqMin, cfg.freqMax, cfg.lagSecs)
	if err != nil {
		return err
	}

	if err := saveSubstackFigure(c, d, cfg.freqMin, cfg.freqMax, cfg.lagSecs, cfg.spectra, cfg.out); err != nil {
		return err
	}
	log.Infow("saved figure", "file", cfg.out, "pair", c.PairID(), "windows", c.NumRows())
	return nil
}

// runStacked renders the per-chunk stack matrix of a stacked archive,
// with the stack panel showing the stored all-time stack rather than a
// fresh mean of the rows.
func runStacked(log *zap.SugaredLogger, cfg stackedConfig) error {
	method, err := stack.ParseMethod(cfg.method)
	if err != nil {
		return err
	}
	f, err := archive.Open(cfg.in)
	if err != nil {
		return err
	}
	defer f.Close()

	c, err := substackRecord(f, cfg.comp)
	if err != nil {
		return err
	}
	d, err := c.Display(cfg.freqMin, cfg.freqMax, cfg.lagSecs)
	if err != nil {
		return err
	}

	stk, err := f.Read(archive.StackTag(method), cfg.comp)
	if err != nil {
		return err
	}
	ds, err := stk.Display(cfg.freqMin, cfg.freqMax, cfg.lagSecs)
	if err != nil {
		return err
	}
	d.Stack = ds.Rows[0]

	if err := saveSubstackFigure(c, d, cfg.freqMin, cfg.freqMax, cfg.lagSecs, cfg.spectra, cfg.out); err != nil {
		return err
	}
	log.Infow("saved figure", "file", cfg.out, "pair", c.PairID(), "windows", c.NumRows(), "stack", method)
	return nil
}

func saveSubstackFigure(c *corrdata.CorrData, d *corrdata.Display, freqMin, freqMax, lagSecs float64, spectra bool, out string) error {
	if !spectra {
		return figure.Substack(c, d, freqMin, freqMax, out)
	}
	freqs, amp, err := c.SpectraMatrix(lagSecs)
	if err != nil {
		return err
	}
	return figure.SubstackSpectra(c, d, freqs, amp, out)
}

// substackRecord finds the substacked pair record of a stacked archive
// for one component.
func substackRecord(f *archive.File, comp string) (*corrdata.CorrData, error) {
	for _, rec := range f.Records() {
		if archive.IsStackTag(rec.Tag) {
			continue
		}
		c, err := f.Read(rec.Tag, rec.Path)
		if err != nil {
			return nil, err
		}
		if c.Comp == comp && c.Substack {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no substacked %s record in archive", comp)
}
