// Command xcplot renders diagnostic figures and peak-amplitude tables
// from correlation archives.
//
// Usage:
//
//	xcplot <subcommand> [flags]
//
// Subcommands:
//
//	waveform  bandpassed station waveform panels from SAC files
//	substack  windowed correlation matrix and stack figure for one pair
//	stacked   per-chunk stack matrix beside the stored all-time stack
//	heatmap   distance-binned moveout matrix for one virtual source
//	wiggle    distance-offset record sections, one panel per component
//	peaks     velocity-windowed peak picks: maps, CSV and Parquet tables
//	sac       export one archive record to SAC files
//
// Examples:
//
//	xcplot substack -i pairs.nxc -p XX.SRC1_YY.RCV1 -c BHZ_BHZ -l 0.5 -u 4 -o sub.png
//	xcplot heatmap -i 'stack/*.nxc' -s XX.SRC1 -c ZZ -l 0.5 -u 2 -o moveout.png
//	xcplot peaks -i 'stack/*.nxc' -s XX.SRC1 -c ZZ,ZR -l 0.1 -u 1 --csv picks
package main

import (
	"fmt"
	"os"

	"github.com/integrii/flaggy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const appName = "xcplot"

const appDesc = "Diagnostic figures and tables for ambient-noise cross-correlation archives"

var version = "unknown"

type waveformConfig struct {
	in      string
	freqMin float64
	freqMax float64
	out     string
}

type substackConfig struct {
	in      string
	pair    string
	chans   string
	freqMin float64
	freqMax float64
	lagSecs float64
	spectra bool
	out     string
}

type stackedConfig struct {
	in      string
	comp    string
	method  string
	freqMin float64
	freqMax float64
	lagSecs float64
	spectra bool
	out     string
}

type heatmapConfig struct {
	in      string
	source  string
	comp    string
	method  string
	freqMin float64
	freqMax float64
	lagSecs float64
	distInc float64
	out     string
}

type wiggleConfig struct {
	in      string
	source  string
	comps   string
	method  string
	freqMin float64
	freqMax float64
	lagSecs float64
	minSNR  float64
	scale   float64
	out     string
}

type peaksConfig struct {
	in      string
	source  string
	comps   string
	method  string
	freqMin float64
	freqMax float64
	lagSecs float64
	vmin    float64
	vmax    float64
	minSNR  float64
	csv     string
	parquet string
	maps    string
}

type sacConfig struct {
	in   string
	tag  string
	path string
	dir  string
}

func main() {
	parser := flaggy.NewParser(appName)
	parser.Description = appDesc
	parser.Version = version

	var quiet bool
	parser.Bool(&quiet, "q", "quiet", "log warnings and errors only")

	waveformCmd := flaggy.Subcommand{
		Name:        "waveform",
		Description: "bandpassed station waveform panels from SAC files",
	}
	wf := waveformConfig{freqMin: 0.1, freqMax: 1, out: "waveform.png"}
	waveformCmd.String(&wf.in, "i", "in", "SAC file or glob (1 or 3 components)")
	waveformCmd.Float64(&wf.freqMin, "l", "fmin", "low corner frequency in Hz")
	waveformCmd.Float64(&wf.freqMax, "u", "fmax", "high corner frequency in Hz")
	waveformCmd.String(&wf.out, "o", "out", "output PNG file")
	parser.AttachSubcommand(&waveformCmd, 1)

	substackCmd := flaggy.Subcommand{
		Name:        "substack",
		Description: "windowed correlation matrix and stack figure for one pair",
	}
	sb := substackConfig{freqMin: 0.1, freqMax: 1, out: "substack.png"}
	substackCmd.String(&sb.in, "i", "in", "pair archive file")
	substackCmd.String(&sb.pair, "p", "pair", "pair tag, e.g. XX.SRC1_YY.RCV1")
	substackCmd.String(&sb.chans, "c", "chans", "channel pair path, e.g. BHZ_BHZ")
	substackCmd.Float64(&sb.freqMin, "l", "fmin", "low corner frequency in Hz")
	substackCmd.Float64(&sb.freqMax, "u", "fmax", "high corner frequency in Hz")
	substackCmd.Float64(&sb.lagSecs, "g", "lag", "displayed lag in seconds (0 keeps the stored range)")
	substackCmd.Bool(&sb.spectra, "w", "spectra", "insert the per-window amplitude spectra panel")
	substackCmd.String(&sb.out, "o", "out", "output PNG file")
	parser.AttachSubcommand(&substackCmd, 1)

	stackedCmd := flaggy.Subcommand{
		Name:        "stacked",
		Description: "per-chunk stack matrix beside the stored all-time stack",
	}
	st := stackedConfig{comp: "ZZ", method: "linear", freqMin: 0.1, freqMax: 1, out: "stacked.png"}
	stackedCmd.String(&st.in, "i", "in", "stacked archive file")
	stackedCmd.String(&st.comp, "c", "comp", "component pair, e.g. ZZ")
	stackedCmd.String(&st.method, "m", "method", "stacking method: linear, robust or pws")
	stackedCmd.Float64(&st.freqMin, "l", "fmin", "low corner frequency in Hz")
	stackedCmd.Float64(&st.freqMax, "u", "fmax", "high corner frequency in Hz")
	stackedCmd.Float64(&st.lagSecs, "g", "lag", "displayed lag in seconds (0 keeps the stored range)")
	stackedCmd.Bool(&st.spectra, "w", "spectra", "insert the per-window amplitude spectra panel")
	stackedCmd.String(&st.out, "o", "out", "output PNG file")
	parser.AttachSubcommand(&stackedCmd, 1)

	heatmapCmd := flaggy.Subcommand{
		Name:        "heatmap",
		Description: "distance-binned moveout matrix for one virtual source",
	}
	hm := heatmapConfig{comp: "ZZ", method: "linear", freqMin: 0.1, freqMax: 1, distInc: 1, out: "heatmap.png"}
	heatmapCmd.String(&hm.in, "i", "in", "stacked archive glob, one file per pair")
	heatmapCmd.String(&hm.source, "s", "sta", "virtual source NET.STA")
	heatmapCmd.String(&hm.comp, "c", "comp", "component pair, e.g. ZZ")
	heatmapCmd.String(&hm.method, "m", "method", "stacking method: linear, robust or pws")
	heatmapCmd.Float64(&hm.freqMin, "l", "fmin", "low corner frequency in Hz")
	heatmapCmd.Float64(&hm.freqMax, "u", "fmax", "high corner frequency in Hz")
	heatmapCmd.Float64(&hm.lagSecs, "g", "lag", "displayed lag in seconds (0 keeps the stored range)")
	heatmapCmd.Float64(&hm.distInc, "d", "dist-inc", "distance bin width in km")
	heatmapCmd.String(&hm.out, "o", "out", "output PNG file")
	parser.AttachSubcommand(&heatmapCmd, 1)

	wiggleCmd := flaggy.Subcommand{
		Name:        "wiggle",
		Description: "distance-offset record sections, one panel per component",
	}
	wg := wiggleConfig{comps: "ZZ", method: "linear", freqMin: 0.1, freqMax: 1, scale: 1, out: "wiggle.png"}
	wiggleCmd.String(&wg.in, "i", "in", "stacked archive glob, one file per pair")
	wiggleCmd.String(&wg.source, "s", "sta", "virtual source NET.STA")
	wiggleCmd.String(&wg.comps, "c", "comps", "comma-separated component pairs, e.g. ZZ,ZR,ZT")
	wiggleCmd.String(&wg.method, "m", "method", "stacking method: linear, robust or pws")
	wiggleCmd.Float64(&wg.freqMin, "l", "fmin", "low corner frequency in Hz")
	wiggleCmd.Float64(&wg.freqMax, "u", "fmax", "high corner frequency in Hz")
	wiggleCmd.Float64(&wg.lagSecs, "g", "lag", "displayed lag in seconds (0 keeps the stored range)")
	wiggleCmd.Float64(&wg.minSNR, "n", "snr", "drop traces under this pseudo-SNR (0 keeps all)")
	wiggleCmd.Float64(&wg.scale, "a", "scale", "trace amplitude multiplier")
	wiggleCmd.String(&wg.out, "o", "out", "output PNG file")
	parser.AttachSubcommand(&wiggleCmd, 1)

	peaksCmd := flaggy.Subcommand{
		Name:        "peaks",
		Description: "velocity-windowed peak picks with map and table output",
	}
	pk := peaksConfig{comps: "ZZ", method: "linear", freqMin: 0.1, freqMax: 1, vmin: 1, vmax: 5, minSNR: 3}
	peaksCmd.String(&pk.in, "i", "in", "stacked archive glob, one file per pair")
	peaksCmd.String(&pk.source, "s", "sta", "virtual source NET.STA")
	peaksCmd.String(&pk.comps, "c", "comps", "comma-separated component pairs")
	peaksCmd.String(&pk.method, "m", "method", "stacking method: linear, robust or pws")
	peaksCmd.Float64(&pk.freqMin, "l", "fmin", "low corner frequency in Hz")
	peaksCmd.Float64(&pk.freqMax, "u", "fmax", "high corner frequency in Hz")
	peaksCmd.Float64(&pk.lagSecs, "g", "lag", "displayed lag in seconds (0 keeps the stored range)")
	peaksCmd.Float64(&pk.vmin, "v", "vmin", "slowest group velocity in km/s")
	peaksCmd.Float64(&pk.vmax, "x", "vmax", "fastest group velocity in km/s")
	peaksCmd.Float64(&pk.minSNR, "n", "snr", "drop picks under this pseudo-SNR")
	peaksCmd.String(&pk.csv, "t", "csv", "base name for per-component CSV tables")
	peaksCmd.String(&pk.parquet, "r", "parquet", "Parquet output file")
	peaksCmd.String(&pk.maps, "p", "maps", "base name for amplitude/travel-time map figures")
	parser.AttachSubcommand(&peaksCmd, 1)

	sacCmd := flaggy.Subcommand{
		Name:        "sac",
		Description: "export one archive record to SAC files",
	}
	sc := sacConfig{dir: "."}
	sacCmd.String(&sc.in, "i", "in", "archive file")
	sacCmd.String(&sc.tag, "t", "tag", "record tag (pair or stack name)")
	sacCmd.String(&sc.path, "p", "path", "record path (channel pair or component)")
	sacCmd.String(&sc.dir, "d", "dir", "output directory")
	parser.AttachSubcommand(&sacCmd, 1)

	if err := parser.Parse(); err != nil {
		fmt.Fprintf(os.Stderr, "error: parsing arguments: %v\n", err)
		os.Exit(2)
	}

	logCfg := zap.NewDevelopmentConfig()
	logCfg.DisableStacktrace = true
	logCfg.DisableCaller = true
	if quiet {
		logCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := logCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: building logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Sugar()

	switch {
	case waveformCmd.Used:
		err = runWaveform(log, wf)
	case substackCmd.Used:
		err = runSubstack(log, sb)
	case stackedCmd.Used:
		err = runStacked(log, st)
	case heatmapCmd.Used:
		err = runHeatmap(log, hm)
	case wiggleCmd.Used:
		err = runWiggle(log, wg)
	case peaksCmd.Used:
		err = runPeaks(log, pk)
	case sacCmd.Used:
		err = runSAC(log, sc)
	default:
		parser.ShowHelpAndExit("")
	}

	if err != nil {
		log.Errorw("command failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}
