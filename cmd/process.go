package main

import (
	"context"
	"io"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/wardrive-cli/internal/blocklist"
	"github.com/sells-group/wardrive-cli/internal/config"
	"github.com/sells-group/wardrive-cli/internal/creeps"
	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/geo"
	"github.com/sells-group/wardrive-cli/internal/pipeline"
	"github.com/sells-group/wardrive-cli/internal/report"
	"github.com/sells-group/wardrive-cli/internal/resilience"
)

const defaultInputGlob = "*.csv"

var (
	procScrub       bool
	procCreeps      bool
	procEncryption  bool
	procHere        bool
	procNotHere     bool
	procLat         float64
	procLon         float64
	procDelta       float64
	procFilter      string
	procOutputDir   string
	procUnique      bool
	procTop         int
	procFormat      string
	procReportOut   string
	procShapefile   string
	procConcurrency int
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Scrub survey files and run creeps and encryption analyses",
	Long: "Processes WiGLE CSV files. With no files, every *.csv in the current directory is used.\n" +
		"--scrub writes filtered copies under the output directory; --here/--not-here keep only\n" +
		"records inside/outside the zone around --lat/--lon. --creeps and --encryption report over\n" +
		"every parsed record.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		applyProcessFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		format, err := report.ParseFormat(cfg.Report.Format)
		if err != nil {
			return err
		}
		if format.Binary() && cfg.Report.Out == "" {
			return eris.Errorf("--format %s requires --report-out", format)
		}

		opts, err := buildOptions(cmd, cfg)
		if err != nil {
			return err
		}
		if cfg.Report.Shapefile != "" && !opts.Creeps {
			return eris.New("--shapefile exports creeps locations and requires --creeps")
		}

		files, err := resolveInputs(args)
		if err != nil {
			return err
		}

		p, err := pipeline.New(opts)
		if err != nil {
			return err
		}
		res, err := p.Run(ctx, files)
		if err != nil {
			return err
		}

		if err := writeReports(cmd.OutOrStdout(), res, format, cfg.Report, cfg.Creeps.Top); err != nil {
			return err
		}

		if cfg.Store.Enabled() {
			if err := saveRun(ctx, res); err != nil {
				return err
			}
		}

		if res.Failed() == len(res.Files) {
			return eris.New("no input file could be processed")
		}
		return nil
	},
}

func init() {
	f := processCmd.Flags()
	f.BoolVar(&procScrub, "scrub", false, "write filtered copies of the input files")
	f.BoolVar(&procCreeps, "creeps", false, "report devices seen at several distinct locations")
	f.BoolVar(&procEncryption, "encryption", false, "report the encryption mix")
	f.BoolVar(&procHere, "here", false, "with --scrub, keep only records inside the zone")
	f.BoolVar(&procNotHere, "not-here", false, "with --scrub, keep only records outside the zone")
	f.Float64Var(&procLat, "lat", 0, "zone center latitude (overrides zone.lat)")
	f.Float64Var(&procLon, "lon", 0, "zone center longitude (overrides zone.lon)")
	f.Float64Var(&procDelta, "delta", geo.DefaultDelta, "zone half-width in degrees")
	f.StringVar(&procFilter, "filter", "", "blocklist file (JSON or YAML)")
	f.StringVar(&procOutputDir, "output-dir", "", "directory for scrubbed files (default from scrub.output_dir)")
	f.BoolVar(&procUnique, "unique", false, "count each MAC+SSID once in the encryption report")
	f.IntVar(&procTop, "top", report.DefaultTop, "creeps candidates to report, -1 for all")
	f.StringVar(&procFormat, "format", "", "report format: text, json, yaml or xlsx")
	f.StringVar(&procReportOut, "report-out", "", "write the report to this file instead of stdout")
	f.StringVar(&procShapefile, "shapefile", "", "export creeps locations to this .shp file")
	f.IntVar(&procConcurrency, "concurrency", pipeline.DefaultConcurrency, "files parsed in parallel")

	processCmd.MarkFlagsMutuallyExclusive("here", "not-here")
	processCmd.MarkFlagsRequiredTogether("lat", "lon")

	rootCmd.AddCommand(processCmd)
}

// applyProcessFlags copies explicitly set flags over the loaded config.
func applyProcessFlags(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed
	if changed("lat") {
		lat := procLat
		c.Zone.Lat = &lat
	}
	if changed("lon") {
		lon := procLon
		c.Zone.Lon = &lon
	}
	if changed("delta") {
		c.Zone.Delta = procDelta
	}
	if changed("filter") {
		c.Scrub.Filter = procFilter
	}
	if changed("output-dir") {
		c.Scrub.OutputDir = procOutputDir
	}
	if changed("unique") {
		c.Encryption.Unique = procUnique
	}
	if changed("top") {
		c.Creeps.Top = procTop
	}
	if changed("format") {
		c.Report.Format = procFormat
	}
	if changed("report-out") {
		c.Report.Out = procReportOut
	}
	if changed("shapefile") {
		c.Report.Shapefile = procShapefile
	}
	if changed("concurrency") {
		c.Pipeline.Concurrency = procConcurrency
	}
}

// buildOptions turns flags and config into pipeline options. The blocklist
// is loaded when scrubbing or when --filter is given explicitly; the latter
// without --scrub is then rejected by pipeline validation.
func buildOptions(cmd *cobra.Command, c *config.Config) (pipeline.Options, error) {
	mode, err := pipeline.ParseLocationMode(procHere, procNotHere)
	if err != nil {
		return pipeline.Options{}, err
	}

	opts := pipeline.Options{
		Scrub:       procScrub,
		Creeps:      procCreeps,
		Encryption:  procEncryption,
		Location:    mode,
		OutputDir:   c.Scrub.OutputDir,
		Concurrency: c.Pipeline.Concurrency,
		CreepsOptions: []creeps.Option{
			creeps.WithTolerance(c.Creeps.Tolerance),
			creeps.WithMinLocations(c.Creeps.MinLocations),
		},
	}
	if c.Encryption.Unique {
		opts.EncryptionOptions = append(opts.EncryptionOptions, encryption.WithUniqueNetworks())
	}

	if mode != pipeline.LocationAny {
		if !c.Zone.Set() {
			return pipeline.Options{}, eris.Errorf("--%s needs a zone: pass --lat and --lon or set zone.lat and zone.lon", mode)
		}
		zone, err := geo.NewZone(*c.Zone.Lat, *c.Zone.Lon, c.Zone.Delta)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Zone = &zone
	}

	if c.Scrub.Filter != "" && (opts.Scrub || cmd.Flags().Changed("filter")) {
		bl, err := blocklist.Load(c.Scrub.Filter)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Blocklist = bl
		zap.L().Info("loaded blocklist", zap.String("path", c.Scrub.Filter), zap.Int("entries", bl.Len()))
	}
	return opts, nil
}

// resolveInputs returns args, or the *.csv files in the working directory
// when no args are given.
func resolveInputs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	matches, err := filepath.Glob(defaultInputGlob)
	if err != nil {
		return nil, eris.Wrap(err, "glob input files")
	}
	if len(matches) == 0 {
		return nil, eris.Errorf("no input files given and no %s in the current directory", defaultInputGlob)
	}
	sort.Strings(matches)
	return matches, nil
}

func writeReports(out io.Writer, res *pipeline.Result, format report.Format, rc config.ReportConfig, top int) error {
	opts := report.Options{Top: top}
	if rc.Out != "" {
		if err := report.WriteFile(rc.Out, res, format, opts); err != nil {
			return err
		}
		zap.L().Info("report written", zap.String("path", rc.Out), zap.String("format", string(format)))
	} else if err := report.Write(out, res, format, opts); err != nil {
		return err
	}

	if rc.Shapefile != "" {
		if err := report.WriteShapefile(rc.Shapefile, res.Creeps); err != nil {
			return err
		}
		zap.L().Info("shapefile written", zap.String("path", rc.Shapefile), zap.Int("candidates", len(res.Creeps)))
	}
	return nil
}

func saveRun(ctx context.Context, res *pipeline.Result) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	err = resilience.Do(ctx, storePolicy("save_run"), func(ctx context.Context) error {
		return st.SaveRun(ctx, res)
	})
	if err != nil {
		return eris.Wrap(err, "save run")
	}
	zap.L().Info("run saved", zap.String("run_id", res.RunID), zap.String("driver", cfg.Store.Driver))
	return nil
}
