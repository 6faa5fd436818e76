// Package pipeline applies scrub filtering and cross-file analysis to a set
// of survey files.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/wardrive-cli/internal/creeps"
	"github.com/sells-group/wardrive-cli/internal/encryption"
	"github.com/sells-group/wardrive-cli/internal/wigle"
)

// Pipeline runs one configured pass over a set of input files.
type Pipeline struct {
	opts Options
	now  func() time.Time
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Pipeline{opts: opts, now: time.Now}, nil
}

// Run parses every file, writes scrubbed copies when Scrub is set, and runs
// the enabled analyses over all parsed records in file-then-row order.
//
// A file that cannot be read or has no recognisable header is recorded in its
// FileResult and skipped. Run itself fails only on cancellation.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	res := &Result{
		RunID:     uuid.New().String(),
		Mode:      p.opts.Mode(),
		Zone:      p.opts.Zone,
		StartedAt: p.now().UTC(),
		Files:     make([]FileResult, len(paths)),
	}
	log := zap.L().With(zap.String("run_id", res.RunID), zap.String("mode", res.Mode))
	log.Info("pipeline: starting", zap.Int("files", len(paths)))

	// Parse in parallel into fixed slots so the merge below sees file order.
	parsed := make([]*wigle.File, len(paths))
	parseErrs := make([]error, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			parsed[i], parseErrs[i] = wigle.ReadFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse files")
	}

	var (
		detector *creeps.Detector
		analyzer *encryption.Analyzer
	)
	if p.opts.Creeps {
		detector = creeps.NewDetector(p.opts.CreepsOptions...)
	}
	if p.opts.Encryption {
		analyzer = encryption.NewAnalyzer(p.opts.EncryptionOptions...)
	}

	claimed := make(map[string]bool, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: cancelled")
		}

		fr := &res.Files[i]
		fr.Path = path

		if err := parseErrs[i]; err != nil {
			fr.setErr(err)
			log.Warn("pipeline: skipping file", zap.String("file", path), zap.Error(err))
			continue
		}

		f := parsed[i]
		fr.Records = len(f.Records)
		fr.Malformed = f.Malformed()
		fr.Skipped = f.Skipped
		res.Records += fr.Records

		if p.opts.Scrub {
			p.scrub(log, fr, f, claimed)
		}

		for _, rec := range f.Records {
			if detector != nil {
				detector.Add(rec)
			}
			if analyzer != nil {
				analyzer.Add(rec)
			}
		}
		parsed[i] = nil
	}

	if detector != nil {
		res.Creeps = detector.Candidates()
		res.Devices = detector.Devices()
		log.Info("pipeline: creeps analysis complete",
			zap.Int("devices", res.Devices),
			zap.Int("candidates", len(res.Creeps)),
			zap.Float64("tolerance_deg", detector.Tolerance()),
		)
	}
	if analyzer != nil {
		report := analyzer.Report()
		res.Encryption = &report
		log.Info("pipeline: encryption analysis complete", zap.Int("considered", report.Total))
	}

	res.FinishedAt = p.now().UTC()
	log.Info("pipeline: finished",
		zap.Int("records", res.Records),
		zap.Int("failed_files", res.Failed()),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

func (p *Pipeline) scrub(log *zap.Logger, fr *FileResult, f *wigle.File, claimed map[string]bool) {
	out, err := OutputPath(p.opts.OutputDir, fr.Path)
	if err == nil {
		out, err = claimOutput(out, claimed)
	}
	if err != nil {
		fr.setErr(err)
		log.Warn("pipeline: cannot scrub file", zap.String("file", fr.Path), zap.Error(err))
		return
	}

	kept, stats := Filter(f.Records, p.opts.Blocklist, p.opts.Zone, p.opts.Location)
	if err := wigle.WriteFile(out, f, kept); err != nil {
		fr.setErr(err)
		log.Warn("pipeline: write failed", zap.String("file", fr.Path), zap.Error(err))
		return
	}

	fr.Output = out
	fr.Kept = len(kept)
	fr.FilterStats = stats
	log.Info("pipeline: scrubbed",
		zap.String("file", fr.Path),
		zap.String("output", out),
		zap.Int("kept", fr.Kept),
		zap.Int("total", fr.Records),
		zap.Int("blocked", stats.Blocked),
		zap.Int("out_of_zone", stats.OutOfZone),
	)
}

// claimOutput reserves out for this run. When an earlier file already
// claimed it, a numeric suffix is added before the extension: survey.csv,
// survey-2.csv, survey-3.csv.
func claimOutput(out string, claimed map[string]bool) (string, error) {
	ext := filepath.Ext(out)
	stem := strings.TrimSuffix(out, ext)
	candidate := out
	for n := 2; ; n++ {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", eris.Wrapf(err, "pipeline: resolve %s", candidate)
		}
		if !claimed[abs] {
			claimed[abs] = true
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d%s", stem, n, ext)
	}
}

// OutputPath maps an input file to its scrubbed location under dir. Relative
// inputs keep their relative path; absolute or parent-relative inputs use
// the base name. Writing over the input itself is refused.
func OutputPath(dir, input string) (string, error) {
	rel := filepath.Clean(input)
	parent := ".." + string(filepath.Separator)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, parent) {
		rel = filepath.Base(rel)
	}
	out := filepath.Join(dir, rel)

	absIn, err := filepath.Abs(input)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: resolve %s", input)
	}
	absOut, err := filepath.Abs(out)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: resolve %s", out)
	}
	if absIn == absOut {
		return "", eris.Errorf("pipeline: output %s would overwrite its input", out)
	}
	return out, nil
}
