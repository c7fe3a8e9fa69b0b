package collision

import (
	"runtime"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.kinetix.dev/kinetix/kinematics"
	"go.kinetix.dev/kinetix/robotmodel"
	"go.kinetix.dev/kinetix/spatialmath"
)

// Preprocessing resolves shape poses under this representation; queries pick
// their own.
const preprocessPoseType = spatialmath.DualQuaternionPoseType

// Options are the statistical preprocessing thresholds. The different sample
// floors for the always-colliding and never-colliding classifications are
// inherited behavior: declaring "never collides" takes a higher bar than
// declaring "always collides".
type Options struct {
	// MinSamples must be reached before the time budget may stop sampling.
	MinSamples int
	// MaxSamples caps sampling regardless of the budget.
	MaxSamples int
	// NeverCollidingFloor is the sample count required before a pair with
	// zero observed collisions is marked skip.
	NeverCollidingFloor int
	// AlwaysCollidingRatio is the collision ratio above which a pair is
	// marked skip, once MinSamples is reached.
	AlwaysCollidingRatio float64
	// ShallowContactDepth is the penetration depth (length units) below
	// which a contact at a calibration state counts as shallow.
	ShallowContactDepth float64
	// ContactPrediction is the prediction margin passed to contact queries
	// during calibration.
	ContactPrediction float64
	// Budgets holds the per-scheme wall-clock sampling budget.
	Budgets map[Scheme]time.Duration
	// Workers shards the sampling loop; 0 means GOMAXPROCS.
	Workers int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		MinSamples:           70,
		MaxSamples:           100000,
		NeverCollidingFloor:  1000,
		AlwaysCollidingRatio: 0.99,
		ShallowContactDepth:  0.12,
		ContactPrediction:    0.01,
		Budgets:              defaultBudgets(),
	}
}

// withDefaults fills each unset field separately, so overriding one
// threshold never resets the others.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinSamples <= 0 {
		o.MinSamples = def.MinSamples
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = def.MaxSamples
	}
	if o.NeverCollidingFloor <= 0 {
		o.NeverCollidingFloor = def.NeverCollidingFloor
	}
	if o.AlwaysCollidingRatio <= 0 {
		o.AlwaysCollidingRatio = def.AlwaysCollidingRatio
	}
	if o.ShallowContactDepth <= 0 {
		o.ShallowContactDepth = def.ShallowContactDepth
	}
	if o.ContactPrediction <= 0 {
		o.ContactPrediction = def.ContactPrediction
	}
	if o.Budgets == nil {
		o.Budgets = def.Budgets
	}
	return o
}

// PreprocessorConfig wires a preprocessor's collaborators.
type PreprocessorConfig struct {
	Model      *robotmodel.Model
	StateModel *robotmodel.StateModel
	Sampler    robotmodel.Sampler
	Shapes     ShapeSource
	Engine     Engine
	Options    Options
	Clock      clock.Clock
	Logger     golog.Logger
}

// Preprocessor runs the Monte-Carlo classification pass that decides which
// shape pairs are worth querying at runtime.
type Preprocessor struct {
	model   *robotmodel.Model
	sm      *robotmodel.StateModel
	sampler robotmodel.Sampler
	shapes  ShapeSource
	engine  Engine
	opts    Options
	clock   clock.Clock
	logger  golog.Logger
}

// NewPreprocessor validates the config and applies defaults for the clock
// and options.
func NewPreprocessor(cfg PreprocessorConfig) (*Preprocessor, error) {
	if cfg.Model == nil || cfg.StateModel == nil {
		return nil, errors.New("preprocessor needs a model and state model")
	}
	if cfg.Sampler == nil {
		return nil, errors.New("preprocessor needs a state sampler")
	}
	if cfg.Shapes == nil {
		return nil, errors.New("preprocessor needs a shape source")
	}
	if cfg.Engine == nil {
		return nil, errors.New("preprocessor needs a query engine")
	}
	cfg.Options = cfg.Options.withDefaults()
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = golog.Global()
	}
	return &Preprocessor{
		model:   cfg.Model,
		sm:      cfg.StateModel,
		sampler: cfg.Sampler,
		shapes:  cfg.Shapes,
		engine:  cfg.Engine,
		opts:    cfg.Options,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}, nil
}

// pairAccum holds one worker's running sums; accumulators merge by addition,
// so sharding samples across workers is exact.
type pairAccum struct {
	sum        [][]float64
	collisions [][]int64
	count      [][]int64
}

func newPairAccum(n int) *pairAccum {
	a := &pairAccum{
		sum:        make([][]float64, n),
		collisions: make([][]int64, n),
		count:      make([][]int64, n),
	}
	for i := 0; i < n; i++ {
		a.sum[i] = make([]float64, n)
		a.collisions[i] = make([]int64, n)
		a.count[i] = make([]int64, n)
	}
	return a
}

func (a *pairAccum) add(i, j int, dist float64) {
	a.sum[i][j] += dist
	a.count[i][j]++
	if dist <= 0 {
		a.collisions[i][j]++
	}
}

func (a *pairAccum) merge(other *pairAccum) {
	for i := range a.sum {
		for j := range a.sum[i] {
			a.sum[i][j] += other.sum[i][j]
			a.collisions[i][j] += other.collisions[i][j]
			a.count[i][j] += other.count[i][j]
		}
	}
}

// Preprocess builds the scheme's collection, samples random states until the
// scheme's wall-clock budget elapses (with MinSamples as a floor and
// MaxSamples as a ceiling), then classifies every pair. Any failure aborts
// the whole scheme; no partially converged matrices escape.
func (p *Preprocessor) Preprocess(scheme Scheme) (*RobotCollection, error) {
	shapes, err := p.shapes.Shapes(scheme, p.model.NumLinks())
	if err != nil {
		return nil, errors.Wrapf(err, "resolving shapes for scheme %s", scheme)
	}
	rc, err := NewRobotCollection(scheme, shapes)
	if err != nil {
		return nil, err
	}
	n := rc.Collection().NumShapes()
	if n < 2 {
		return rc, nil
	}

	budget, ok := p.opts.Budgets[scheme]
	if !ok {
		budget = defaultBudgets()[scheme]
	}
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := p.clock.Now()
	total := atomic.NewInt64(0)
	merged := newPairAccum(n)
	var mergeMu sync.Mutex
	var sampleMu sync.Mutex

	var group errgroup.Group
	for w := 0; w < workers; w++ {
		group.Go(func() error {
			local := newPairAccum(n)
			for {
				seen := total.Inc()
				if seen > int64(p.opts.MaxSamples) {
					break
				}
				if p.clock.Now().Sub(start) >= budget && seen > int64(p.opts.MinSamples) {
					break
				}

				sampleMu.Lock()
				state, err := p.sampler.SampleFull()
				sampleMu.Unlock()
				if err != nil {
					return errors.Wrap(err, "drawing sample state")
				}
				outputs, err := p.sampleDistances(rc, state)
				if err != nil {
					return err
				}
				for k := range outputs {
					out := &outputs[k]
					i, err := rc.Collection().Index(out.Sig1)
					if err != nil {
						return err
					}
					j, err := rc.Collection().Index(out.Sig2)
					if err != nil {
						return err
					}
					local.add(i, j, out.Distance)
				}
			}
			mergeMu.Lock()
			merged.merge(local)
			mergeMu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if err := p.classify(rc, merged); err != nil {
		return nil, err
	}
	p.logSummary(rc, total.Load(), p.clock.Now().Sub(start))
	return rc, nil
}

// sampleDistances runs FK at the state and issues one batched all-pairs
// distance query. Out-of-limit warnings from FK are ignored here: samples
// are drawn within limits by construction.
func (p *Preprocessor) sampleDistances(rc *RobotCollection, state *robotmodel.State) ([]Output, error) {
	fk, err := kinematics.ComputeFK(p.model, p.sm, state, preprocessPoseType)
	if fk == nil {
		return nil, err
	}
	poses, err := rc.PoseTable(fk)
	if err != nil {
		return nil, err
	}
	return p.engine.Query(&PrimitiveRequest{
		Type:     QueryDistance,
		Shapes:   rc.Collection().Shapes(),
		Poses:    poses,
		SkipPair: func(i, j int) bool { return i == j },
		Stop:     StopNone(),
	})
}

// classify writes the average-distance matrix and decides permanent skips:
// same shape, same link, essentially-always colliding, or never colliding
// after enough evidence.
func (p *Preprocessor) classify(rc *RobotCollection, acc *pairAccum) error {
	c := rc.Collection()
	n := c.NumShapes()
	for i := 0; i < n; i++ {
		sigI := c.shapes[i].sig
		for j := i + 1; j < n; j++ {
			count := acc.count[i][j] + acc.count[j][i]
			sum := acc.sum[i][j] + acc.sum[j][i]
			collisions := acc.collisions[i][j] + acc.collisions[j][i]

			if count > 0 {
				if err := c.SetAverageDistance(i, j, sum/float64(count)); err != nil {
					return err
				}
			}
			if c.shapes[j].sig.LinkIdx == sigI.LinkIdx {
				if err := c.SetSkip(i, j, true); err != nil {
					return err
				}
				continue
			}
			if count == 0 {
				continue
			}
			ratio := float64(collisions) / float64(count)
			if ratio > p.opts.AlwaysCollidingRatio && count >= int64(p.opts.MinSamples) {
				if err := c.SetSkip(i, j, true); err != nil {
					return err
				}
				continue
			}
			if collisions == 0 && count >= int64(p.opts.NeverCollidingFloor) {
				if err := c.SetSkip(i, j, true); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Preprocessor) logSummary(rc *RobotCollection, samples int64, elapsed time.Duration) {
	c := rc.Collection()
	n := c.NumShapes()
	var dists []float64
	skipped := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if c.skip[i][j] {
				skipped++
				continue
			}
			dists = append(dists, c.avgDist[i][j])
		}
	}
	mean, _ := stats.Mean(dists)
	max, _ := stats.Max(dists)
	p.logger.Infow("preprocessed collision scheme",
		"scheme", rc.Scheme().String(),
		"shapes", n,
		"samples", samples,
		"elapsed", elapsed,
		"skippedPairs", skipped,
		"meanPairDistance", mean,
		"maxPairDistance", max,
	)
}

// SuppressShallowContacts issues a live contact query at a calibration state
// and permanently skips every pair whose penetration is shallow: between
// zero and the configured depth. It returns how many pairs were suppressed.
func (p *Preprocessor) SuppressShallowContacts(rc *RobotCollection, state *robotmodel.State) (int, error) {
	fk, err := kinematics.ComputeFK(p.model, p.sm, state, preprocessPoseType)
	if fk == nil {
		return 0, err
	}
	poses, err := rc.PoseTable(fk)
	if err != nil {
		return 0, err
	}
	c := rc.Collection()
	outputs, err := p.engine.Query(&PrimitiveRequest{
		Type:   QueryContact,
		Shapes: c.Shapes(),
		Poses:  poses,
		SkipPair: func(i, j int) bool {
			skip, err := c.Skip(i, j)
			return err != nil || skip
		},
		Stop:       StopNone(),
		Prediction: p.opts.ContactPrediction,
	})
	if err != nil {
		return 0, err
	}

	suppressed := 0
	for k := range outputs {
		out := &outputs[k]
		if out.Distance > 0 || out.Distance <= -p.opts.ShallowContactDepth {
			continue
		}
		i, err := c.Index(out.Sig1)
		if err != nil {
			return suppressed, err
		}
		j, err := c.Index(out.Sig2)
		if err != nil {
			return suppressed, err
		}
		if err := c.SetSkip(i, j, true); err != nil {
			return suppressed, err
		}
		suppressed++
	}
	p.logger.Infow("suppressed shallow contacts",
		"scheme", rc.Scheme().String(),
		"pairs", suppressed,
		"maxPenetration", p.opts.ShallowContactDepth,
	)
	return suppressed, nil
}
