// Package robot is the orchestration surface: it builds the kinematic and
// collision model for a named robot from injected collaborators and exposes
// forward kinematics, collision queries, calibration, and baseline resets.
package robot

import (
	"encoding/json"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"go.kinetix.dev/kinetix/assetstore"
	"go.kinetix.dev/kinetix/collision"
	"go.kinetix.dev/kinetix/kinematics"
	"go.kinetix.dev/kinetix/robotmodel"
	"go.kinetix.dev/kinetix/spatialmath"
)

// Queries resolve link poses under this representation.
const queryPoseType = spatialmath.DualQuaternionPoseType

// Config wires a Robot's collaborators. Source, Shapes, Engine, and Store
// are required; everything else has defaults.
type Config struct {
	// Name selects the robot in the description source.
	Name string

	Source robotmodel.DescriptionSource
	Shapes collision.ShapeSource
	Engine collision.Engine
	Store  assetstore.Store

	// Sampler overrides the default seeded uniform sampler.
	Sampler     robotmodel.Sampler
	SamplerSeed int64

	Clock             clock.Clock
	Logger            golog.Logger
	PreprocessOptions collision.Options

	// ActiveLinks and ActiveJoints, when non-empty, restrict the model to
	// the named subset; everything else is marked not present.
	ActiveLinks  []string
	ActiveJoints []string

	// Mobility optionally inserts a synthetic mobile base ahead of the root.
	Mobility robotmodel.MobilityMode
}

// Robot is a constructed kinematic/collision model plus its preprocessed
// collections. Collection mutation (calibration, reset) and concurrent
// queries are synchronized internally.
type Robot struct {
	name   string
	model  *robotmodel.Model
	sm     *robotmodel.StateModel
	engine collision.Engine
	shapes collision.ShapeSource
	store  assetstore.Store
	pre    *collision.Preprocessor
	logger golog.Logger

	mu          sync.RWMutex
	collections map[collision.Scheme]*collision.RobotCollection
}

// New builds the model for the named robot. Construction is fatal on a
// missing description or a malformed graph; collections are loaded or built
// separately through LoadOrBuildCollections.
func New(cfg Config) (*Robot, error) {
	if cfg.Source == nil || cfg.Shapes == nil || cfg.Engine == nil || cfg.Store == nil {
		return nil, errors.New("robot config needs a description source, shape source, engine, and store")
	}
	if cfg.Logger == nil {
		cfg.Logger = golog.Global()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	desc, err := cfg.Source.Description(cfg.Name)
	if err != nil {
		return nil, err
	}
	model, err := robotmodel.NewModel(cfg.Name, desc.Links, desc.Joints)
	if err != nil {
		return nil, err
	}
	if err := applySubset(model, cfg.ActiveLinks, cfg.ActiveJoints); err != nil {
		return nil, err
	}
	if err := model.AddMobileBase(cfg.Mobility); err != nil {
		return nil, err
	}

	sm := robotmodel.NewStateModel(model)
	sampler := cfg.Sampler
	if sampler == nil {
		sampler = robotmodel.NewRandomSampler(sm, cfg.SamplerSeed)
	}
	pre, err := collision.NewPreprocessor(collision.PreprocessorConfig{
		Model:      model,
		StateModel: sm,
		Sampler:    sampler,
		Shapes:     cfg.Shapes,
		Engine:     cfg.Engine,
		Options:    cfg.PreprocessOptions,
		Clock:      cfg.Clock,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Robot{
		name:        cfg.Name,
		model:       model,
		sm:          sm,
		engine:      cfg.Engine,
		shapes:      cfg.Shapes,
		store:       cfg.Store,
		pre:         pre,
		logger:      cfg.Logger,
		collections: make(map[collision.Scheme]*collision.RobotCollection),
	}, nil
}

// applySubset disables every link or joint not named, when a subset is
// given. The presence cascade and a single recomputation handle the rest.
func applySubset(model *robotmodel.Model, activeLinks, activeJoints []string) error {
	if len(activeLinks) > 0 {
		keep := make(map[string]bool, len(activeLinks))
		for _, name := range activeLinks {
			keep[name] = true
		}
		for i := 0; i < model.NumLinks(); i++ {
			link, err := model.Link(i)
			if err != nil {
				return err
			}
			if i == model.WorldLinkIndex() || keep[link.Name()] {
				continue
			}
			if err := model.SetLinkPresent(i, false); err != nil {
				return err
			}
		}
	}
	if len(activeJoints) > 0 {
		keep := make(map[string]bool, len(activeJoints))
		for _, name := range activeJoints {
			keep[name] = true
		}
		for i := 0; i < model.NumJoints(); i++ {
			joint, err := model.Joint(i)
			if err != nil {
				return err
			}
			if keep[joint.Name()] {
				continue
			}
			if err := model.SetJointPresent(i, false); err != nil {
				return err
			}
		}
	}
	model.RecomputeKinematics()
	return nil
}

// Name returns the robot's name.
func (r *Robot) Name() string { return r.name }

// Model returns the kinematic graph.
func (r *Robot) Model() *robotmodel.Model { return r.model }

// StateModel returns the joint-axis state model.
func (r *Robot) StateModel() *robotmodel.StateModel { return r.sm }

// NewState wraps a raw vector, inferring the DOF or Full view from its
// length.
func (r *Robot) NewState(values []float64) (*robotmodel.State, error) {
	return robotmodel.NewStateAutoType(r.sm, values)
}

// ComputeFK returns per-link world poses for the state under the requested
// representation.
func (r *Robot) ComputeFK(state *robotmodel.State, poseType spatialmath.PoseType) (*kinematics.FKResult, error) {
	return kinematics.ComputeFK(r.model, r.sm, state, poseType)
}

// LoadOrBuildCollections resolves one collection per scheme, cache-aside:
// a stored current-variant bundle is restored with freshly resolved
// geometry; otherwise the scheme is preprocessed and persisted under both
// the current and baseline variants.
func (r *Robot) LoadOrBuildCollections(schemes ...collision.Scheme) error {
	for _, scheme := range schemes {
		rc, err := r.loadCollection(scheme, assetstore.VariantCurrent)
		switch {
		case err == nil:
			r.logger.Infow("loaded preprocessed collection", "robot", r.name, "scheme", scheme.String())
		case errors.Is(err, assetstore.ErrNotFound):
			rc, err = r.pre.Preprocess(scheme)
			if err != nil {
				return err
			}
			if err := r.saveCollection(rc, assetstore.VariantCurrent); err != nil {
				return err
			}
			if err := r.saveCollection(rc, assetstore.VariantBaseline); err != nil {
				return err
			}
		default:
			return err
		}
		r.mu.Lock()
		r.collections[scheme] = rc
		r.mu.Unlock()
	}
	return nil
}

func (r *Robot) loadCollection(scheme collision.Scheme, variant assetstore.Variant) (*collision.RobotCollection, error) {
	data, err := r.store.Load(assetstore.Key{Robot: r.name, Scheme: scheme.String(), Variant: variant})
	if err != nil {
		return nil, err
	}
	var snap collision.RobotSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(assetstore.ErrAssetUnavailable, "decoding %s/%s bundle: %v", scheme, variant, err)
	}
	shapes, err := r.shapes.Shapes(scheme, r.model.NumLinks())
	if err != nil {
		return nil, err
	}
	return collision.RestoreRobotCollection(&snap, shapes)
}

func (r *Robot) saveCollection(rc *collision.RobotCollection, variant assetstore.Variant) error {
	data, err := json.Marshal(rc.Snapshot())
	if err != nil {
		return errors.Wrapf(assetstore.ErrAssetUnavailable, "encoding %s bundle: %v", rc.Scheme(), err)
	}
	return r.store.Save(assetstore.Key{Robot: r.name, Scheme: rc.Scheme().String(), Variant: variant}, data)
}

func (r *Robot) collection(scheme collision.Scheme) (*collision.RobotCollection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.collections[scheme]
	if !ok {
		return nil, collision.NewSchemeNotPreprocessedError(scheme)
	}
	return rc, nil
}

// Query dispatches a collision query at the given state under the scheme's
// preprocessed collection. endState is required for continuous collision
// detection, which sweeps from state to endState, and must be nil otherwise.
func (r *Robot) Query(
	scheme collision.Scheme,
	state, endState *robotmodel.State,
	req *collision.Request,
) (*collision.GroupOutput, error) {
	rc, err := r.collection(scheme)
	if err != nil {
		return nil, err
	}
	if (req.Type == collision.QueryCCD) != (endState != nil) {
		return nil, errors.Errorf("query %s: an end state is required for ccd and only for ccd", req.Type)
	}

	poses, err := r.poseTable(rc, state)
	if err != nil {
		return nil, err
	}
	var endPoses []*spatialmath.Pose
	if endState != nil {
		if endPoses, err = r.poseTable(rc, endState); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return collision.RunQuery(r.engine, rc, poses, endPoses, req)
}

func (r *Robot) poseTable(rc *collision.RobotCollection, state *robotmodel.State) ([]*spatialmath.Pose, error) {
	fk, err := r.ComputeFK(state, queryPoseType)
	if fk == nil {
		return nil, err
	}
	return rc.PoseTable(fk)
}

// MarkStateAsNonCollision calibrates against a known-safe state: every
// preprocessed scheme gets its shallow resting contacts at that state
// permanently skipped, and the updated collections are persisted as the
// current variant.
func (r *Robot) MarkStateAsNonCollision(state *robotmodel.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rc := range r.collections {
		if _, err := r.pre.SuppressShallowContacts(rc, state); err != nil {
			return err
		}
		if err := r.saveCollection(rc, assetstore.VariantCurrent); err != nil {
			return err
		}
	}
	return nil
}

// Reset restores a scheme's collection from its baseline variant and
// persists the restored copy as current.
func (r *Robot) Reset(scheme collision.Scheme) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetLocked(scheme)
}

// ResetAll resets every held scheme.
func (r *Robot) ResetAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for scheme := range r.collections {
		if err := r.resetLocked(scheme); err != nil {
			return err
		}
	}
	return nil
}

func (r *Robot) resetLocked(scheme collision.Scheme) error {
	if _, ok := r.collections[scheme]; !ok {
		return collision.NewSchemeNotPreprocessedError(scheme)
	}
	rc, err := r.loadCollection(scheme, assetstore.VariantBaseline)
	if err != nil {
		return err
	}
	if err := r.saveCollection(rc, assetstore.VariantCurrent); err != nil {
		return err
	}
	r.collections[scheme] = rc
	return nil
}
