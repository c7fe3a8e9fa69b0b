package collision

import (
	"sort"
	"time"

	"github.com/golang/geo/r3"

	"go.kinetix.dev/kinetix/spatialmath"
)

// QueryType selects a primitive geometric query.
type QueryType int

// The supported query types.
const (
	QueryProjectPoint QueryType = iota
	QueryContainsPoint
	QueryDistanceToPoint
	QueryIntersectsRay
	QueryCastRay
	QueryCastRayAndGetNormal
	QueryIntersectionTest
	QueryDistance
	QueryClosestPoints
	QueryContact
	QueryCCD
)

func (q QueryType) String() string {
	switch q {
	case QueryProjectPoint:
		return "project_point"
	case QueryContainsPoint:
		return "contains_point"
	case QueryDistanceToPoint:
		return "distance_to_point"
	case QueryIntersectsRay:
		return "intersects_ray"
	case QueryCastRay:
		return "cast_ray"
	case QueryCastRayAndGetNormal:
		return "cast_ray_and_get_normal"
	case QueryIntersectionTest:
		return "intersection_test"
	case QueryDistance:
		return "distance"
	case QueryClosestPoints:
		return "closest_points"
	case QueryContact:
		return "contact"
	case QueryCCD:
		return "ccd"
	default:
		return "unknown"
	}
}

// pairwise reports whether the query evaluates shape pairs rather than
// shape-vs-point or shape-vs-ray.
func (q QueryType) pairwise() bool {
	switch q {
	case QueryIntersectionTest, QueryDistance, QueryClosestPoints, QueryContact, QueryCCD:
		return true
	default:
		return false
	}
}

// StopKind enumerates early-exit policies for a query.
type StopKind int

const (
	// StopNoneKind never exits early.
	StopNoneKind StopKind = iota
	// StopIntersectionKind exits at the first detected intersection.
	StopIntersectionKind
	// StopBelowMinDistanceKind exits once any result drops below a distance.
	StopBelowMinDistanceKind
)

// StopCondition tells the engine when it may stop evaluating.
type StopCondition struct {
	Kind        StopKind
	MinDistance float64
}

// StopNone never stops early.
func StopNone() StopCondition { return StopCondition{Kind: StopNoneKind} }

// StopAtFirstIntersection stops at the first intersecting pair.
func StopAtFirstIntersection() StopCondition { return StopCondition{Kind: StopIntersectionKind} }

// StopBelowMinDistance stops once a result is below d.
func StopBelowMinDistance(d float64) StopCondition {
	return StopCondition{Kind: StopBelowMinDistanceKind, MinDistance: d}
}

// Permits reports whether evaluation may continue after seeing out.
func (sc StopCondition) Permits(out *Output) bool {
	switch sc.Kind {
	case StopIntersectionKind:
		return !out.Intersects
	case StopBelowMinDistanceKind:
		return out.Distance >= sc.MinDistance
	default:
		return true
	}
}

// LogKind enumerates output-retention policies.
type LogKind int

const (
	// LogAllKind retains every evaluated result.
	LogAllKind LogKind = iota
	// LogIntersectionsKind retains only intersecting results.
	LogIntersectionsKind
	// LogBelowMinDistanceKind retains only results below a distance.
	LogBelowMinDistanceKind
)

// LogCondition filters which evaluated results are retained in the output
// group.
type LogCondition struct {
	Kind        LogKind
	MinDistance float64
}

// LogAll retains everything.
func LogAll() LogCondition { return LogCondition{Kind: LogAllKind} }

// LogOnlyIntersections retains only intersecting results.
func LogOnlyIntersections() LogCondition { return LogCondition{Kind: LogIntersectionsKind} }

// LogBelowMinDistance retains only results closer than d.
func LogBelowMinDistance(d float64) LogCondition {
	return LogCondition{Kind: LogBelowMinDistanceKind, MinDistance: d}
}

// Retains reports whether the result should be kept.
func (lc LogCondition) Retains(out *Output) bool {
	switch lc.Kind {
	case LogIntersectionsKind:
		return out.Intersects
	case LogBelowMinDistanceKind:
		return out.Distance < lc.MinDistance
	default:
		return true
	}
}

// Ray is a world-frame ray with a maximum time of impact.
type Ray struct {
	Origin    r3.Vector
	Direction r3.Vector
	MaxTOI    float64
}

// PrimitiveRequest is the unit of work handed to an Engine: one query type
// over a pose-resolved shape table. SkipPair excludes pairs by shape index
// and must be honored; for non-pairwise queries it is nil.
type PrimitiveRequest struct {
	Type   QueryType
	Shapes []*Shape
	// Poses has one entry per shape; nil entries mark absent links and must
	// not be evaluated.
	Poses []*spatialmath.Pose
	// EndPoses is set only for CCD and holds the swept motion's end table.
	EndPoses []*spatialmath.Pose
	SkipPair func(i, j int) bool
	Stop     StopCondition

	// per-type parameters
	Point       r3.Vector
	Ray         Ray
	Solid       bool
	MaxDistance float64
	Prediction  float64
}

// Engine is the external narrow-phase collaborator. It evaluates the request
// over every permitted shape (or shape pair) and returns one Output per
// evaluation, honoring SkipPair, nil poses, and the stop condition.
type Engine interface {
	Query(req *PrimitiveRequest) ([]Output, error)
}

// Output is one evaluated result. Sig2 is meaningful only for pairwise
// queries. Distance is signed: negative values are penetration depth.
type Output struct {
	Sig1       Signature
	Sig2       Signature
	Type       QueryType
	Intersects bool
	Distance   float64
	TOI        float64
	Point      r3.Vector
	Normal     r3.Vector
}

// GroupOutput aggregates a dispatched query's retained results.
type GroupOutput struct {
	outputs    []Output
	numQueries int
	elapsed    time.Duration
}

// Outputs returns the retained results.
func (g *GroupOutput) Outputs() []Output { return g.outputs }

// NumQueries returns how many primitive evaluations ran.
func (g *GroupOutput) NumQueries() int { return g.numQueries }

// Elapsed returns the wall time the dispatch took.
func (g *GroupOutput) Elapsed() time.Duration { return g.elapsed }

// Intersects reports whether any retained result intersects.
func (g *GroupOutput) Intersects() bool {
	for i := range g.outputs {
		if g.outputs[i].Intersects {
			return true
		}
	}
	return false
}

// MinDistance returns the smallest retained distance; ok is false when the
// group is empty.
func (g *GroupOutput) MinDistance() (float64, bool) {
	if len(g.outputs) == 0 {
		return 0, false
	}
	min := g.outputs[0].Distance
	for i := range g.outputs {
		if g.outputs[i].Distance < min {
			min = g.outputs[i].Distance
		}
	}
	return min, true
}

func (g *GroupOutput) sortByDistance() {
	sort.SliceStable(g.outputs, func(i, j int) bool {
		return g.outputs[i].Distance < g.outputs[j].Distance
	})
}

// Request is a caller-level query: the primitive parameters plus dispatch
// policy. The dispatcher resolves poses and the skip matrix before handing
// the engine a PrimitiveRequest.
type Request struct {
	Type        QueryType
	Point       r3.Vector
	Ray         Ray
	Solid       bool
	MaxDistance float64
	Prediction  float64

	Stop StopCondition
	Log  LogCondition
	Sort bool
}

// RunQuery dispatches a request over a robot collection at the given pose
// table (endPoses only for CCD), delegating evaluation to the engine with
// the collection's skip matrix, then filters, validates, and optionally
// sorts the results.
func RunQuery(
	engine Engine,
	rc *RobotCollection,
	poses, endPoses []*spatialmath.Pose,
	req *Request,
) (*GroupOutput, error) {
	start := time.Now()
	c := rc.Collection()

	var skipPair func(i, j int) bool
	if req.Type.pairwise() {
		skipPair = func(i, j int) bool {
			skip, err := c.Skip(i, j)
			return err != nil || skip
		}
	}

	outputs, err := engine.Query(&PrimitiveRequest{
		Type:        req.Type,
		Shapes:      c.Shapes(),
		Poses:       poses,
		EndPoses:    endPoses,
		SkipPair:    skipPair,
		Stop:        req.Stop,
		Point:       req.Point,
		Ray:         req.Ray,
		Solid:       req.Solid,
		MaxDistance: req.MaxDistance,
		Prediction:  req.Prediction,
	})
	if err != nil {
		return nil, err
	}

	group := &GroupOutput{numQueries: len(outputs)}
	for i := range outputs {
		out := &outputs[i]
		if _, err := c.Index(out.Sig1); err != nil {
			return nil, err
		}
		if req.Type.pairwise() {
			if _, err := c.Index(out.Sig2); err != nil {
				return nil, err
			}
		}
		if req.Log.Retains(out) {
			group.outputs = append(group.outputs, *out)
		}
	}
	if req.Sort {
		group.sortByDistance()
	}
	group.elapsed = time.Since(start)
	return group, nil
}
