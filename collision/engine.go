package collision

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ccdSteps is how finely the built-in engine samples a swept motion.
const ccdSteps = 16

// BasicEngine is a reference narrow-phase over the in-tree Sphere and Box
// geometries. Production deployments plug in a full-featured engine; this
// one covers every query type analytically (spheres) or conservatively
// (boxes, swept motion) and is what the package's own tests run against.
type BasicEngine struct{}

// NewBasicEngine returns the reference engine.
func NewBasicEngine() *BasicEngine { return &BasicEngine{} }

// Query evaluates the request, honoring nil poses, SkipPair, and the stop
// condition.
func (e *BasicEngine) Query(req *PrimitiveRequest) ([]Output, error) {
	if req.Type.pairwise() {
		return e.queryPairs(req)
	}
	return e.queryShapes(req)
}

func (e *BasicEngine) queryPairs(req *PrimitiveRequest) ([]Output, error) {
	var outputs []Output
	for i := range req.Shapes {
		if req.Poses[i] == nil {
			continue
		}
		for j := i + 1; j < len(req.Shapes); j++ {
			if req.Poses[j] == nil {
				continue
			}
			if req.SkipPair != nil && req.SkipPair(i, j) {
				continue
			}
			out, keep, err := e.evalPair(req, i, j)
			if err != nil {
				return nil, err
			}
			if !keep {
				continue
			}
			outputs = append(outputs, out)
			if !req.Stop.Permits(&out) {
				return outputs, nil
			}
		}
	}
	return outputs, nil
}

func (e *BasicEngine) evalPair(req *PrimitiveRequest, i, j int) (Output, bool, error) {
	a, b := req.Shapes[i], req.Shapes[j]
	out := Output{Sig1: a.Signature(), Sig2: b.Signature(), Type: req.Type}

	switch req.Type {
	case QueryIntersectionTest:
		boxA, okA := a.Geometry().(*Box)
		boxB, okB := b.Geometry().(*Box)
		if okA && okB {
			out.Intersects = BoxesIntersect(boxA, *req.Poses[i], boxB, *req.Poses[j])
			return out, true, nil
		}
	case QueryCCD:
		return e.evalCCD(req, i, j)
	}

	sa, sb, err := spherePair(a, b)
	if err != nil {
		return out, false, err
	}
	dist := SphereDistance(sa, *req.Poses[i], sb, *req.Poses[j])
	out.Distance = dist
	out.Intersects = dist <= 0
	ca, cb := sa.Center(*req.Poses[i]), sb.Center(*req.Poses[j])
	dir := cb.Sub(ca)
	if n := dir.Norm(); n > 0 {
		out.Normal = dir.Mul(1 / n)
	}
	out.Point = ca.Add(out.Normal.Mul(sa.Radius + dist/2))

	switch req.Type {
	case QueryDistance, QueryIntersectionTest:
		return out, true, nil
	case QueryClosestPoints:
		return out, dist <= req.MaxDistance, nil
	case QueryContact:
		return out, dist <= req.Prediction, nil
	default:
		return out, false, errors.Errorf("unsupported pairwise query %s", req.Type)
	}
}

// evalCCD samples the swept motion between the start and end pose tables,
// reporting the earliest sampled time of impact. A conservative
// approximation, fine for the coarse geometries this engine serves.
func (e *BasicEngine) evalCCD(req *PrimitiveRequest, i, j int) (Output, bool, error) {
	a, b := req.Shapes[i], req.Shapes[j]
	out := Output{Sig1: a.Signature(), Sig2: b.Signature(), Type: req.Type, TOI: math.Inf(1)}
	if req.EndPoses == nil || req.EndPoses[i] == nil || req.EndPoses[j] == nil {
		return out, false, errors.New("ccd query needs an end pose table")
	}
	sa, sb, err := spherePair(a, b)
	if err != nil {
		return out, false, err
	}

	startA, endA := sa.Center(*req.Poses[i]), sa.Center(*req.EndPoses[i])
	startB, endB := sb.Center(*req.Poses[j]), sb.Center(*req.EndPoses[j])
	minDist := math.Inf(1)
	for step := 0; step <= ccdSteps; step++ {
		t := float64(step) / ccdSteps
		ca := startA.Add(endA.Sub(startA).Mul(t))
		cb := startB.Add(endB.Sub(startB).Mul(t))
		dist := ca.Sub(cb).Norm() - sa.Radius - sb.Radius
		if dist < minDist {
			minDist = dist
		}
		if dist <= 0 {
			out.Intersects = true
			out.TOI = t
			break
		}
	}
	out.Distance = minDist
	return out, true, nil
}

func (e *BasicEngine) queryShapes(req *PrimitiveRequest) ([]Output, error) {
	var outputs []Output
	for i := range req.Shapes {
		if req.Poses[i] == nil {
			continue
		}
		sphere, ok := req.Shapes[i].Geometry().(*Sphere)
		if !ok {
			return nil, errors.Errorf("query %s supports sphere geometry only, got %T", req.Type, req.Shapes[i].Geometry())
		}
		out := Output{Sig1: req.Shapes[i].Signature(), Type: req.Type}
		center := sphere.Center(*req.Poses[i])

		keep := true
		switch req.Type {
		case QueryProjectPoint, QueryContainsPoint, QueryDistanceToPoint:
			rel := req.Point.Sub(center)
			dist := rel.Norm() - sphere.Radius
			out.Distance = dist
			inside := dist <= 0
			out.Intersects = inside
			if rel.Norm() > 0 {
				out.Normal = rel.Normalize()
			}
			if inside && req.Solid {
				out.Point = req.Point
			} else {
				out.Point = center.Add(out.Normal.Mul(sphere.Radius))
			}
			if req.Type == QueryContainsPoint {
				keep = inside
			}
		case QueryIntersectsRay, QueryCastRay, QueryCastRayAndGetNormal:
			toi, hit := raySphere(req.Ray, center, sphere.Radius)
			if !hit {
				keep = false
				break
			}
			out.Intersects = true
			out.TOI = toi
			out.Point = req.Ray.Origin.Add(req.Ray.Direction.Normalize().Mul(toi))
			if req.Type == QueryCastRayAndGetNormal {
				out.Normal = out.Point.Sub(center).Normalize()
			}
		default:
			return nil, errors.Errorf("unsupported query %s", req.Type)
		}
		if !keep {
			continue
		}
		outputs = append(outputs, out)
		if !req.Stop.Permits(&out) {
			return outputs, nil
		}
	}
	return outputs, nil
}

func spherePair(a, b *Shape) (*Sphere, *Sphere, error) {
	sa, ok := a.Geometry().(*Sphere)
	if !ok {
		return nil, nil, errors.Errorf("expected sphere geometry, got %T", a.Geometry())
	}
	sb, ok := b.Geometry().(*Sphere)
	if !ok {
		return nil, nil, errors.Errorf("expected sphere geometry, got %T", b.Geometry())
	}
	return sa, sb, nil
}

// raySphere returns the smallest non-negative ray parameter hitting the
// sphere, within the ray's MaxTOI.
func raySphere(ray Ray, center r3.Vector, radius float64) (float64, bool) {
	dir := ray.Direction
	if n := dir.Norm(); n == 0 {
		return 0, false
	}
	dir = dir.Normalize()
	oc := ray.Origin.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	toi := -b - sq
	if toi < 0 {
		toi = -b + sq
	}
	if toi < 0 || (ray.MaxTOI > 0 && toi > ray.MaxTOI) {
		return 0, false
	}
	return toi, true
}

var _ Engine = (*BasicEngine)(nil)
