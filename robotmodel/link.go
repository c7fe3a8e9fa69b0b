package robotmodel

import (
	"math"

	"github.com/golang/geo/r3"
)

// AxisKind distinguishes rotational from translational joint axes.
type AxisKind int

// The two axis kinds.
const (
	AxisRotational AxisKind = iota
	AxisTranslational
)

// Link is one node of the kinematic tree. Relationships are stored as dense
// integer indices into the owning Model's arenas, never as pointers.
type Link struct {
	name        string
	index       int
	present     bool
	parentLink  int // -1 for the root
	parentJoint int // -1 for the root
	children    []int
}

// Name returns the link's name from the description.
func (l *Link) Name() string { return l.name }

// Index returns the link's arena index.
func (l *Link) Index() int { return l.index }

// Present reports whether the link participates in kinematics.
func (l *Link) Present() bool { return l.present }

// ParentLink returns the preceding link index, or -1 for the root.
func (l *Link) ParentLink() int { return l.parentLink }

// ParentJoint returns the preceding joint index, or -1 for the root.
func (l *Link) ParentJoint() int { return l.parentJoint }

// Children returns the indices of the link's child links, in description
// order.
func (l *Link) Children() []int {
	out := make([]int, len(l.children))
	copy(out, l.children)
	return out
}

// JointAxis is a single scalar degree of freedom (or fixed offset) belonging
// to exactly one joint.
type JointAxis struct {
	jointIdx   int
	subIdx     int
	kind       AxisKind
	axis       r3.Vector
	min, max   float64
	fixed      bool
	fixedValue float64
}

// Kind reports whether the axis is rotational or translational.
func (a *JointAxis) Kind() AxisKind { return a.kind }

// Axis returns the motion axis in the joint frame.
func (a *JointAxis) Axis() r3.Vector { return a.axis }

// Limits returns the axis value bounds. Unbounded axes report infinities.
func (a *JointAxis) Limits() (min, max float64) { return a.min, a.max }

// Fixed reports whether the axis is pinned to a fixed value.
func (a *JointAxis) Fixed() bool { return a.fixed }

// FixedValue returns the pinned value; meaningful only when Fixed is true.
func (a *JointAxis) FixedValue() float64 { return a.fixedValue }

// Joint connects a parent link to a child link through zero or more axes.
type Joint struct {
	name       string
	index      int
	present    bool
	typ        JointType
	axes       []JointAxis
	parentLink int
	childLink  int
	originXYZ  r3.Vector
	originRPY  r3.Vector
}

// Name returns the joint's name from the description.
func (j *Joint) Name() string { return j.name }

// Index returns the joint's arena index.
func (j *Joint) Index() int { return j.index }

// Present reports whether the joint participates in kinematics.
func (j *Joint) Present() bool { return j.present }

// Type returns the joint's mobility classification.
func (j *Joint) Type() JointType { return j.typ }

// ParentLink returns the index of the joint's parent link.
func (j *Joint) ParentLink() int { return j.parentLink }

// ChildLink returns the index of the joint's child link.
func (j *Joint) ChildLink() int { return j.childLink }

// Origin returns the joint frame offset from the parent link frame as a
// translation and extrinsic x-y-z Euler angles.
func (j *Joint) Origin() (xyz, rpy r3.Vector) { return j.originXYZ, j.originRPY }

// Axes returns the joint's axes in order.
func (j *Joint) Axes() []JointAxis {
	out := make([]JointAxis, len(j.axes))
	copy(out, j.axes)
	return out
}

// NumAxes returns the number of axes, fixed or free.
func (j *Joint) NumAxes() int { return len(j.axes) }

// DOF returns the number of free (non-fixed) axes.
func (j *Joint) DOF() int {
	n := 0
	for i := range j.axes {
		if !j.axes[i].fixed {
			n++
		}
	}
	return n
}

// axesForJoint expands a joint config into its axis list.
func axesForJoint(jointIdx int, cfg JointConfig) []JointAxis {
	mk := func(subIdx int, kind AxisKind, axis r3.Vector, min, max float64) JointAxis {
		return JointAxis{jointIdx: jointIdx, subIdx: subIdx, kind: kind, axis: axis, min: min, max: max}
	}
	inf := math.Inf(1)
	switch cfg.Type {
	case JointRevolute:
		return []JointAxis{mk(0, AxisRotational, normalizedOr(cfg.Axis, r3.Vector{Z: 1}), cfg.Min, cfg.Max)}
	case JointPrismatic:
		return []JointAxis{mk(0, AxisTranslational, normalizedOr(cfg.Axis, r3.Vector{Z: 1}), cfg.Min, cfg.Max)}
	case JointFixed:
		return nil
	case JointFloating:
		return []JointAxis{
			mk(0, AxisTranslational, r3.Vector{X: 1}, -inf, inf),
			mk(1, AxisTranslational, r3.Vector{Y: 1}, -inf, inf),
			mk(2, AxisTranslational, r3.Vector{Z: 1}, -inf, inf),
			mk(3, AxisRotational, r3.Vector{X: 1}, -math.Pi, math.Pi),
			mk(4, AxisRotational, r3.Vector{Y: 1}, -math.Pi, math.Pi),
			mk(5, AxisRotational, r3.Vector{Z: 1}, -math.Pi, math.Pi),
		}
	case JointPlanar:
		normal := normalizedOr(cfg.Axis, r3.Vector{Z: 1})
		u, v := planeBasis(normal)
		return []JointAxis{
			mk(0, AxisTranslational, u, -inf, inf),
			mk(1, AxisTranslational, v, -inf, inf),
			mk(2, AxisRotational, normal, -math.Pi, math.Pi),
		}
	default:
		return nil
	}
}

func normalizedOr(v, fallback r3.Vector) r3.Vector {
	if v.Norm() == 0 {
		return fallback
	}
	return v.Normalize()
}

// planeBasis returns two unit vectors spanning the plane perpendicular to n.
func planeBasis(n r3.Vector) (r3.Vector, r3.Vector) {
	ref := r3.Vector{X: 1}
	if math.Abs(n.X) > 0.9 {
		ref = r3.Vector{Y: 1}
	}
	u := n.Cross(ref).Normalize()
	v := n.Cross(u).Normalize()
	return u, v
}
