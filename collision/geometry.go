package collision

import (
	"math"

	"github.com/golang/geo/r3"

	"go.kinetix.dev/kinetix/spatialmath"
)

// Geometry is the opaque local-geometry handle a ShapeSource attaches to a
// shape. This package never inspects it beyond the label; engines
// type-assert the concrete types they support. Sphere and Box below are the
// concrete geometries the in-tree engines understand.
type Geometry interface {
	Label() string
}

// Sphere is a ball at a fixed offset from its link frame.
type Sphere struct {
	label  string
	Offset r3.Vector
	Radius float64
}

// NewSphere returns a labeled sphere geometry.
func NewSphere(label string, offset r3.Vector, radius float64) *Sphere {
	return &Sphere{label: label, Offset: offset, Radius: radius}
}

// Label returns the geometry's label.
func (s *Sphere) Label() string { return s.label }

// Center returns the sphere's world-frame center under a link pose.
func (s *Sphere) Center(pose spatialmath.Pose) r3.Vector {
	return pose.TransformPoint(s.Offset)
}

// SphereDistance returns the signed separation between two posed spheres:
// negative values are penetration depth.
func SphereDistance(a *Sphere, poseA spatialmath.Pose, b *Sphere, poseB spatialmath.Pose) float64 {
	return a.Center(poseA).Sub(b.Center(poseB)).Norm() - a.Radius - b.Radius
}

// Box is an oriented box centered on its link frame.
type Box struct {
	label    string
	HalfSize r3.Vector
}

// NewBox returns a labeled box geometry.
func NewBox(label string, halfSize r3.Vector) *Box {
	return &Box{label: label, HalfSize: halfSize}
}

// Label returns the geometry's label.
func (b *Box) Label() string { return b.label }

// orientedBox is a box resolved to a world pose: a position plus the box's
// local axes expressed in world coordinates.
type orientedBox struct {
	position r3.Vector
	axes     [3]r3.Vector
	halfSize r3.Vector
}

func (b *Box) oriented(pose spatialmath.Pose) orientedBox {
	m := pose.Rotation().Matrix()
	col := func(i int) r3.Vector {
		c := m.Col(i)
		return r3.Vector{X: c.X(), Y: c.Y(), Z: c.Z()}
	}
	return orientedBox{
		position: pose.Translation(),
		axes:     [3]r3.Vector{col(0), col(1), col(2)},
		halfSize: b.HalfSize,
	}
}

// BoxesIntersect reports whether two posed boxes overlap, by testing the 15
// candidate separating planes of the two boxes' axes and their cross
// products.
func BoxesIntersect(a *Box, poseA spatialmath.Pose, b *Box, poseB spatialmath.Pose) bool {
	oa, ob := a.oriented(poseA), b.oriented(poseB)
	delta := oa.position.Sub(ob.position)
	for i := 0; i < 3; i++ {
		if separatingPlane(delta, oa.axes[i], &oa, &ob) || separatingPlane(delta, ob.axes[i], &oa, &ob) {
			return false
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if separatingPlane(delta, oa.axes[i].Cross(ob.axes[j]), &oa, &ob) {
				return false
			}
		}
	}
	return true
}

// separatingPlane reports whether the plane normal to the given axis
// separates the two boxes.
func separatingPlane(delta, plane r3.Vector, a, b *orientedBox) bool {
	return math.Abs(delta.Dot(plane)) > math.Abs(a.axes[0].Mul(a.halfSize.X).Dot(plane))+
		math.Abs(a.axes[1].Mul(a.halfSize.Y).Dot(plane))+
		math.Abs(a.axes[2].Mul(a.halfSize.Z).Dot(plane))+
		math.Abs(b.axes[0].Mul(b.halfSize.X).Dot(plane))+
		math.Abs(b.axes[1].Mul(b.halfSize.Y).Dot(plane))+
		math.Abs(b.axes[2].Mul(b.halfSize.Z).Dot(plane))
}
