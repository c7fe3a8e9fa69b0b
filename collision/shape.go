// Package collision maps robot links to collision shapes under a chosen
// representation scheme, statistically prunes shape pairs that are never
// worth querying, and dispatches proximity queries to an external
// narrow-phase engine at poses resolved through forward kinematics.
package collision

import (
	"time"
)

// Scheme selects how link geometry is approximated for collision purposes.
type Scheme int

// The supported shape-representation schemes, coarse to fine.
const (
	SchemeBoundingBoxes Scheme = iota
	SchemeConvexHulls
	SchemeSphereDecomposition
	SchemeCubeDecomposition
	SchemeConvexDecomposition
	SchemeTriangleMeshes
)

func (s Scheme) String() string {
	switch s {
	case SchemeBoundingBoxes:
		return "bounding_boxes"
	case SchemeConvexHulls:
		return "convex_hulls"
	case SchemeSphereDecomposition:
		return "sphere_decomposition"
	case SchemeCubeDecomposition:
		return "cube_decomposition"
	case SchemeConvexDecomposition:
		return "convex_decomposition"
	case SchemeTriangleMeshes:
		return "triangle_meshes"
	default:
		return "unknown"
	}
}

// AllSchemes lists every supported scheme.
func AllSchemes() []Scheme {
	return []Scheme{
		SchemeBoundingBoxes,
		SchemeConvexHulls,
		SchemeSphereDecomposition,
		SchemeCubeDecomposition,
		SchemeConvexDecomposition,
		SchemeTriangleMeshes,
	}
}

// defaultBudgets gives finer representations more preprocessing time.
func defaultBudgets() map[Scheme]time.Duration {
	return map[Scheme]time.Duration{
		SchemeBoundingBoxes:       20 * time.Second,
		SchemeConvexHulls:         30 * time.Second,
		SchemeSphereDecomposition: 30 * time.Second,
		SchemeCubeDecomposition:   30 * time.Second,
		SchemeConvexDecomposition: 60 * time.Second,
		SchemeTriangleMeshes:      120 * time.Second,
	}
}

// Signature identifies what a collision shape represents: one sub-shape of
// one link.
type Signature struct {
	LinkIdx int `json:"link_idx"`
	SubIdx  int `json:"sub_idx"`
}

// Shape pairs a signature with its local geometry handle. Geometry is
// produced by a ShapeSource and opaque to this package; engines type-assert
// the concrete types they understand.
type Shape struct {
	sig      Signature
	geometry Geometry
}

// NewShape tags a geometry handle with the link sub-shape it represents.
func NewShape(sig Signature, geometry Geometry) *Shape {
	return &Shape{sig: sig, geometry: geometry}
}

// Signature returns the shape's identifying tag.
func (s *Shape) Signature() Signature { return s.sig }

// Geometry returns the opaque local geometry handle.
func (s *Shape) Geometry() Geometry { return s.geometry }

// ShapeSource supplies the shapes of a robot's links under a given scheme.
// The returned slice may contain nil slots where a link has no geometry;
// each non-nil shape must carry its signature.
type ShapeSource interface {
	Shapes(scheme Scheme, numLinks int) ([]*Shape, error)
}
