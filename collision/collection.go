package collision

import (
	"github.com/pkg/errors"

	"go.kinetix.dev/kinetix/kinematics"
	"go.kinetix.dev/kinetix/robotmodel"
	"go.kinetix.dev/kinetix/spatialmath"
)

// Collection holds an ordered list of shapes plus the symmetric pairwise
// bookkeeping runtime queries consult: a skip matrix saying which pairs are
// never worth evaluating, and the average separation observed during
// preprocessing. The diagonal of the skip matrix is always true.
type Collection struct {
	shapes   []*Shape
	idxBySig map[Signature]int
	skip     [][]bool
	avgDist  [][]float64
}

// NewCollection wraps the given shapes, rejecting duplicate signatures, and
// initializes the matrices with only the diagonal skipped.
func NewCollection(shapes []*Shape) (*Collection, error) {
	c := &Collection{
		shapes:   append([]*Shape(nil), shapes...),
		idxBySig: make(map[Signature]int, len(shapes)),
	}
	for i, s := range shapes {
		if s == nil {
			return nil, errors.Errorf("nil shape at index %d", i)
		}
		if _, ok := c.idxBySig[s.sig]; ok {
			return nil, errors.Errorf("duplicate shape signature (link %d, sub %d)", s.sig.LinkIdx, s.sig.SubIdx)
		}
		c.idxBySig[s.sig] = i
	}
	n := len(shapes)
	c.skip = make([][]bool, n)
	c.avgDist = make([][]float64, n)
	for i := 0; i < n; i++ {
		c.skip[i] = make([]bool, n)
		c.skip[i][i] = true
		c.avgDist[i] = make([]float64, n)
	}
	return c, nil
}

// NumShapes returns the number of shapes in the collection.
func (c *Collection) NumShapes() int { return len(c.shapes) }

// Shape returns the shape at the given index.
func (c *Collection) Shape(i int) (*Shape, error) {
	if i < 0 || i >= len(c.shapes) {
		return nil, robotmodel.NewIndexOutOfBoundsError("shape", i, len(c.shapes))
	}
	return c.shapes[i], nil
}

// Shapes returns the ordered shape list. Callers must not mutate it.
func (c *Collection) Shapes() []*Shape { return c.shapes }

// Index resolves a signature to its shape index.
func (c *Collection) Index(sig Signature) (int, error) {
	i, ok := c.idxBySig[sig]
	if !ok {
		return 0, NewUnknownShapeSignatureError(sig)
	}
	return i, nil
}

// Skip reports whether the pair should never be queried.
func (c *Collection) Skip(i, j int) (bool, error) {
	if err := c.checkPair(i, j); err != nil {
		return false, err
	}
	return c.skip[i][j], nil
}

// SetSkip marks a pair as permanently skipped (or queryable again), writing
// both triangles. The diagonal cannot be unset.
func (c *Collection) SetSkip(i, j int, skip bool) error {
	if err := c.checkPair(i, j); err != nil {
		return err
	}
	if i == j {
		return nil
	}
	c.skip[i][j] = skip
	c.skip[j][i] = skip
	return nil
}

// AverageDistance returns the recorded mean separation of a pair.
func (c *Collection) AverageDistance(i, j int) (float64, error) {
	if err := c.checkPair(i, j); err != nil {
		return 0, err
	}
	return c.avgDist[i][j], nil
}

// SetAverageDistance records a pair's mean separation symmetrically.
func (c *Collection) SetAverageDistance(i, j int, d float64) error {
	if err := c.checkPair(i, j); err != nil {
		return err
	}
	c.avgDist[i][j] = d
	c.avgDist[j][i] = d
	return nil
}

func (c *Collection) checkPair(i, j int) error {
	n := len(c.shapes)
	if i < 0 || i >= n {
		return robotmodel.NewIndexOutOfBoundsError("shape", i, n)
	}
	if j < 0 || j >= n {
		return robotmodel.NewIndexOutOfBoundsError("shape", j, n)
	}
	return nil
}

// Clone returns a deep copy sharing only the immutable shapes.
func (c *Collection) Clone() *Collection {
	out := &Collection{
		shapes:   append([]*Shape(nil), c.shapes...),
		idxBySig: make(map[Signature]int, len(c.idxBySig)),
		skip:     make([][]bool, len(c.skip)),
		avgDist:  make([][]float64, len(c.avgDist)),
	}
	for k, v := range c.idxBySig {
		out.idxBySig[k] = v
	}
	for i := range c.skip {
		out.skip[i] = append([]bool(nil), c.skip[i]...)
		out.avgDist[i] = append([]float64(nil), c.avgDist[i]...)
	}
	return out
}

// Snapshot is the serializable portion of a collection: signatures and
// matrices, but not the opaque geometry handles, which are re-resolved from
// the shape source on load.
type Snapshot struct {
	Signatures      []Signature `json:"signatures"`
	Skip            [][]bool    `json:"skip"`
	AverageDistance [][]float64 `json:"average_distance"`
}

// Snapshot captures the collection's current matrices.
func (c *Collection) Snapshot() *Snapshot {
	snap := &Snapshot{
		Signatures:      make([]Signature, len(c.shapes)),
		Skip:            make([][]bool, len(c.skip)),
		AverageDistance: make([][]float64, len(c.avgDist)),
	}
	for i, s := range c.shapes {
		snap.Signatures[i] = s.sig
	}
	for i := range c.skip {
		snap.Skip[i] = append([]bool(nil), c.skip[i]...)
		snap.AverageDistance[i] = append([]float64(nil), c.avgDist[i]...)
	}
	return snap
}

// RestoreCollection rebuilds a collection from a snapshot plus freshly
// resolved shapes, which must match the snapshot's signatures in order.
func RestoreCollection(snap *Snapshot, shapes []*Shape) (*Collection, error) {
	c, err := NewCollection(shapes)
	if err != nil {
		return nil, err
	}
	if len(snap.Signatures) != len(shapes) {
		return nil, errors.Errorf("snapshot has %d shapes, source resolved %d", len(snap.Signatures), len(shapes))
	}
	for i, sig := range snap.Signatures {
		if shapes[i].sig != sig {
			return nil, NewUnknownShapeSignatureError(sig)
		}
	}
	for i := range snap.Skip {
		c.skip[i] = append([]bool(nil), snap.Skip[i]...)
		c.avgDist[i] = append([]float64(nil), snap.AverageDistance[i]...)
		c.skip[i][i] = true
	}
	return c, nil
}

// RobotCollection binds one representation scheme to a collection plus the
// link-to-shape-indices mapping query dispatch uses to build pose tables.
type RobotCollection struct {
	scheme     Scheme
	collection *Collection
	linkShapes map[int][]int
}

// NewRobotCollection builds a collection from a shape source's output,
// dropping nil slots and indexing shapes by owning link.
func NewRobotCollection(scheme Scheme, shapes []*Shape) (*RobotCollection, error) {
	var kept []*Shape
	for _, s := range shapes {
		if s != nil {
			kept = append(kept, s)
		}
	}
	c, err := NewCollection(kept)
	if err != nil {
		return nil, err
	}
	rc := &RobotCollection{scheme: scheme, collection: c, linkShapes: make(map[int][]int)}
	for i, s := range kept {
		rc.linkShapes[s.sig.LinkIdx] = append(rc.linkShapes[s.sig.LinkIdx], i)
	}
	return rc, nil
}

// Scheme returns the representation scheme the collection was built under.
func (rc *RobotCollection) Scheme() Scheme { return rc.scheme }

// Collection returns the underlying shape collection.
func (rc *RobotCollection) Collection() *Collection { return rc.collection }

// LinkShapeIndexes returns the shape indices registered to a link.
func (rc *RobotCollection) LinkShapeIndexes(linkIdx int) []int {
	return append([]int(nil), rc.linkShapes[linkIdx]...)
}

// PoseTable maps each shape to its link's world pose from an FK result;
// shapes on absent links get nil entries.
func (rc *RobotCollection) PoseTable(fk *kinematics.FKResult) ([]*spatialmath.Pose, error) {
	table := make([]*spatialmath.Pose, rc.collection.NumShapes())
	for i, s := range rc.collection.shapes {
		pose, err := fk.LinkPose(s.sig.LinkIdx)
		if err != nil {
			return nil, err
		}
		table[i] = pose
	}
	return table, nil
}

// Clone deep-copies the robot collection.
func (rc *RobotCollection) Clone() *RobotCollection {
	linkShapes := make(map[int][]int, len(rc.linkShapes))
	for k, v := range rc.linkShapes {
		linkShapes[k] = append([]int(nil), v...)
	}
	return &RobotCollection{scheme: rc.scheme, collection: rc.collection.Clone(), linkShapes: linkShapes}
}

// RobotSnapshot is the serializable form of a robot collection.
type RobotSnapshot struct {
	Scheme     Scheme        `json:"scheme"`
	Collection *Snapshot     `json:"collection"`
	LinkShapes map[int][]int `json:"link_shapes"`
}

// Snapshot captures the robot collection for persistence.
func (rc *RobotCollection) Snapshot() *RobotSnapshot {
	linkShapes := make(map[int][]int, len(rc.linkShapes))
	for k, v := range rc.linkShapes {
		linkShapes[k] = append([]int(nil), v...)
	}
	return &RobotSnapshot{Scheme: rc.scheme, Collection: rc.collection.Snapshot(), LinkShapes: linkShapes}
}

// RestoreRobotCollection rebuilds a robot collection from a snapshot plus
// freshly resolved shapes.
func RestoreRobotCollection(snap *RobotSnapshot, shapes []*Shape) (*RobotCollection, error) {
	var kept []*Shape
	for _, s := range shapes {
		if s != nil {
			kept = append(kept, s)
		}
	}
	c, err := RestoreCollection(snap.Collection, kept)
	if err != nil {
		return nil, err
	}
	linkShapes := make(map[int][]int, len(snap.LinkShapes))
	for k, v := range snap.LinkShapes {
		linkShapes[k] = append([]int(nil), v...)
	}
	return &RobotCollection{scheme: snap.Scheme, collection: c, linkShapes: linkShapes}, nil
}
