package collision

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.kinetix.dev/kinetix/spatialmath"
)

// a collection of three unit-radius spheres on distinct links, posed along X
func posedSpheres(t *testing.T, xs ...float64) (*RobotCollection, []*spatialmath.Pose) {
	t.Helper()
	shapes := make([]*Shape, len(xs))
	poses := make([]*spatialmath.Pose, len(xs))
	for i, x := range xs {
		shapes[i] = NewShape(Signature{LinkIdx: i, SubIdx: 0}, NewSphere("s", r3.Vector{}, 1))
		p := poseAt(r3.Vector{X: x})
		poses[i] = &p
	}
	rc, err := NewRobotCollection(SchemeBoundingBoxes, shapes)
	test.That(t, err, test.ShouldBeNil)
	return rc, poses
}

func TestRunQueryDistance(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 3, 10)

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogAll(), Sort: true,
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, group.NumQueries(), test.ShouldEqual, 3)
	outputs := group.Outputs()
	test.That(t, len(outputs), test.ShouldEqual, 3)
	// sorted ascending by distance: (0,3) then (3,10) then (0,10)
	test.That(t, outputs[0].Distance, test.ShouldAlmostEqual, 1)
	test.That(t, outputs[1].Distance, test.ShouldAlmostEqual, 5)
	test.That(t, outputs[2].Distance, test.ShouldAlmostEqual, 8)
}

func TestRunQueryHonorsSkipMatrix(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 3, 10)
	test.That(t, rc.Collection().SetSkip(0, 1, true), test.ShouldBeNil)

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, group.NumQueries(), test.ShouldEqual, 2)
	for _, out := range group.Outputs() {
		pair := [2]int{out.Sig1.LinkIdx, out.Sig2.LinkIdx}
		test.That(t, pair, test.ShouldNotResemble, [2]int{0, 1})
	}
}

func TestRunQueryLogConditions(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 1.5, 9) // first pair penetrates

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogOnlyIntersections(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, group.NumQueries(), test.ShouldEqual, 3)
	test.That(t, len(group.Outputs()), test.ShouldEqual, 1)
	test.That(t, group.Outputs()[0].Intersects, test.ShouldBeTrue)
	test.That(t, group.Intersects(), test.ShouldBeTrue)

	// pair distances are -0.5, 5.5, and 7; two sit below 6
	group, err = RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogBelowMinDistance(6),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(group.Outputs()), test.ShouldEqual, 2)
}

func TestRunQueryStopCondition(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 1.5, 1.6)

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopAtFirstIntersection(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	// the engine stopped at the first intersecting pair
	test.That(t, group.NumQueries(), test.ShouldEqual, 1)
	test.That(t, group.Outputs()[0].Intersects, test.ShouldBeTrue)
}

func TestRunQueryEmptyCollection(t *testing.T) {
	rc, err := NewRobotCollection(SchemeBoundingBoxes, nil)
	test.That(t, err, test.ShouldBeNil)

	group, err := RunQuery(NewBasicEngine(), rc, nil, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, group.Outputs(), test.ShouldBeEmpty)
	test.That(t, group.NumQueries(), test.ShouldEqual, 0)
}

func TestRunQueryPointAndRay(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 5)

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistanceToPoint, Point: r3.Vector{X: 2},
		Stop: StopNone(), Log: LogAll(), Sort: true,
	})
	test.That(t, err, test.ShouldBeNil)
	outputs := group.Outputs()
	test.That(t, len(outputs), test.ShouldEqual, 2)
	test.That(t, outputs[0].Distance, test.ShouldAlmostEqual, 1)
	test.That(t, outputs[1].Distance, test.ShouldAlmostEqual, 2)

	// contains-point keeps only the sphere actually containing the point
	group, err = RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryContainsPoint, Point: r3.Vector{X: 0.5}, Solid: true,
		Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(group.Outputs()), test.ShouldEqual, 1)
	test.That(t, group.Outputs()[0].Sig1, test.ShouldResemble, Signature{LinkIdx: 0, SubIdx: 0})

	// a ray down +X from behind the first sphere hits it at toi 1
	group, err = RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryCastRayAndGetNormal,
		Ray:  Ray{Origin: r3.Vector{X: -2}, Direction: r3.Vector{X: 1}, MaxTOI: 100},
		Stop: StopNone(), Log: LogAll(), Sort: true,
	})
	test.That(t, err, test.ShouldBeNil)
	outputs = group.Outputs()
	test.That(t, len(outputs), test.ShouldEqual, 2)
	test.That(t, outputs[0].TOI, test.ShouldAlmostEqual, 1)
	test.That(t, outputs[0].Normal.Sub(r3.Vector{X: -1}).Norm(), test.ShouldAlmostEqual, 0, 1e-8)
}

func TestRunQueryCCD(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 5)
	// sweep the second sphere through the first
	endA := poseAt(r3.Vector{})
	endB := poseAt(r3.Vector{X: -5})
	endPoses := []*spatialmath.Pose{&endA, &endB}

	group, err := RunQuery(NewBasicEngine(), rc, poses, endPoses, &Request{
		Type: QueryCCD, Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	outputs := group.Outputs()
	test.That(t, len(outputs), test.ShouldEqual, 1)
	test.That(t, outputs[0].Intersects, test.ShouldBeTrue)
	test.That(t, outputs[0].TOI, test.ShouldBeBetween, 0, 1)
}

type bogusEngine struct{}

func (bogusEngine) Query(req *PrimitiveRequest) ([]Output, error) {
	return []Output{{Sig1: Signature{LinkIdx: 42, SubIdx: 42}, Sig2: Signature{LinkIdx: 43, SubIdx: 43}}}, nil
}

func TestRunQueryUnknownSignature(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 3)
	_, err := RunQuery(bogusEngine{}, rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, errors.Is(err, ErrUnknownShapeSignature), test.ShouldBeTrue)
}

func TestRunQuerySkipsAbsentLinkPoses(t *testing.T) {
	rc, poses := posedSpheres(t, 0, 3, 10)
	poses[1] = nil

	group, err := RunQuery(NewBasicEngine(), rc, poses, nil, &Request{
		Type: QueryDistance, Stop: StopNone(), Log: LogAll(),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, group.NumQueries(), test.ShouldEqual, 1)
	outs := group.Outputs()
	test.That(t, outs[0].Sig1.LinkIdx, test.ShouldEqual, 0)
	test.That(t, outs[0].Sig2.LinkIdx, test.ShouldEqual, 2)
}
