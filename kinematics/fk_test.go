package kinematics

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.kinetix.dev/kinetix/robotmodel"
	"go.kinetix.dev/kinetix/spatialmath"
)

var fkPoseTypes = []spatialmath.PoseType{
	spatialmath.DualQuaternionPoseType,
	spatialmath.HomogeneousMatrixPoseType,
	spatialmath.RotationMatrixAndTranslationPoseType,
	spatialmath.UnitQuaternionAndTranslationPoseType,
}

// a 2-link robot with a single revolute joint at the origin rotating about Z
func twoLinkModel(t *testing.T) (*robotmodel.Model, *robotmodel.StateModel) {
	t.Helper()
	m, err := robotmodel.NewModel("two_link",
		[]robotmodel.LinkConfig{{Name: "base"}, {Name: "child"}},
		[]robotmodel.JointConfig{{
			Name: "pivot", Type: robotmodel.JointRevolute,
			Parent: "base", Child: "child",
			Axis: r3.Vector{Z: 1}, Min: -math.Pi, Max: math.Pi,
		}},
	)
	test.That(t, err, test.ShouldBeNil)
	return m, robotmodel.NewStateModel(m)
}

func TestFKTwoLinkRevolute(t *testing.T) {
	m, sm := twoLinkModel(t)

	for _, poseType := range fkPoseTypes {
		// at angle zero the child frame coincides with the world frame
		zero, err := robotmodel.NewState(sm, []float64{0}, robotmodel.StateTypeFull)
		test.That(t, err, test.ShouldBeNil)
		res, err := ComputeFK(m, sm, zero, poseType)
		test.That(t, err, test.ShouldBeNil)
		pose, err := res.LinkPoseByName("child")
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pose.ApproxEqual(spatialmath.NewZeroPose(poseType)), test.ShouldBeTrue)

		// at pi/2 the child's local +X maps to world +Y
		quarter, err := robotmodel.NewState(sm, []float64{math.Pi / 2}, robotmodel.StateTypeFull)
		test.That(t, err, test.ShouldBeNil)
		res, err = ComputeFK(m, sm, quarter, poseType)
		test.That(t, err, test.ShouldBeNil)
		pose, err = res.LinkPoseByName("child")
		test.That(t, err, test.ShouldBeNil)
		got := pose.TransformPoint(r3.Vector{X: 1})
		test.That(t, got.Sub(r3.Vector{Y: 1}).Norm(), test.ShouldAlmostEqual, 0, 1e-8)
	}
}

func TestFKJointOriginOffset(t *testing.T) {
	m, err := robotmodel.NewModel("offset",
		[]robotmodel.LinkConfig{{Name: "base"}, {Name: "arm"}, {Name: "tip"}},
		[]robotmodel.JointConfig{
			{
				Name: "shoulder", Type: robotmodel.JointRevolute,
				Parent: "base", Child: "arm",
				Axis: r3.Vector{Z: 1}, Min: -math.Pi, Max: math.Pi,
			},
			{
				Name: "wrist", Type: robotmodel.JointFixed,
				Parent: "arm", Child: "tip",
				OriginXYZ: r3.Vector{X: 1},
			},
		},
	)
	test.That(t, err, test.ShouldBeNil)
	sm := robotmodel.NewStateModel(m)

	// rotating the shoulder by pi/2 carries the tip's offset with it
	state, err := robotmodel.NewState(sm, []float64{math.Pi / 2}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)
	res, err := ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)
	tip, err := res.LinkPoseByName("tip")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tip.Translation().Sub(r3.Vector{Y: 1}).Norm(), test.ShouldAlmostEqual, 0, 1e-8)
}

func TestFKPrismatic(t *testing.T) {
	m, err := robotmodel.NewModel("slider",
		[]robotmodel.LinkConfig{{Name: "base"}, {Name: "carriage"}},
		[]robotmodel.JointConfig{{
			Name: "rail", Type: robotmodel.JointPrismatic,
			Parent: "base", Child: "carriage",
			Axis: r3.Vector{X: 1}, Min: 0, Max: 2,
		}},
	)
	test.That(t, err, test.ShouldBeNil)
	sm := robotmodel.NewStateModel(m)

	state, err := robotmodel.NewState(sm, []float64{1.5}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)
	res, err := ComputeFK(m, sm, state, spatialmath.HomogeneousMatrixPoseType)
	test.That(t, err, test.ShouldBeNil)
	pose, err := res.LinkPoseByName("carriage")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Translation().Sub(r3.Vector{X: 1.5}).Norm(), test.ShouldAlmostEqual, 0, 1e-8)
}

func TestFKDOFStateExpansion(t *testing.T) {
	m, sm := twoLinkModel(t)

	dof, err := robotmodel.NewState(sm, []float64{math.Pi / 4}, robotmodel.StateTypeDOF)
	test.That(t, err, test.ShouldBeNil)
	full, err := robotmodel.NewState(sm, []float64{math.Pi / 4}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)

	fromDOF, err := ComputeFK(m, sm, dof, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)
	fromFull, err := ComputeFK(m, sm, full, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)

	a, err := fromDOF.LinkPoseByName("child")
	test.That(t, err, test.ShouldBeNil)
	b, err := fromFull.LinkPoseByName("child")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.ApproxEqual(*b), test.ShouldBeTrue)
}

func TestFKDeterminism(t *testing.T) {
	m, sm := twoLinkModel(t)
	state, err := robotmodel.NewState(sm, []float64{0.123456789}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)

	first, err := ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)
	second, err := ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Poses(), test.ShouldResemble, second.Poses())
}

func TestFKNaNValue(t *testing.T) {
	m, sm := twoLinkModel(t)
	state, err := robotmodel.NewState(sm, []float64{math.NaN()}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)

	_, err = ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, errors.Is(err, ErrInvalidAxisValue), test.ShouldBeTrue)
}

func TestFKOutOfLimitWarns(t *testing.T) {
	m, sm := twoLinkModel(t)
	state, err := robotmodel.NewState(sm, []float64{10}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)

	res, err := ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, res, test.ShouldNotBeNil)
	pose, poseErr := res.LinkPoseByName("child")
	test.That(t, poseErr, test.ShouldBeNil)
	test.That(t, pose, test.ShouldNotBeNil)
}

func TestFKAbsentLinkIsNil(t *testing.T) {
	m, err := robotmodel.NewModel("branch",
		[]robotmodel.LinkConfig{{Name: "base"}, {Name: "left"}, {Name: "right"}},
		[]robotmodel.JointConfig{
			{Name: "jl", Type: robotmodel.JointRevolute, Parent: "base", Child: "left", Axis: r3.Vector{Z: 1}, Min: -1, Max: 1},
			{Name: "jr", Type: robotmodel.JointRevolute, Parent: "base", Child: "right", Axis: r3.Vector{Z: 1}, Min: -1, Max: 1},
		},
	)
	test.That(t, err, test.ShouldBeNil)
	rightIdx, err := m.LinkIndex("right")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.SetLinkPresent(rightIdx, false), test.ShouldBeNil)
	m.RecomputeKinematics()
	sm := robotmodel.NewStateModel(m)

	// the right link's joint is still present, so the full view keeps 2 slots
	state, err := robotmodel.NewState(sm, []float64{0.5, 0}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)
	res, err := ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, err, test.ShouldBeNil)

	pose, err := res.LinkPose(rightIdx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldBeNil)
}

func TestFKSizeMismatch(t *testing.T) {
	m, sm := twoLinkModel(t)

	// a state built against a larger model does not fit this one
	bigger, biggerSM := func() (*robotmodel.Model, *robotmodel.StateModel) {
		bm, err := robotmodel.NewModel("bigger",
			[]robotmodel.LinkConfig{{Name: "a"}, {Name: "b"}, {Name: "c"}},
			[]robotmodel.JointConfig{
				{Name: "j1", Type: robotmodel.JointRevolute, Parent: "a", Child: "b", Axis: r3.Vector{Z: 1}, Min: -1, Max: 1},
				{Name: "j2", Type: robotmodel.JointRevolute, Parent: "b", Child: "c", Axis: r3.Vector{Z: 1}, Min: -1, Max: 1},
			},
		)
		test.That(t, err, test.ShouldBeNil)
		return bm, robotmodel.NewStateModel(bm)
	}()
	_ = bigger

	state, err := robotmodel.NewState(biggerSM, []float64{0, 0}, robotmodel.StateTypeFull)
	test.That(t, err, test.ShouldBeNil)
	_, err = ComputeFK(m, sm, state, spatialmath.DualQuaternionPoseType)
	test.That(t, errors.Is(err, robotmodel.ErrStateSizeMismatch), test.ShouldBeTrue)
}
