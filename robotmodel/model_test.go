package robotmodel

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

// a 4-link serial arm: base -> shoulder -> forearm -> tool, with the tool
// attached through a fixed joint
func testArmConfigs() ([]LinkConfig, []JointConfig) {
	links := []LinkConfig{{Name: "base"}, {Name: "shoulder"}, {Name: "forearm"}, {Name: "tool"}}
	joints := []JointConfig{
		{Name: "j_shoulder", Type: JointRevolute, Parent: "base", Child: "shoulder", Axis: r3.Vector{Z: 1}, Min: -math.Pi, Max: math.Pi},
		{Name: "j_elbow", Type: JointRevolute, Parent: "shoulder", Child: "forearm", Axis: r3.Vector{Y: 1}, Min: -2, Max: 2, OriginXYZ: r3.Vector{X: 1}},
		{Name: "j_tool", Type: JointFixed, Parent: "forearm", Child: "tool", OriginXYZ: r3.Vector{X: 0.5}},
	}
	return links, joints
}

func testArmModel(t *testing.T) *Model {
	t.Helper()
	links, joints := testArmConfigs()
	m, err := NewModel("arm", links, joints)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestNewModelLayers(t *testing.T) {
	m := testArmModel(t)
	test.That(t, m.WorldLinkIndex(), test.ShouldEqual, 0)
	test.That(t, m.RobotBaseLinkIndex(), test.ShouldEqual, 0)

	layers := m.TraversalLayers()
	test.That(t, layers, test.ShouldResemble, [][]int{{0}, {1}, {2}, {3}})
	test.That(t, m.MaxDepth(), test.ShouldEqual, 3)

	// every present link appears exactly once, at its parent's layer + 1
	seen := map[int]int{}
	for depth, layer := range layers {
		for _, li := range layer {
			_, dup := seen[li]
			test.That(t, dup, test.ShouldBeFalse)
			seen[li] = depth
		}
	}
	for li := 1; li < m.NumLinks(); li++ {
		link, err := m.Link(li)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, seen[li], test.ShouldEqual, seen[link.ParentLink()]+1)
	}
}

func TestNewModelMalformed(t *testing.T) {
	links, joints := testArmConfigs()

	// unknown child link name
	bad := append([]JointConfig(nil), joints...)
	bad[0].Child = "nonesuch"
	_, err := NewModel("arm", links, bad)
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)

	// two roots: drop the joint connecting the tool
	_, err = NewModel("arm", links, joints[:2])
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)

	// no root: two links joined in a cycle
	_, err = NewModel("loop",
		[]LinkConfig{{Name: "a"}, {Name: "b"}},
		[]JointConfig{
			{Name: "ab", Type: JointFixed, Parent: "a", Child: "b"},
			{Name: "ba", Type: JointFixed, Parent: "b", Child: "a"},
		})
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)

	// duplicate link name
	_, err = NewModel("dup", []LinkConfig{{Name: "a"}, {Name: "a"}}, nil)
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)
}

func TestLinkChains(t *testing.T) {
	m := testArmModel(t)

	chain, err := m.LinkChain(0, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain, test.ShouldResemble, []int{0, 1, 2, 3})

	// trivial self chain
	chain, err = m.LinkChain(2, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain, test.ShouldResemble, []int{2})

	// walking upward never reaches a descendant
	chain, err = m.LinkChain(3, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chain, test.ShouldBeNil)

	_, err = m.LinkChain(0, 99)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
}

func TestPrecedingActuatedJoint(t *testing.T) {
	m := testArmModel(t)

	// the tool's own joint is fixed; the nearest actuated ancestor is the elbow
	ji, err := m.PrecedingActuatedJoint(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ji, test.ShouldEqual, 1)

	// the root has no preceding joint at all
	ji, err = m.PrecedingActuatedJoint(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ji, test.ShouldEqual, -1)

	// forearm and tool are both carried by the elbow
	carried, err := m.LinksWithPrecedingActuatedJoint(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, carried, test.ShouldResemble, []int{2, 3})
}

func TestDownstreamAndDeepest(t *testing.T) {
	m := testArmModel(t)

	down, err := m.DownstreamLinks(1)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, down, test.ShouldResemble, []int{2, 3})

	deepest, err := m.DeepestLink([]int{0, 2, 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deepest, test.ShouldEqual, 2)
}

func TestSetLinkPresentCascade(t *testing.T) {
	m := testArmModel(t)

	test.That(t, m.SetLinkPresent(2, false), test.ShouldBeNil)
	m.RecomputeKinematics()

	// forearm and everything below drop out of the layers
	test.That(t, m.TraversalLayers(), test.ShouldResemble, [][]int{{0}, {1}})

	// the joint parented by the disabled link went with it
	j, err := m.Joint(2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, j.Present(), test.ShouldBeFalse)

	depth, err := m.TraversalLayer(3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, depth, test.ShouldEqual, -1)

	// re-enable and rebuild
	test.That(t, m.SetLinkPresent(2, true), test.ShouldBeNil)
	m.RecomputeKinematics()
	test.That(t, m.TraversalLayers(), test.ShouldResemble, [][]int{{0}, {1}, {2}, {3}})

	// the root cannot be disabled
	err = m.SetLinkPresent(0, false)
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)
}

func TestSetFixedJointAxis(t *testing.T) {
	m := testArmModel(t)

	val := 0.25
	test.That(t, m.SetFixedJointAxis(0, 0, &val), test.ShouldBeNil)
	j, err := m.Joint(0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, j.DOF(), test.ShouldEqual, 0)
	test.That(t, j.Axes()[0].FixedValue(), test.ShouldEqual, 0.25)

	test.That(t, m.SetFixedJointAxis(0, 0, nil), test.ShouldBeNil)
	test.That(t, j.DOF(), test.ShouldEqual, 1)

	err = m.SetFixedJointAxis(0, 5, &val)
	test.That(t, errors.Is(err, ErrIndexOutOfBounds), test.ShouldBeTrue)
}

func TestAddMobileBase(t *testing.T) {
	m := testArmModel(t)
	oldRoot := m.WorldLinkIndex()

	test.That(t, m.AddMobileBase(MobilityPlanar), test.ShouldBeNil)
	test.That(t, m.WorldLinkIndex(), test.ShouldNotEqual, oldRoot)
	test.That(t, m.RobotBaseLinkIndex(), test.ShouldEqual, oldRoot)

	// the synthetic link heads layer 0; everything shifted one layer down
	layers := m.TraversalLayers()
	test.That(t, layers[0], test.ShouldResemble, []int{m.WorldLinkIndex()})
	test.That(t, layers[1], test.ShouldResemble, []int{oldRoot})

	baseJointIdx, err := m.JointIndex(mobileBaseJointName)
	test.That(t, err, test.ShouldBeNil)
	baseJoint, err := m.Joint(baseJointIdx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, baseJoint.DOF(), test.ShouldEqual, 3)

	// only one mobile base allowed
	err = m.AddMobileBase(MobilityFloating)
	test.That(t, errors.Is(err, ErrMalformedGraph), test.ShouldBeTrue)
}

func TestAddMobileBaseFloating(t *testing.T) {
	m := testArmModel(t)
	test.That(t, m.AddMobileBase(MobilityFloating), test.ShouldBeNil)

	baseJointIdx, err := m.JointIndex(mobileBaseJointName)
	test.That(t, err, test.ShouldBeNil)
	baseJoint, err := m.Joint(baseJointIdx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, baseJoint.DOF(), test.ShouldEqual, 6)
}

func TestAddMobileBaseStatic(t *testing.T) {
	m := testArmModel(t)
	test.That(t, m.AddMobileBase(MobilityStatic), test.ShouldBeNil)
	test.That(t, m.NumLinks(), test.ShouldEqual, 4)
	test.That(t, m.NumJoints(), test.ShouldEqual, 3)
}
