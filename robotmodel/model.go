package robotmodel

import (
	"github.com/golang/geo/r3"
)

// MobilityMode selects how a synthetic mobile base is inserted ahead of the
// kinematic root.
type MobilityMode int

const (
	// MobilityStatic leaves the graph unchanged.
	MobilityStatic MobilityMode = iota
	// MobilityPlanar inserts a base joint translating in x/y and rotating
	// about z.
	MobilityPlanar
	// MobilityFloating inserts a full 6-DOF base joint.
	MobilityFloating
)

const (
	mobileBaseLinkName  = "mobile_base"
	mobileBaseJointName = "mobile_base_joint"
)

// Model is the kinematic graph: link and joint arenas plus derived traversal
// structures. All relationships are dense integer indices.
type Model struct {
	name   string
	links  []Link
	joints []Joint

	worldLinkIdx     int
	robotBaseLinkIdx int

	layers            [][]int // layers[k] = link indices at BFS depth k
	layerOf           []int   // per link, its layer depth; -1 when not present
	maxDepth          int
	precedingActuated []int     // per link, nearest ancestor joint with DOF > 0; -1 when none
	linkChains        [][][]int // [from][to] ordered path of link indices; nil when unreachable

	linkIdxByName  map[string]int
	jointIdxByName map[string]int
}

// NewModel builds a kinematic graph from raw description records. Joint
// parent/child references are resolved by link name; an unknown name, a link
// with multiple parents, or anything other than exactly one root is a
// malformed-graph error.
func NewModel(name string, linkCfgs []LinkConfig, jointCfgs []JointConfig) (*Model, error) {
	m := &Model{
		name:           name,
		links:          make([]Link, 0, len(linkCfgs)),
		joints:         make([]Joint, 0, len(jointCfgs)),
		linkIdxByName:  make(map[string]int, len(linkCfgs)),
		jointIdxByName: make(map[string]int, len(jointCfgs)),
	}

	for i, cfg := range linkCfgs {
		if cfg.Name == "" {
			return nil, NewMalformedGraphError("link %d has no name", i)
		}
		if _, ok := m.linkIdxByName[cfg.Name]; ok {
			return nil, NewMalformedGraphError("duplicate link name %q", cfg.Name)
		}
		m.linkIdxByName[cfg.Name] = i
		m.links = append(m.links, Link{name: cfg.Name, index: i, present: true, parentLink: -1, parentJoint: -1})
	}

	for i, cfg := range jointCfgs {
		if _, ok := m.jointIdxByName[cfg.Name]; ok {
			return nil, NewMalformedGraphError("duplicate joint name %q", cfg.Name)
		}
		parent, ok := m.linkIdxByName[cfg.Parent]
		if !ok {
			return nil, NewMalformedGraphError("joint %q references unknown parent link %q", cfg.Name, cfg.Parent)
		}
		child, ok := m.linkIdxByName[cfg.Child]
		if !ok {
			return nil, NewMalformedGraphError("joint %q references unknown child link %q", cfg.Name, cfg.Child)
		}
		if m.links[child].parentLink != -1 {
			return nil, NewMalformedGraphError("link %q has multiple parent joints", cfg.Child)
		}
		m.jointIdxByName[cfg.Name] = i
		m.joints = append(m.joints, Joint{
			name:       cfg.Name,
			index:      i,
			present:    true,
			typ:        cfg.Type,
			axes:       axesForJoint(i, cfg),
			parentLink: parent,
			childLink:  child,
			originXYZ:  cfg.OriginXYZ,
			originRPY:  cfg.OriginRPY,
		})
		m.links[child].parentLink = parent
		m.links[child].parentJoint = i
		m.links[parent].children = append(m.links[parent].children, child)
	}

	root := -1
	for i := range m.links {
		if m.links[i].parentLink != -1 {
			continue
		}
		if root != -1 {
			return nil, NewMalformedGraphError("multiple root links: %q and %q", m.links[root].name, m.links[i].name)
		}
		root = i
	}
	if root == -1 {
		return nil, NewMalformedGraphError("no root link")
	}
	m.worldLinkIdx = root
	m.robotBaseLinkIdx = root

	m.RecomputeKinematics()
	return m, nil
}

// Name returns the robot name the model was built for.
func (m *Model) Name() string { return m.name }

// NumLinks returns the size of the link arena, present or not.
func (m *Model) NumLinks() int { return len(m.links) }

// NumJoints returns the size of the joint arena, present or not.
func (m *Model) NumJoints() int { return len(m.joints) }

// WorldLinkIndex returns the index of the traversal root.
func (m *Model) WorldLinkIndex() int { return m.worldLinkIdx }

// RobotBaseLinkIndex returns the index of the robot's own base link; it
// differs from the world link only after a mobile base has been inserted.
func (m *Model) RobotBaseLinkIndex() int { return m.robotBaseLinkIdx }

// Link returns the link at the given arena index.
func (m *Model) Link(i int) (*Link, error) {
	if i < 0 || i >= len(m.links) {
		return nil, NewIndexOutOfBoundsError("link", i, len(m.links))
	}
	return &m.links[i], nil
}

// Joint returns the joint at the given arena index.
func (m *Model) Joint(i int) (*Joint, error) {
	if i < 0 || i >= len(m.joints) {
		return nil, NewIndexOutOfBoundsError("joint", i, len(m.joints))
	}
	return &m.joints[i], nil
}

// LinkIndex resolves a link name to its arena index.
func (m *Model) LinkIndex(name string) (int, error) {
	i, ok := m.linkIdxByName[name]
	if !ok {
		return 0, NewMalformedGraphError("unknown link name %q", name)
	}
	return i, nil
}

// JointIndex resolves a joint name to its arena index.
func (m *Model) JointIndex(name string) (int, error) {
	i, ok := m.jointIdxByName[name]
	if !ok {
		return 0, NewMalformedGraphError("unknown joint name %q", name)
	}
	return i, nil
}

// TraversalLayers returns the BFS partition of present links; layer 0 holds
// only the root.
func (m *Model) TraversalLayers() [][]int {
	out := make([][]int, len(m.layers))
	for i, layer := range m.layers {
		out[i] = append([]int(nil), layer...)
	}
	return out
}

// TraversalLayer returns the BFS depth of the given link, or -1 if the link
// is not present in the active tree.
func (m *Model) TraversalLayer(linkIdx int) (int, error) {
	if linkIdx < 0 || linkIdx >= len(m.links) {
		return 0, NewIndexOutOfBoundsError("link", linkIdx, len(m.links))
	}
	return m.layerOf[linkIdx], nil
}

// MaxDepth returns the deepest BFS layer index.
func (m *Model) MaxDepth() int { return m.maxDepth }

// LinkChain returns the ordered path of link indices from one link down to
// another, inclusive of both ends. It is nil when the destination is not in
// the source's subtree; the trivial chain from a link to itself is the
// one-element path.
func (m *Model) LinkChain(from, to int) ([]int, error) {
	if from < 0 || from >= len(m.links) {
		return nil, NewIndexOutOfBoundsError("link", from, len(m.links))
	}
	if to < 0 || to >= len(m.links) {
		return nil, NewIndexOutOfBoundsError("link", to, len(m.links))
	}
	chain := m.linkChains[from][to]
	if chain == nil {
		return nil, nil
	}
	return append([]int(nil), chain...), nil
}

// PrecedingActuatedJoint returns the nearest ancestor joint of the link with
// at least one free axis, or -1 when no such joint exists.
func (m *Model) PrecedingActuatedJoint(linkIdx int) (int, error) {
	if linkIdx < 0 || linkIdx >= len(m.links) {
		return 0, NewIndexOutOfBoundsError("link", linkIdx, len(m.links))
	}
	return m.precedingActuated[linkIdx], nil
}

// LinksWithPrecedingActuatedJoint returns every link whose nearest actuated
// ancestor joint is the given joint: the set of links rigidly carried by it.
func (m *Model) LinksWithPrecedingActuatedJoint(jointIdx int) ([]int, error) {
	if jointIdx < 0 || jointIdx >= len(m.joints) {
		return nil, NewIndexOutOfBoundsError("joint", jointIdx, len(m.joints))
	}
	var out []int
	for i := range m.links {
		if m.precedingActuated[i] == jointIdx {
			out = append(out, i)
		}
	}
	return out, nil
}

// DownstreamLinks returns every present link in the subtree rooted at the
// given link, excluding the link itself, in BFS order.
func (m *Model) DownstreamLinks(linkIdx int) ([]int, error) {
	if linkIdx < 0 || linkIdx >= len(m.links) {
		return nil, NewIndexOutOfBoundsError("link", linkIdx, len(m.links))
	}
	var out []int
	frontier := append([]int(nil), m.links[linkIdx].children...)
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		if !m.links[next].present {
			continue
		}
		out = append(out, next)
		frontier = append(frontier, m.links[next].children...)
	}
	return out, nil
}

// DeepestLink returns, among the given links, the one at the highest BFS
// depth. Ties resolve to the first given.
func (m *Model) DeepestLink(linkIdxs []int) (int, error) {
	deepest, depth := -1, -1
	for _, i := range linkIdxs {
		if i < 0 || i >= len(m.links) {
			return 0, NewIndexOutOfBoundsError("link", i, len(m.links))
		}
		if d := m.layerOf[i]; d > depth {
			deepest, depth = i, d
		}
	}
	if deepest == -1 {
		return 0, NewMalformedGraphError("no present link among %v", linkIdxs)
	}
	return deepest, nil
}

// SetLinkPresent enables or disables a link. Disabling cascades to every
// joint whose parent is this link; deeper descendants drop out of the active
// tree through layer recomputation. The world link cannot be disabled.
// Callers must invoke RecomputeKinematics afterwards (typically once after a
// batch of presence edits).
func (m *Model) SetLinkPresent(linkIdx int, present bool) error {
	if linkIdx < 0 || linkIdx >= len(m.links) {
		return NewIndexOutOfBoundsError("link", linkIdx, len(m.links))
	}
	if linkIdx == m.worldLinkIdx && !present {
		return NewMalformedGraphError("cannot disable the root link %q", m.links[linkIdx].name)
	}
	m.links[linkIdx].present = present
	for j := range m.joints {
		if m.joints[j].parentLink == linkIdx {
			m.joints[j].present = present
		}
	}
	return nil
}

// SetJointPresent enables or disables a single joint.
func (m *Model) SetJointPresent(jointIdx int, present bool) error {
	if jointIdx < 0 || jointIdx >= len(m.joints) {
		return NewIndexOutOfBoundsError("joint", jointIdx, len(m.joints))
	}
	m.joints[jointIdx].present = present
	return nil
}

// SetFixedJointAxis pins one axis of a joint to a fixed value, or frees it
// again when value is nil.
func (m *Model) SetFixedJointAxis(jointIdx, subIdx int, value *float64) error {
	if jointIdx < 0 || jointIdx >= len(m.joints) {
		return NewIndexOutOfBoundsError("joint", jointIdx, len(m.joints))
	}
	axes := m.joints[jointIdx].axes
	if subIdx < 0 || subIdx >= len(axes) {
		return NewIndexOutOfBoundsError("joint axis", subIdx, len(axes))
	}
	if value == nil {
		axes[subIdx].fixed = false
		axes[subIdx].fixedValue = 0
		return nil
	}
	axes[subIdx].fixed = true
	axes[subIdx].fixedValue = *value
	return nil
}

// SetFixedJoint pins every axis of a joint to the same fixed value, or frees
// them all when value is nil.
func (m *Model) SetFixedJoint(jointIdx int, value *float64) error {
	if jointIdx < 0 || jointIdx >= len(m.joints) {
		return NewIndexOutOfBoundsError("joint", jointIdx, len(m.joints))
	}
	for subIdx := range m.joints[jointIdx].axes {
		if err := m.SetFixedJointAxis(jointIdx, subIdx, value); err != nil {
			return err
		}
	}
	return nil
}

// AddMobileBase inserts a synthetic joint/link pair ahead of the current
// root so the whole robot can translate and rotate. The synthetic link
// becomes the new traversal root; RobotBaseLinkIndex keeps pointing at the
// robot's own base. MobilityStatic is a no-op.
func (m *Model) AddMobileBase(mode MobilityMode) error {
	if mode == MobilityStatic {
		return nil
	}
	if _, ok := m.linkIdxByName[mobileBaseLinkName]; ok {
		return NewMalformedGraphError("mobile base already present")
	}

	baseLinkIdx := len(m.links)
	baseJointIdx := len(m.joints)
	oldRoot := m.worldLinkIdx

	m.links = append(m.links, Link{
		name:        mobileBaseLinkName,
		index:       baseLinkIdx,
		present:     true,
		parentLink:  -1,
		parentJoint: -1,
		children:    []int{oldRoot},
	})
	m.linkIdxByName[mobileBaseLinkName] = baseLinkIdx

	typ := JointPlanar
	if mode == MobilityFloating {
		typ = JointFloating
	}
	m.joints = append(m.joints, Joint{
		name:       mobileBaseJointName,
		index:      baseJointIdx,
		present:    true,
		typ:        typ,
		axes:       axesForJoint(baseJointIdx, JointConfig{Type: typ, Axis: r3.Vector{Z: 1}}),
		parentLink: baseLinkIdx,
		childLink:  oldRoot,
	})
	m.jointIdxByName[mobileBaseJointName] = baseJointIdx

	m.links[oldRoot].parentLink = baseLinkIdx
	m.links[oldRoot].parentJoint = baseJointIdx
	m.worldLinkIdx = baseLinkIdx
	m.robotBaseLinkIdx = oldRoot

	m.RecomputeKinematics()
	return nil
}

// RecomputeKinematics rebuilds the derived traversal structures: BFS layers
// over present links, link chains, and preceding-actuated-joint indices.
// Must be called after presence mutations; NewModel and AddMobileBase call
// it themselves.
func (m *Model) RecomputeKinematics() {
	m.computeLayers()
	m.computeLinkChains()
	m.computePrecedingActuated()
}

func (m *Model) computeLayers() {
	m.layerOf = make([]int, len(m.links))
	for i := range m.layerOf {
		m.layerOf[i] = -1
	}
	m.layers = nil
	m.maxDepth = 0

	current := []int{m.worldLinkIdx}
	m.layerOf[m.worldLinkIdx] = 0
	for depth := 0; len(current) > 0; depth++ {
		m.layers = append(m.layers, current)
		m.maxDepth = depth
		var next []int
		for _, li := range current {
			for _, ci := range m.links[li].children {
				child := &m.links[ci]
				if !child.present {
					continue
				}
				if child.parentJoint >= 0 && !m.joints[child.parentJoint].present {
					continue
				}
				m.layerOf[ci] = depth + 1
				next = append(next, ci)
			}
		}
		current = next
	}
}

func (m *Model) computeLinkChains() {
	n := len(m.links)
	m.linkChains = make([][][]int, n)
	for from := 0; from < n; from++ {
		m.linkChains[from] = make([][]int, n)
		for to := 0; to < n; to++ {
			m.linkChains[from][to] = m.chainBetween(from, to)
		}
	}
}

// chainBetween walks preceding-link pointers upward from to until from is
// reached, then reverses. Non-ancestors are unreachable.
func (m *Model) chainBetween(from, to int) []int {
	var reversed []int
	for cur := to; ; cur = m.links[cur].parentLink {
		reversed = append(reversed, cur)
		if cur == from {
			break
		}
		if m.links[cur].parentLink == -1 {
			return nil
		}
	}
	chain := make([]int, len(reversed))
	for i, v := range reversed {
		chain[len(reversed)-1-i] = v
	}
	return chain
}

func (m *Model) computePrecedingActuated() {
	m.precedingActuated = make([]int, len(m.links))
	for i := range m.links {
		m.precedingActuated[i] = -1
		for cur := i; ; {
			ji := m.links[cur].parentJoint
			if ji == -1 {
				break
			}
			if m.joints[ji].present && m.joints[ji].DOF() > 0 {
				m.precedingActuated[i] = ji
				break
			}
			cur = m.links[cur].parentLink
		}
	}
}
