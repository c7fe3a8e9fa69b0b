package robotmodel

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Unbounded axes sample within this range rather than the full float range.
const defaultSampleLimit = 999.0

// StateType tags a state vector's view: free axes only, or every axis.
type StateType int

const (
	// StateTypeDOF covers only the free (non-fixed) axes.
	StateTypeDOF StateType = iota
	// StateTypeFull covers every axis of every present joint.
	StateTypeFull
)

func (t StateType) String() string {
	if t == StateTypeDOF {
		return "DOF"
	}
	return "Full"
}

// StateModel is the ordered mapping from joint axes to state-vector slots,
// snapshotted from a Model. Rebuild it after presence or fixed-axis
// mutations.
type StateModel struct {
	orderedAxes    []JointAxis // every axis of every present joint, joint order
	orderedDOFAxes []JointAxis // the free subset, in the same order
	dofToFull      []int       // per DOF slot, its Full slot

	jointToFullSlots map[int][]int
	jointToDOFSlots  map[int][]int
}

// NewStateModel derives the axis ordering and slot mappings from the model's
// present joints.
func NewStateModel(m *Model) *StateModel {
	sm := &StateModel{
		jointToFullSlots: make(map[int][]int),
		jointToDOFSlots:  make(map[int][]int),
	}
	for ji := 0; ji < m.NumJoints(); ji++ {
		joint := &m.joints[ji]
		if !joint.present {
			continue
		}
		for ai := range joint.axes {
			axis := joint.axes[ai]
			fullSlot := len(sm.orderedAxes)
			sm.orderedAxes = append(sm.orderedAxes, axis)
			sm.jointToFullSlots[ji] = append(sm.jointToFullSlots[ji], fullSlot)
			if axis.fixed {
				continue
			}
			dofSlot := len(sm.orderedDOFAxes)
			sm.orderedDOFAxes = append(sm.orderedDOFAxes, axis)
			sm.dofToFull = append(sm.dofToFull, fullSlot)
			sm.jointToDOFSlots[ji] = append(sm.jointToDOFSlots[ji], dofSlot)
		}
	}
	return sm
}

// NumDOF returns the length of a DOF-view state vector.
func (sm *StateModel) NumDOF() int { return len(sm.orderedDOFAxes) }

// NumAxes returns the length of a Full-view state vector.
func (sm *StateModel) NumAxes() int { return len(sm.orderedAxes) }

// Axis returns the axis backing the given Full-view slot.
func (sm *StateModel) Axis(fullSlot int) (*JointAxis, error) {
	if fullSlot < 0 || fullSlot >= len(sm.orderedAxes) {
		return nil, NewIndexOutOfBoundsError("axis slot", fullSlot, len(sm.orderedAxes))
	}
	return &sm.orderedAxes[fullSlot], nil
}

// JointFullSlots returns the Full-view slots owned by a joint.
func (sm *StateModel) JointFullSlots(jointIdx int) []int {
	return append([]int(nil), sm.jointToFullSlots[jointIdx]...)
}

// JointDOFSlots returns the DOF-view slots owned by a joint.
func (sm *StateModel) JointDOFSlots(jointIdx int) []int {
	return append([]int(nil), sm.jointToDOFSlots[jointIdx]...)
}

// State is a joint-value vector tagged with its view. Arithmetic is legal
// only between states of the same tag and length.
type State struct {
	values []float64
	typ    StateType
}

// NewState validates the vector length against the state model for the given
// view and wraps it. The slice is copied.
func NewState(sm *StateModel, values []float64, typ StateType) (*State, error) {
	expected := sm.NumDOF()
	if typ == StateTypeFull {
		expected = sm.NumAxes()
	}
	if len(values) != expected {
		return nil, NewStateSizeMismatchError(typ.String(), expected, len(values))
	}
	return &State{values: append([]float64(nil), values...), typ: typ}, nil
}

// NewStateAutoType infers the view from the vector length, trying Full
// before DOF. This is the only place a failed size match is retried.
func NewStateAutoType(sm *StateModel, values []float64) (*State, error) {
	if s, err := NewState(sm, values, StateTypeFull); err == nil {
		return s, nil
	}
	s, err := NewState(sm, values, StateTypeDOF)
	if err != nil {
		return nil, NewStateSizeMismatchError("Full or DOF", sm.NumAxes(), len(values))
	}
	return s, nil
}

// Type returns the state's view tag.
func (s *State) Type() StateType { return s.typ }

// Len returns the vector length.
func (s *State) Len() int { return len(s.values) }

// Values returns a copy of the underlying vector.
func (s *State) Values() []float64 {
	return append([]float64(nil), s.values...)
}

// Value returns the scalar at the given slot.
func (s *State) Value(i int) (float64, error) {
	if i < 0 || i >= len(s.values) {
		return 0, NewIndexOutOfBoundsError("state slot", i, len(s.values))
	}
	return s.values[i], nil
}

// Add returns the element-wise sum of two states of the same tag and length.
func (s *State) Add(other *State) (*State, error) {
	if s.typ != other.typ || len(s.values) != len(other.values) {
		return nil, NewStateSizeMismatchError(s.typ.String(), len(s.values), len(other.values))
	}
	out := append([]float64(nil), s.values...)
	floats.Add(out, other.values)
	return &State{values: out, typ: s.typ}, nil
}

// Scale returns the state multiplied element-wise by a scalar.
func (s *State) Scale(f float64) *State {
	out := append([]float64(nil), s.values...)
	floats.Scale(f, out)
	return &State{values: out, typ: s.typ}
}

// ToFull expands a state to the Full view, filling fixed axes with their
// pinned values. Full states pass through as a copy.
func (sm *StateModel) ToFull(s *State) (*State, error) {
	if s.typ == StateTypeFull {
		if len(s.values) != sm.NumAxes() {
			return nil, NewStateSizeMismatchError("Full", sm.NumAxes(), len(s.values))
		}
		return &State{values: s.Values(), typ: StateTypeFull}, nil
	}
	if len(s.values) != sm.NumDOF() {
		return nil, NewStateSizeMismatchError("DOF", sm.NumDOF(), len(s.values))
	}
	full := make([]float64, sm.NumAxes())
	for i := range sm.orderedAxes {
		if sm.orderedAxes[i].fixed {
			full[i] = sm.orderedAxes[i].fixedValue
		}
	}
	for dofSlot, fullSlot := range sm.dofToFull {
		full[fullSlot] = s.values[dofSlot]
	}
	return &State{values: full, typ: StateTypeFull}, nil
}

// ToDOF gathers the free-axis values of a state into the DOF view. The
// round-trip through ToFull is exact.
func (sm *StateModel) ToDOF(s *State) (*State, error) {
	if s.typ == StateTypeDOF {
		if len(s.values) != sm.NumDOF() {
			return nil, NewStateSizeMismatchError("DOF", sm.NumDOF(), len(s.values))
		}
		return &State{values: s.Values(), typ: StateTypeDOF}, nil
	}
	if len(s.values) != sm.NumAxes() {
		return nil, NewStateSizeMismatchError("Full", sm.NumAxes(), len(s.values))
	}
	dof := make([]float64, sm.NumDOF())
	for dofSlot, fullSlot := range sm.dofToFull {
		dof[dofSlot] = s.values[fullSlot]
	}
	return &State{values: dof, typ: StateTypeDOF}, nil
}

// L2Distance returns the Euclidean distance between two states of the same
// tag and length.
func (s *State) L2Distance(other *State) (float64, error) {
	if s.typ != other.typ || len(s.values) != len(other.values) {
		return 0, NewStateSizeMismatchError(s.typ.String(), len(s.values), len(other.values))
	}
	diff := make([]float64, len(s.values))
	floats.SubTo(diff, s.values, other.values)
	return floats.Norm(diff, 2), nil
}

// Sampler produces randomized Full states respecting axis bounds.
type Sampler interface {
	SampleFull() (*State, error)
}

// RandomSampler draws uniform samples within each free axis's limits; fixed
// axes always carry their pinned value. Infinite bounds are clamped to
// ±defaultSampleLimit.
type RandomSampler struct {
	sm  *StateModel
	rnd *rand.Rand
}

// NewRandomSampler returns a seeded uniform sampler over the state model.
func NewRandomSampler(sm *StateModel, seed int64) *RandomSampler {
	return &RandomSampler{sm: sm, rnd: rand.New(rand.NewSource(seed))}
}

// SampleFull draws one Full state.
func (rs *RandomSampler) SampleFull() (*State, error) {
	values := make([]float64, rs.sm.NumAxes())
	for i := range rs.sm.orderedAxes {
		axis := &rs.sm.orderedAxes[i]
		if axis.fixed {
			values[i] = axis.fixedValue
			continue
		}
		min, max := axis.min, axis.max
		if math.IsInf(min, -1) {
			min = -defaultSampleLimit
		}
		if math.IsInf(max, 1) {
			max = defaultSampleLimit
		}
		values[i] = min + rs.rnd.Float64()*(max-min)
	}
	return NewState(rs.sm, values, StateTypeFull)
}
