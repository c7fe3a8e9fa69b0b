package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

const defaultEpsilon = 1e-8

// PoseType tags the underlying representation of a Pose.
type PoseType int

const (
	// DualQuaternionPoseType stores the pose as a unit dual quaternion.
	DualQuaternionPoseType PoseType = iota
	// HomogeneousMatrixPoseType stores the pose as a 4x4 homogeneous matrix.
	HomogeneousMatrixPoseType
	// RotationMatrixAndTranslationPoseType stores a rotation matrix plus a
	// separate translation vector.
	RotationMatrixAndTranslationPoseType
	// UnitQuaternionAndTranslationPoseType stores a unit quaternion plus a
	// separate translation vector.
	UnitQuaternionAndTranslationPoseType
)

func (t PoseType) String() string {
	switch t {
	case DualQuaternionPoseType:
		return "DualQuaternion"
	case HomogeneousMatrixPoseType:
		return "HomogeneousMatrix"
	case RotationMatrixAndTranslationPoseType:
		return "RotationMatrixAndTranslation"
	case UnitQuaternionAndTranslationPoseType:
		return "UnitQuaternionAndTranslation"
	default:
		return "Unknown"
	}
}

// Pose is an element of SE(3) under one of four representations. The zero
// value is not valid; use one of the constructors.
type Pose struct {
	typ PoseType

	// exactly one of the following groups is populated, per typ
	dq  dualquat.Number
	mat mgl64.Mat4
	rot Rotation
	t   r3.Vector
}

// NewZeroPose returns the identity pose under the given representation.
func NewZeroPose(typ PoseType) Pose {
	switch typ {
	case DualQuaternionPoseType:
		return Pose{typ: typ, dq: identityDualQuat()}
	case HomogeneousMatrixPoseType:
		return Pose{typ: typ, mat: mgl64.Ident4()}
	case RotationMatrixAndTranslationPoseType:
		return Pose{typ: typ, rot: NewZeroRotation(RotationMatrixType)}
	case UnitQuaternionAndTranslationPoseType:
		return Pose{typ: typ, rot: NewZeroRotation(UnitQuaternionType)}
	default:
		return Pose{typ: DualQuaternionPoseType, dq: identityDualQuat()}
	}
}

// NewDualQuaternionPose constructs a dual quaternion pose, normalizing both
// parts by the real part's magnitude. A zero real part yields the identity
// rotation with the encoded translation dropped.
func NewDualQuaternionPose(dq dualquat.Number) Pose {
	n := quat.Abs(dq.Real)
	if n == 0 {
		return NewZeroPose(DualQuaternionPoseType)
	}
	return Pose{typ: DualQuaternionPoseType, dq: dualquat.Number{
		Real: quat.Scale(1/n, dq.Real),
		Dual: quat.Scale(1/n, dq.Dual),
	}}
}

// NewHomogeneousMatrixPose constructs a pose from a 4x4 homogeneous matrix.
// Only the rotation block and translation column are read.
func NewHomogeneousMatrixPose(m mgl64.Mat4) Pose {
	return Pose{typ: HomogeneousMatrixPoseType, mat: rigidMat4(m.Mat3(), mat4Translation(m))}
}

// NewRotationAndTranslationPose constructs a pose from a rotation and a
// translation. The pose type follows the rotation's tag: a matrix rotation
// yields RotationMatrixAndTranslation, a quaternion rotation yields
// UnitQuaternionAndTranslation.
func NewRotationAndTranslationPose(rot Rotation, t r3.Vector) Pose {
	typ := RotationMatrixAndTranslationPoseType
	if rot.Type() == UnitQuaternionType {
		typ = UnitQuaternionAndTranslationPoseType
	}
	return Pose{typ: typ, rot: rot, t: t}
}

// NewPoseFromEulerAngles constructs a pose of the given type from extrinsic
// x-y-z Euler angles and a translation.
func NewPoseFromEulerAngles(typ PoseType, rx, ry, rz float64, t r3.Vector) Pose {
	return newPoseFromRotation(typ, NewRotationFromEulerAngles(rotationTagFor(typ), rx, ry, rz), t)
}

// NewPoseFromAxisAngle constructs a pose of the given type from an axis-angle
// rotation and a translation.
func NewPoseFromAxisAngle(typ PoseType, axis r3.Vector, theta float64, t r3.Vector) Pose {
	return newPoseFromRotation(typ, NewRotationFromAxisAngle(rotationTagFor(typ), axis, theta), t)
}

// NewPoseFromPoint constructs a pure translation of the given type.
func NewPoseFromPoint(typ PoseType, t r3.Vector) Pose {
	return newPoseFromRotation(typ, NewZeroRotation(rotationTagFor(typ)), t)
}

// NewPoseFromExp constructs a pose of the given type from a six-vector
// [w v]: w is the rotation log (axis scaled by angle) and v the translation.
func NewPoseFromExp(typ PoseType, exp [6]float64) Pose {
	rot := NewRotationFromExp(rotationTagFor(typ), r3.Vector{X: exp[0], Y: exp[1], Z: exp[2]})
	return newPoseFromRotation(typ, rot, r3.Vector{X: exp[3], Y: exp[4], Z: exp[5]})
}

func rotationTagFor(typ PoseType) RotationType {
	if typ == RotationMatrixAndTranslationPoseType {
		return RotationMatrixType
	}
	return UnitQuaternionType
}

func newPoseFromRotation(typ PoseType, rot Rotation, t r3.Vector) Pose {
	switch typ {
	case DualQuaternionPoseType:
		return Pose{typ: typ, dq: newDualQuat(rot.Quaternion(), t)}
	case HomogeneousMatrixPoseType:
		return Pose{typ: typ, mat: rigidMat4(rot.Matrix(), t)}
	case RotationMatrixAndTranslationPoseType:
		return Pose{typ: typ, rot: rot.Convert(RotationMatrixType), t: t}
	case UnitQuaternionAndTranslationPoseType:
		return Pose{typ: typ, rot: rot.Convert(UnitQuaternionType), t: t}
	default:
		return Pose{typ: DualQuaternionPoseType, dq: newDualQuat(rot.Quaternion(), t)}
	}
}

// Type reports the representation tag of the pose.
func (p Pose) Type() PoseType { return p.typ }

// Rotation returns the rotation component. The returned rotation's tag
// follows the pose representation.
func (p Pose) Rotation() Rotation {
	switch p.typ {
	case DualQuaternionPoseType:
		return NewUnitQuaternion(p.dq.Real)
	case HomogeneousMatrixPoseType:
		return NewRotationMatrix(p.mat.Mat3())
	default:
		return p.rot
	}
}

// Translation returns the translation component.
func (p Pose) Translation() r3.Vector {
	switch p.typ {
	case DualQuaternionPoseType:
		return dqTranslation(p.dq)
	case HomogeneousMatrixPoseType:
		return mat4Translation(p.mat)
	default:
		return p.t
	}
}

// Convert returns an equivalent pose under the target representation.
func (p Pose) Convert(target PoseType) Pose {
	if p.typ == target {
		return p
	}
	return newPoseFromRotation(target, p.Rotation(), p.Translation())
}

// Inverse returns the pose q such that composing p with q is the identity.
func (p Pose) Inverse() Pose {
	switch p.typ {
	case DualQuaternionPoseType:
		return Pose{typ: p.typ, dq: dqInverse(p.dq)}
	case HomogeneousMatrixPoseType:
		rInv := p.mat.Mat3().Transpose()
		t := mat4Translation(p.mat)
		ti := rInv.Mul3x1(mgl64.Vec3{t.X, t.Y, t.Z}).Mul(-1)
		return Pose{typ: p.typ, mat: rigidMat4(rInv, r3.Vector{X: ti.X(), Y: ti.Y(), Z: ti.Z()})}
	default:
		rInv := p.rot.Inverse()
		return Pose{typ: p.typ, rot: rInv, t: rInv.Apply(p.t).Mul(-1)}
	}
}

// Compose returns the product p * other under p's representation. If the
// representations differ and convert is false, an
// ErrIncompatibleRepresentation error is returned; with convert set, other is
// converted first.
func (p Pose) Compose(other Pose, convert bool) (Pose, error) {
	if p.typ != other.typ {
		if !convert {
			return Pose{}, NewIncompatibleRepresentationError("compose", p.typ.String(), other.typ.String())
		}
		other = other.Convert(p.typ)
	}
	switch p.typ {
	case DualQuaternionPoseType:
		return Pose{typ: p.typ, dq: dualquat.Mul(p.dq, other.dq)}, nil
	case HomogeneousMatrixPoseType:
		return Pose{typ: p.typ, mat: p.mat.Mul4(other.mat)}, nil
	default:
		rot, err := p.rot.Compose(other.rot, false)
		if err != nil {
			return Pose{}, err
		}
		return Pose{typ: p.typ, rot: rot, t: p.rot.Apply(other.t).Add(p.t)}, nil
	}
}

// Displacement returns Inverse(p) * other, the transform taking p to other.
func (p Pose) Displacement(other Pose, convert bool) (Pose, error) {
	if p.typ != other.typ && !convert {
		return Pose{}, NewIncompatibleRepresentationError("displacement", p.typ.String(), other.typ.String())
	}
	return p.Inverse().Compose(other, true)
}

// Distance reports a scalar disparity between two poses. Dual quaternion
// poses use the L2 magnitude of the displacement log; the other
// representations use the cheaper translation-norm-plus-angle approximation.
func (p Pose) Distance(other Pose, convert bool) (float64, error) {
	disp, err := p.Displacement(other, convert)
	if err != nil {
		return 0, err
	}
	switch p.typ {
	case DualQuaternionPoseType:
		w := disp.Rotation().Log()
		t := disp.Translation()
		return math.Sqrt(w.Norm2() + t.Norm2()), nil
	default:
		return disp.Translation().Norm() + math.Abs(disp.Rotation().Angle()), nil
	}
}

// Log returns the six-vector [w v] with w the rotation log and v the
// translation. NewPoseFromExp inverts it.
func (p Pose) Log() [6]float64 {
	w := p.Rotation().Log()
	t := p.Translation()
	return [6]float64{w.X, w.Y, w.Z, t.X, t.Y, t.Z}
}

// TransformPoint applies the pose to a point.
func (p Pose) TransformPoint(pt r3.Vector) r3.Vector {
	switch p.typ {
	case DualQuaternionPoseType:
		return dqTransformPoint(p.dq, pt)
	case HomogeneousMatrixPoseType:
		v := p.mat.Mul4x1(mgl64.Vec4{pt.X, pt.Y, pt.Z, 1})
		return r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
	default:
		return p.rot.Apply(pt).Add(p.t)
	}
}

// InverseTransformPoint maps a point from the pose's frame back to the
// reference frame, without constructing the full inverse.
func (p Pose) InverseTransformPoint(pt r3.Vector) r3.Vector {
	rel := pt.Sub(p.Translation())
	return p.Rotation().Inverse().Apply(rel)
}

// ApproxEqual reports whether two poses represent the same rigid transform
// to within defaultEpsilon, regardless of representation.
func (p Pose) ApproxEqual(other Pose) bool {
	if !p.Rotation().ApproxEqual(other.Rotation()) {
		return false
	}
	return p.Translation().Sub(other.Translation()).Norm() < defaultEpsilon
}

func rigidMat4(r mgl64.Mat3, t r3.Vector) mgl64.Mat4 {
	m := r.Mat4()
	m.SetCol(3, mgl64.Vec4{t.X, t.Y, t.Z, 1})
	return m
}

func mat4Translation(m mgl64.Mat4) r3.Vector {
	c := m.Col(3)
	return r3.Vector{X: c.X(), Y: c.Y(), Z: c.Z()}
}
