// Package spatialmath defines rigid 3D transforms and rotations under several
// interchangeable representations, with exact composition, inversion,
// conversion and distance semantics.
package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// If the imaginary norm of a quaternion is below this, we treat the rotation
// as identity for axis extraction.
const angleEpsilon = 1e-10

// RotationType tags the underlying representation of a Rotation.
type RotationType int

// The supported rotation representations.
const (
	RotationMatrixType RotationType = iota
	UnitQuaternionType
)

func (t RotationType) String() string {
	switch t {
	case RotationMatrixType:
		return "rotation_matrix"
	case UnitQuaternionType:
		return "unit_quaternion"
	default:
		return "unknown"
	}
}

// Rotation is a tagged union over the supported rotation representations.
// Exactly one of the data fields is meaningful, selected by the tag; every
// operation switches exhaustively on it. Operations between two Rotations
// require matching tags unless conversion is explicitly permitted.
type Rotation struct {
	typ RotationType
	mat mgl64.Mat3
	q   quat.Number
}

// NewZeroRotation returns the identity rotation in the given representation.
func NewZeroRotation(typ RotationType) Rotation {
	switch typ {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: mgl64.Ident3()}
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: quat.Number{Real: 1}}
	default:
		return Rotation{typ: UnitQuaternionType, q: quat.Number{Real: 1}}
	}
}

// NewRotationMatrix wraps a 3x3 matrix, which is assumed orthonormal.
func NewRotationMatrix(m mgl64.Mat3) Rotation {
	return Rotation{typ: RotationMatrixType, mat: m}
}

// NewUnitQuaternion wraps a quaternion, normalizing it to unit length.
// An all-zero quaternion yields identity rather than NaNs.
func NewUnitQuaternion(q quat.Number) Rotation {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return NewZeroRotation(UnitQuaternionType)
	}
	return Rotation{typ: UnitQuaternionType, q: quat.Scale(1/n, q)}
}

// NewRotationFromEulerAngles builds a rotation from extrinsic x-y-z Euler
// angles, composing as R = Rz(rz) * Ry(ry) * Rx(rx).
func NewRotationFromEulerAngles(typ RotationType, rx, ry, rz float64) Rotation {
	switch typ {
	case RotationMatrixType:
		m := mgl64.Rotate3DZ(rz).Mul3(mgl64.Rotate3DY(ry)).Mul3(mgl64.Rotate3DX(rx))
		return NewRotationMatrix(m)
	case UnitQuaternionType:
		qz := quatFromAxisAngle(r3.Vector{Z: 1}, rz)
		qy := quatFromAxisAngle(r3.Vector{Y: 1}, ry)
		qx := quatFromAxisAngle(r3.Vector{X: 1}, rx)
		return Rotation{typ: UnitQuaternionType, q: quat.Mul(quat.Mul(qz, qy), qx)}
	default:
		return NewZeroRotation(typ)
	}
}

// NewRotationFromAxisAngle builds a rotation of theta radians about the given
// axis, which need not be normalized.
func NewRotationFromAxisAngle(typ RotationType, axis r3.Vector, theta float64) Rotation {
	q := quatFromAxisAngle(axis, theta)
	switch typ {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: quatToMat3(q)}
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: q}
	default:
		return NewZeroRotation(typ)
	}
}

// NewRotationFromExp exponentiates a log-map vector (rotation axis scaled by
// the rotation angle) into a rotation of the given representation.
func NewRotationFromExp(typ RotationType, logVec r3.Vector) Rotation {
	// exp([0, w/2]) is the unit quaternion encoding a rotation of |w| about w.
	q := quat.Exp(quat.Number{Imag: logVec.X / 2, Jmag: logVec.Y / 2, Kmag: logVec.Z / 2})
	switch typ {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: quatToMat3(q)}
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: q}
	default:
		return NewZeroRotation(typ)
	}
}

// Type returns the representation tag.
func (r Rotation) Type() RotationType {
	return r.typ
}

// Quaternion returns the rotation as a unit quaternion number, converting
// exactly if the underlying representation is a matrix.
func (r Rotation) Quaternion() quat.Number {
	switch r.typ {
	case RotationMatrixType:
		return mat3ToQuat(r.mat)
	case UnitQuaternionType:
		return r.q
	default:
		return quat.Number{Real: 1}
	}
}

// Matrix returns the rotation as a 3x3 matrix, converting exactly if the
// underlying representation is a quaternion.
func (r Rotation) Matrix() mgl64.Mat3 {
	switch r.typ {
	case RotationMatrixType:
		return r.mat
	case UnitQuaternionType:
		return quatToMat3(r.q)
	default:
		return mgl64.Ident3()
	}
}

// Convert returns the same rotation under the target representation. The
// conversion is exact up to floating point rounding.
func (r Rotation) Convert(target RotationType) Rotation {
	if r.typ == target {
		return r
	}
	switch target {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: r.Matrix()}
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: r.Quaternion()}
	default:
		return r
	}
}

// Inverse returns the rotation R^-1 such that R * R^-1 = I.
func (r Rotation) Inverse() Rotation {
	switch r.typ {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: r.mat.Transpose()}
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: quat.Conj(r.q)}
	default:
		return r
	}
}

// Compose multiplies this rotation by other. If the tags differ and convert
// is false, NewIncompatibleRepresentationError is returned; if convert is
// true, other is converted exactly to this rotation's tag first.
func (r Rotation) Compose(other Rotation, convert bool) (Rotation, error) {
	if r.typ != other.typ {
		if !convert {
			return Rotation{}, NewIncompatibleRepresentationError("compose", r.typ.String(), other.typ.String())
		}
		other = other.Convert(r.typ)
	}
	switch r.typ {
	case RotationMatrixType:
		return Rotation{typ: RotationMatrixType, mat: r.mat.Mul3(other.mat)}, nil
	case UnitQuaternionType:
		return Rotation{typ: UnitQuaternionType, q: quat.Mul(r.q, other.q)}, nil
	default:
		return Rotation{}, NewIncompatibleRepresentationError("compose", r.typ.String(), other.typ.String())
	}
}

// Displacement returns the rotation d such that r * d = other.
func (r Rotation) Displacement(other Rotation, convert bool) (Rotation, error) {
	if r.typ != other.typ {
		if !convert {
			return Rotation{}, NewIncompatibleRepresentationError("displacement", r.typ.String(), other.typ.String())
		}
		other = other.Convert(r.typ)
	}
	return r.Inverse().Compose(other, false)
}

// Angle returns the magnitude in radians of the rotation.
func (r Rotation) Angle() float64 {
	q := r.Quaternion()
	return 2 * math.Atan2(imagNorm(q), math.Abs(q.Real))
}

// AngleBetween returns the angular distance in radians between two rotations.
func (r Rotation) AngleBetween(other Rotation, convert bool) (float64, error) {
	d, err := r.Displacement(other, convert)
	if err != nil {
		return 0, err
	}
	return d.Angle(), nil
}

// Log returns the log map of the rotation: the rotation axis scaled by the
// rotation angle. Inverse of NewRotationFromExp.
func (r Rotation) Log() r3.Vector {
	return quatLog(r.Quaternion())
}

// EulerAngles extracts extrinsic x-y-z Euler angles (rx, ry, rz) such that
// the rotation equals Rz(rz) * Ry(ry) * Rx(rx).
func (r Rotation) EulerAngles() (rx, ry, rz float64) {
	m := r.Matrix()
	sy := math.Sqrt(m.At(0, 0)*m.At(0, 0) + m.At(1, 0)*m.At(1, 0))
	if sy < 1e-8 {
		// gimbal lock: ry = ±π/2, rx and rz are coupled; report rz = 0
		return math.Atan2(-m.At(1, 2), m.At(1, 1)), math.Atan2(-m.At(2, 0), sy), 0
	}
	return math.Atan2(m.At(2, 1), m.At(2, 2)), math.Atan2(-m.At(2, 0), sy), math.Atan2(m.At(1, 0), m.At(0, 0))
}

// AxisAngles returns the unit rotation axis and angle in radians. The
// identity rotation reports the +X axis with a zero angle.
func (r Rotation) AxisAngles() (r3.Vector, float64) {
	q := r.Quaternion()
	denom := imagNorm(q)
	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}
	if denom < angleEpsilon {
		return r3.Vector{X: 1}, angle
	}
	return r3.Vector{X: q.Imag / denom, Y: q.Jmag / denom, Z: q.Kmag / denom}, angle
}

// Slerp spherically interpolates from r (t=0) to other (t=1). Tags must
// match unless convert is true. Values of t outside [0,1] extrapolate and are
// mathematically valid but not guaranteed numerically stable.
func (r Rotation) Slerp(other Rotation, t float64, convert bool) (Rotation, error) {
	if r.typ != other.typ {
		if !convert {
			return Rotation{}, NewIncompatibleRepresentationError("slerp", r.typ.String(), other.typ.String())
		}
		other = other.Convert(r.typ)
	}
	q := mgl64.QuatSlerp(mglQuat(r.Quaternion()), mglQuat(other.Quaternion()), t)
	out := NewUnitQuaternion(gonumQuat(q))
	return out.Convert(r.typ), nil
}

// Apply rotates a point.
func (r Rotation) Apply(pt r3.Vector) r3.Vector {
	switch r.typ {
	case RotationMatrixType:
		v := r.mat.Mul3x1(mgl64.Vec3{pt.X, pt.Y, pt.Z})
		return r3.Vector{X: v.X(), Y: v.Y(), Z: v.Z()}
	case UnitQuaternionType:
		p := quat.Mul(quat.Mul(r.q, quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}), quat.Conj(r.q))
		return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
	default:
		return pt
	}
}

// ApproxEqual reports whether two rotations encode the same orientation
// within floating point tolerance, regardless of representation. Antipodal
// quaternions are treated as equal.
func (r Rotation) ApproxEqual(other Rotation) bool {
	return QuaternionAlmostEqual(r.Quaternion(), other.Quaternion(), defaultEpsilon)
}

// QuaternionAlmostEqual compares two quaternions component-wise within
// epsilon, accounting for the q / -q double cover.
func QuaternionAlmostEqual(a, b quat.Number, epsilon float64) bool {
	same := math.Abs(a.Real-b.Real) < epsilon && math.Abs(a.Imag-b.Imag) < epsilon &&
		math.Abs(a.Jmag-b.Jmag) < epsilon && math.Abs(a.Kmag-b.Kmag) < epsilon
	flip := math.Abs(a.Real+b.Real) < epsilon && math.Abs(a.Imag+b.Imag) < epsilon &&
		math.Abs(a.Jmag+b.Jmag) < epsilon && math.Abs(a.Kmag+b.Kmag) < epsilon
	return same || flip
}

func quatFromAxisAngle(axis r3.Vector, theta float64) quat.Number {
	n := axis.Norm()
	if n == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(theta/2) / n
	return quat.Number{Real: math.Cos(theta / 2), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// quatLog returns the angle-scaled rotation axis of a unit quaternion.
func quatLog(q quat.Number) r3.Vector {
	denom := imagNorm(q)
	if denom < angleEpsilon {
		return r3.Vector{}
	}
	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}
	return r3.Vector{X: angle * q.Imag / denom, Y: angle * q.Jmag / denom, Z: angle * q.Kmag / denom}
}

func imagNorm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

func mglQuat(q quat.Number) mgl64.Quat {
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
}

func gonumQuat(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.X(), Jmag: q.Y(), Kmag: q.Z()}
}

func quatToMat3(q quat.Number) mgl64.Mat3 {
	return mglQuat(q).Normalize().Mat4().Mat3()
}

func mat3ToQuat(m mgl64.Mat3) quat.Number {
	m4 := mgl64.Ident4()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m4.Set(i, j, m.At(i, j))
		}
	}
	return gonumQuat(mgl64.Mat4ToQuat(m4))
}
