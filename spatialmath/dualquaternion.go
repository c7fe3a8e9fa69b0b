package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// newDualQuat packs a unit rotation quaternion and a translation into a unit
// dual quaternion: real part is the rotation, dual part is (1/2) t ⊗ r.
func newDualQuat(rot quat.Number, t r3.Vector) dualquat.Number {
	tq := quat.Number{Imag: t.X, Jmag: t.Y, Kmag: t.Z}
	return dualquat.Number{
		Real: rot,
		Dual: quat.Scale(0.5, quat.Mul(tq, rot)),
	}
}

func identityDualQuat() dualquat.Number {
	return dualquat.Number{Real: quat.Number{Real: 1}}
}

// dqTranslation recovers the translation vector from a unit dual quaternion.
func dqTranslation(dq dualquat.Number) r3.Vector {
	tq := quat.Scale(2, quat.Mul(dq.Dual, quat.Conj(dq.Real)))
	return r3.Vector{X: tq.Imag, Y: tq.Jmag, Z: tq.Kmag}
}

// dqInverse is the rigid-transform inverse of a unit dual quaternion: the
// quaternion conjugate of both parts. Not dualquat.Conj, whose extra dual
// negation leaves a doubled translation behind.
func dqInverse(dq dualquat.Number) dualquat.Number {
	return dualquat.ConjQuat(dq)
}

// dqTransformPoint applies the rigid transform encoded by dq to a point.
func dqTransformPoint(dq dualquat.Number, pt r3.Vector) r3.Vector {
	r := dq.Real
	p := quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}
	rotated := quat.Mul(quat.Mul(r, p), quat.Conj(r))
	t := dqTranslation(dq)
	return r3.Vector{X: rotated.Imag + t.X, Y: rotated.Jmag + t.Y, Z: rotated.Kmag + t.Z}
}
