// Package kinematics computes world-frame link poses from joint states by a
// single forward pass over the kinematic tree's traversal layers.
package kinematics

import (
	"math"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"go.kinetix.dev/kinetix/robotmodel"
	"go.kinetix.dev/kinetix/spatialmath"
)

// FKResult holds one world pose per link arena slot; entries for links not
// present in the active tree are nil.
type FKResult struct {
	model *robotmodel.Model
	poses []*spatialmath.Pose
}

// NumLinks returns the size of the underlying link arena.
func (r *FKResult) NumLinks() int { return len(r.poses) }

// LinkPose returns the world pose of the link at the given arena index, or
// nil when the link is not present.
func (r *FKResult) LinkPose(linkIdx int) (*spatialmath.Pose, error) {
	if linkIdx < 0 || linkIdx >= len(r.poses) {
		return nil, robotmodel.NewIndexOutOfBoundsError("link", linkIdx, len(r.poses))
	}
	return r.poses[linkIdx], nil
}

// LinkPoseByName resolves a link by name and returns its world pose.
func (r *FKResult) LinkPoseByName(name string) (*spatialmath.Pose, error) {
	idx, err := r.model.LinkIndex(name)
	if err != nil {
		return nil, err
	}
	return r.poses[idx], nil
}

// Poses returns the per-link pose table. Callers must not mutate it.
func (r *FKResult) Poses() []*spatialmath.Pose { return r.poses }

// ComputeFK propagates a joint state through the model's traversal layers
// and returns a world pose per present link, in the requested pose
// representation. DOF states are expanded to the Full view first; a NaN axis
// value is an error. Out-of-limit values still compute but are reported: when
// the returned FKResult is non-nil, the error holds only limit warnings.
func ComputeFK(
	model *robotmodel.Model,
	sm *robotmodel.StateModel,
	state *robotmodel.State,
	poseType spatialmath.PoseType,
) (*FKResult, error) {
	full, err := sm.ToFull(state)
	if err != nil {
		return nil, err
	}
	values := full.Values()
	for slot, v := range values {
		if math.IsNaN(v) {
			return nil, NewInvalidAxisValueError(slot, v)
		}
	}

	result := &FKResult{model: model, poses: make([]*spatialmath.Pose, model.NumLinks())}
	var warnings error

	layers := model.TraversalLayers()
	for depth, layer := range layers {
		for _, linkIdx := range layer {
			if depth == 0 {
				root := spatialmath.NewZeroPose(poseType)
				result.poses[linkIdx] = &root
				continue
			}
			link, err := model.Link(linkIdx)
			if err != nil {
				return nil, err
			}
			parentPose := result.poses[link.ParentLink()]
			joint, err := model.Joint(link.ParentJoint())
			if err != nil {
				return nil, err
			}
			pose, warn, err := jointTransform(*parentPose, joint, sm, values, poseType)
			if err != nil {
				return nil, err
			}
			warnings = multierr.Combine(warnings, warn)
			result.poses[linkIdx] = &pose
		}
	}
	return result, warnings
}

// jointTransform composes the parent pose with the joint's origin offset and
// one transform per axis, in axis order.
func jointTransform(
	parent spatialmath.Pose,
	joint *robotmodel.Joint,
	sm *robotmodel.StateModel,
	fullValues []float64,
	poseType spatialmath.PoseType,
) (spatialmath.Pose, error, error) {
	xyz, rpy := joint.Origin()
	pose, err := parent.Compose(spatialmath.NewPoseFromEulerAngles(poseType, rpy.X, rpy.Y, rpy.Z, xyz), false)
	if err != nil {
		return spatialmath.Pose{}, nil, err
	}

	var warnings error
	axes := joint.Axes()
	slots := sm.JointFullSlots(joint.Index())
	for i := range axes {
		axis := &axes[i]
		v := fullValues[slots[i]]
		if !axis.Fixed() {
			if min, max := axis.Limits(); v < min || v > max {
				warnings = multierr.Combine(warnings, newLimitWarning(joint.Name(), v, min, max))
			}
		}
		var step spatialmath.Pose
		switch axis.Kind() {
		case robotmodel.AxisRotational:
			step = spatialmath.NewPoseFromAxisAngle(poseType, axis.Axis(), v, r3.Vector{})
		case robotmodel.AxisTranslational:
			step = spatialmath.NewPoseFromPoint(poseType, axis.Axis().Mul(v))
		}
		pose, err = pose.Compose(step, false)
		if err != nil {
			return spatialmath.Pose{}, nil, err
		}
	}
	return pose, warnings, nil
}
