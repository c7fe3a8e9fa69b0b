// Package robotmodel builds a queryable kinematic graph from raw link and
// joint description records, and derives from it the joint-axis state model
// used by forward kinematics and collision preprocessing.
package robotmodel

import (
	"github.com/golang/geo/r3"
)

// JointType classifies a joint's mobility.
type JointType string

// The supported joint types.
const (
	JointRevolute  JointType = "revolute"
	JointPrismatic JointType = "prismatic"
	JointFixed     JointType = "fixed"
	JointFloating  JointType = "floating"
	JointPlanar    JointType = "planar"
)

// LinkConfig is the raw description record for a single link.
type LinkConfig struct {
	Name string `json:"name"`
}

// JointConfig is the raw description record for a single joint. Parent and
// Child reference links by name. Axis is the joint's motion axis (rotation
// axis for revolute, translation direction for prismatic, plane normal for
// planar); it is ignored for fixed and floating joints. OriginXYZ and
// OriginRPY locate the joint frame relative to the parent link frame.
type JointConfig struct {
	Name      string    `json:"name"`
	Type      JointType `json:"type"`
	Parent    string    `json:"parent"`
	Child     string    `json:"child"`
	Axis      r3.Vector `json:"axis"`
	Min       float64   `json:"min"`
	Max       float64   `json:"max"`
	OriginXYZ r3.Vector `json:"origin_xyz"`
	OriginRPY r3.Vector `json:"origin_rpy"`
}

// Description is the complete raw kinematic description of a named robot.
type Description struct {
	Name   string        `json:"name"`
	Links  []LinkConfig  `json:"links"`
	Joints []JointConfig `json:"joints"`
}

// DescriptionSource supplies raw descriptions for named robots. Sources
// should return errors wrapping ErrSourceDataMissing when no description
// exists for the given name.
type DescriptionSource interface {
	Description(robotName string) (*Description, error)
}
