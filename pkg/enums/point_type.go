package enums

import (
	"fmt"
	"slices"
)

// PointType selects one of the two peer-recognition tallies.
type PointType string

const (
	PointTypeThanks  PointType = "thanks"
	PointTypeGoodJob PointType = "goodjob"
)

var pointTypes = []PointType{PointTypeThanks, PointTypeGoodJob}

func (p PointType) String() string { return string(p) }

func (p PointType) IsValid() bool { return slices.Contains(pointTypes, p) }

func ParsePointType(value string) (PointType, error) {
	return parse("point type", value, pointTypes)
}

// PointDirection filters a user's point history.
type PointDirection string

const (
	PointDirectionAll      PointDirection = "all"
	PointDirectionSent     PointDirection = "sent"
	PointDirectionReceived PointDirection = "received"
)

// ParsePointDirection treats empty input as PointDirectionAll.
func ParsePointDirection(value string) (PointDirection, error) {
	if value == "" {
		return PointDirectionAll, nil
	}
	d, err := parse("point direction", value, []PointDirection{PointDirectionAll, PointDirectionSent, PointDirectionReceived})
	if err != nil {
		return "", fmt.Errorf("%w (want all, sent or received)", err)
	}
	return d, nil
}
