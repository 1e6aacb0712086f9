package enums

import "slices"

// MissionStatus tracks a mission's lifecycle. completed and cancelled are
// terminal.
type MissionStatus string

const (
	MissionStatusActive    MissionStatus = "active"
	MissionStatusCompleted MissionStatus = "completed"
	MissionStatusCancelled MissionStatus = "cancelled"
)

var missionStatuses = []MissionStatus{MissionStatusActive, MissionStatusCompleted, MissionStatusCancelled}

func (s MissionStatus) String() string { return string(s) }

func (s MissionStatus) IsValid() bool { return slices.Contains(missionStatuses, s) }

func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusCancelled
}

func ParseMissionStatus(value string) (MissionStatus, error) {
	return parse("mission status", value, missionStatuses)
}
