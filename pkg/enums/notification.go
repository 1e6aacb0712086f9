package enums

import "slices"

// NotificationType classifies inbox entries.
type NotificationType string

const (
	NotificationTypePointReceived    NotificationType = "point_received"
	NotificationTypeMissionCompleted NotificationType = "mission_completed"
	NotificationTypeSkillAcquired    NotificationType = "skill_acquired"
	NotificationTypeSystem           NotificationType = "system"
)

var notificationTypes = []NotificationType{
	NotificationTypePointReceived,
	NotificationTypeMissionCompleted,
	NotificationTypeSkillAcquired,
	NotificationTypeSystem,
}

func (n NotificationType) IsValid() bool { return slices.Contains(notificationTypes, n) }

func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", value, notificationTypes)
}
