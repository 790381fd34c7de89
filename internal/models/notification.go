package models

import "time"

// AudienceAdmins is the only remote audience the backend fans out to.
const AudienceAdmins = "admins"

// NotificationTypeQuotaRestored is the metadata type of the restored notice.
// The limit-reached type is attached by the backend, not by the agent.
const NotificationTypeQuotaRestored = "rate_limit_reset"

// LocalNotification is shown to the signed-in user on this device.
type LocalNotification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Escalation tells administrators that a user exhausted their window.
// The JSON field names are the ones the backend's limit-reached endpoint expects.
type Escalation struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	ResetAt  time.Time `json:"resetAt"`
}
