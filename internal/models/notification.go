package models

// NotificationType categorizes a user-facing event
type NotificationType string

const (
	NotificationLoan   NotificationType = "LOAN"
	NotificationRank   NotificationType = "RANK"
	NotificationSystem NotificationType = "SYSTEM"
)

// Notification represents a user-facing event record
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Time      string           `json:"time"` // HH:MM DD/MM/YYYY
	Read      bool             `json:"read"`
	Type      NotificationType `json:"type"`
	UpdatedAt int64            `json:"updatedAt"`
}

func (n Notification) Key() string    { return n.ID }
func (n Notification) Version() int64 { return n.UpdatedAt }
