package models

const (
	ToneInfo  = "info"
	ToneError = "error"
)

// Notification is an entry of the audit notification log.
type Notification struct {
	ID       string `json:"id" db:"id"`
	Tone     string `json:"tone" db:"tone"` // info or error
	Message  string `json:"message" db:"message"`
	LoggedAt string `json:"logged_at" db:"logged_at"` // RFC 3339
}
