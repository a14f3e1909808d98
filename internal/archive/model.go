package archive

import "time"

// Record is one completed generation. Records are immutable once written.
type Record struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	Tone      string    `json:"tone"`
	Length    string    `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}
