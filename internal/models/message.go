package models

import "time"

// MessageDateLayout is the ISO-8601 UTC layout with millisecond precision
// used in every date the softphone receives.
const MessageDateLayout = "2006-01-02T15:04:05.000Z"

// MessageRecord is one received SMS in the shape the softphone fetch API expects.
type MessageRecord struct {
	ID          int64  `json:"sms_id"`
	SendingDate string `json:"sending_date"`
	Sender      string `json:"sender"`
	Text        string `json:"sms_text"`
}

// FormatDate renders t in MessageDateLayout.
func FormatDate(t time.Time) string {
	return t.UTC().Format(MessageDateLayout)
}

// FilterAfter returns the records whose id is greater than cursor, keeping order.
func FilterAfter(records []MessageRecord, cursor int64) []MessageRecord {
	out := make([]MessageRecord, 0, len(records))
	for _, r := range records {
		if r.ID > cursor {
			out = append(out, r)
		}
	}
	return out
}
