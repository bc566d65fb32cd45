package models

import "time"

// Event is a single notification captured by a collector. It is passed by
// value through the pipeline and never modified after creation.
type Event struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	SourceName string    `json:"source_name"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	CategoryID string    `json:"category_id,omitempty"`
	Importance int       `json:"importance"`
	IsSummary  bool      `json:"is_summary"`
	Image      *Image    `json:"image,omitempty"`
}

// Image is an optional picture attached to the raw notification.
type Image struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// PendingItem is a filtered event parked while quiet hours are active.
type PendingItem struct {
	SourceID        string    `json:"source_id"`
	SourceName      string    `json:"source_name"`
	Title           string    `json:"title"`
	Text            string    `json:"text"`
	Timestamp       time.Time `json:"timestamp"`
	DestinationURLs []string  `json:"destination_urls"`
}

func NewPendingItem(ev Event, destinations []string) PendingItem {
	dst := make([]string, len(destinations))
	copy(dst, destinations)
	return PendingItem{
		SourceID:        ev.SourceID,
		SourceName:      ev.SourceName,
		Title:           ev.Title,
		Text:            ev.Text,
		Timestamp:       ev.Timestamp,
		DestinationURLs: dst,
	}
}
