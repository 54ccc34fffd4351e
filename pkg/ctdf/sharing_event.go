package ctdf

import "time"

type SharingEventType string

const (
	SharingEventTypeStarted SharingEventType = "started"
	SharingEventTypeStopped SharingEventType = "stopped"
)

// SharingEvent records a vehicle starting or stopping position sharing.
type SharingEvent struct {
	Timestamp time.Time

	Type      SharingEventType
	BusNumber string
}
