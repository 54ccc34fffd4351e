package ctdf

import "time"

// Position is the last known location of a vehicle sharing its position.
// Timestamp is always assigned by the server, in milliseconds since the Unix epoch.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

func (p Position) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}
