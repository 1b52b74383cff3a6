package models

import "time"

// Room is an exam venue.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RoomUsage is the derived occupancy projection of a room.
type RoomUsage struct {
	Room
	OccupancyRate  float64    `json:"occupancy_rate"`
	ScheduledExams int        `json:"scheduled_exams"`
	Status         RoomStatus `json:"status"`
}
