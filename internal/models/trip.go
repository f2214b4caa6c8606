package models

import "time"

// TripStatus is the operating status of a train
type TripStatus string

const (
	TripOnTime    TripStatus = "on-time"
	TripDelayed   TripStatus = "delayed"
	TripCancelled TripStatus = "cancelled"
)

// Trip is one scheduled train journey
type Trip struct {
	ID               string     `json:"id" gorm:"primaryKey;size:64"`
	UserID           string     `json:"-" gorm:"index;size:128"`
	TrainNumber      string     `json:"trainNumber" gorm:"size:32;not null"`
	DepartureStation string     `json:"departureStation" gorm:"size:128;not null"`
	ArrivalStation   string     `json:"arrivalStation" gorm:"size:128;not null"`
	DepartureTime    string     `json:"departureTime" gorm:"size:16"`
	ArrivalTime      string     `json:"arrivalTime" gorm:"size:16"`
	Duration         string     `json:"duration" gorm:"size:16"`
	Platform         string     `json:"platform,omitempty" gorm:"size:8"`
	Status           TripStatus `json:"status" gorm:"size:16;default:on-time"`
	DelayMinutes     *int       `json:"delayMinutes,omitempty"`
	CreatedAt        time.Time  `json:"-"`
	UpdatedAt        time.Time  `json:"-"`
}

// TableName overrides the table name
func (Trip) TableName() string {
	return "trips"
}

// TripsResponse is the body of the trips endpoint
type TripsResponse struct {
	Trips []Trip `json:"trips"`
}
