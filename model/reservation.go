// model/reservation.go
package model

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationFulfilled ReservationStatus = "FULFILLED"
	ReservationRejected  ReservationStatus = "REJECTED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

type Reservation struct {
	ID         int64             `json:"id"`
	UserID     int64             `json:"user_id"`
	BookID     int64             `json:"book_id"`
	Status     ReservationStatus `json:"status"`
	Notes      *string           `json:"notes,omitempty"`
	ReservedAt time.Time         `json:"reserved_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
	ApprovedBy *int64            `json:"approved_by,omitempty"`
	ApprovedAt *time.Time        `json:"approved_at,omitempty"`
}
