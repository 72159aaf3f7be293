// model/fine.go
package model

import "time"

type Fine struct {
	ID          int64      `json:"id"`
	BorrowingID int64      `json:"borrowing_id"`
	UserID      int64      `json:"user_id"`
	Amount      float64    `json:"amount"`
	IsPaid      bool       `json:"is_paid"`
	CreatedAt   time.Time  `json:"created_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}
