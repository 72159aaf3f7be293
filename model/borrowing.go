// model/borrowing.go
package model

import "time"

type BorrowStatus string

const (
	BorrowActive   BorrowStatus = "ACTIVE"
	BorrowReturned BorrowStatus = "RETURNED"
)

type Borrowing struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	BookID       int64        `json:"book_id"`
	Status       BorrowStatus `json:"status"`
	BorrowedAt   time.Time    `json:"borrowed_at"`
	DueDate      time.Time    `json:"due_date"`
	RenewalCount int          `json:"renewal_count"`
	ReturnedAt   *time.Time   `json:"returned_at,omitempty"`
}
