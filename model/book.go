// model/book.go
package model

import "time"

type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Category        string    `json:"category"`
	Publisher       *string   `json:"publisher,omitempty"`
	PublishedYear   *int      `json:"published_year,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Location        *string   `json:"location,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}
