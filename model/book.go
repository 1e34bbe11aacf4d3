// model/book.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// BookStatus is persisted as a smallint (0 available, 1 reserved, 2 sold)
// and rendered as its lowercase name in JSON.
type BookStatus int16

const (
	BookAvailable BookStatus = 0
	BookReserved  BookStatus = 1
	BookSold      BookStatus = 2
)

func (s BookStatus) String() string {
	switch s {
	case BookAvailable:
		return "available"
	case BookReserved:
		return "reserved"
	case BookSold:
		return "sold"
	}
	return fmt.Sprintf("unknown(%d)", int16(s))
}

func ParseBookStatus(v string) (BookStatus, error) {
	switch v {
	case "available":
		return BookAvailable, nil
	case "reserved":
		return BookReserved, nil
	case "sold":
		return BookSold, nil
	}
	return 0, fmt.Errorf("invalid book status %q", v)
}

func (s BookStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *BookStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseBookStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Book struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Author      *string    `db:"author" json:"author"`
	ISBN        *string    `db:"isbn" json:"isbn"`
	Description *string    `db:"description" json:"description"`
	Condition   string     `db:"condition" json:"condition"`
	Price       float64    `db:"price" json:"price"`
	Status      BookStatus `db:"status" json:"status"`
	Stock       int64      `db:"stock" json:"stock"`
	CategoryID  *int64     `db:"category_id" json:"category_id,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Available reports whether the book can take a new reservation.
func (b *Book) Available() bool {
	return b.Stock > 0 && b.Status != BookSold
}

// ReconcileStatus derives the status a book should carry for the given stock
// count. Sold is terminal with respect to stock changes and is never
// overwritten. The second return is false when no write is needed, so calling
// it again with the same inputs is a no-op.
func ReconcileStatus(stock int64, cur BookStatus) (BookStatus, bool) {
	if stock > 0 && cur == BookReserved {
		return BookAvailable, true
	}
	if stock == 0 && cur == BookAvailable {
		return BookReserved, true
	}
	return cur, false
}
