package reservation

import (
	"time"

	"bookstore/model"
	reservationsvc "bookstore/service/reservation"
)

type CreateReservationReq struct {
	BookID int64   `json:"book_id" validate:"required,gt=0"`
	Note   *string `json:"note"`
}

// UpdateReservationReq edits the note and/or cancels the hold. Completion has
// its own administrative endpoint.
type UpdateReservationReq struct {
	Note   *string `json:"note"`
	Status *string `json:"status" validate:"omitempty,oneof=cancelled"`
}

type BookRef struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Author *string `json:"author"`
	Price  float64 `json:"price"`
}

type ReservationJSON struct {
	ID            int64                   `json:"id"`
	Book          BookRef                 `json:"book"`
	Status        model.ReservationStatus `json:"status"`
	ReservedAt    time.Time               `json:"reserved_at"`
	ExpiresAt     *time.Time              `json:"expires_at"`
	Note          *string                 `json:"note"`
	DaysRemaining *int64                  `json:"days_remaining"`
	CreatedAt     time.Time               `json:"created_at"`
}

func RowJSON(r *reservationsvc.Row) ReservationJSON {
	hold := model.Reservation{ExpiresAt: r.ExpiresAt}
	return ReservationJSON{
		ID: r.ID,
		Book: BookRef{
			ID:     r.BookID,
			Title:  r.BookTitle,
			Author: r.BookAuthor,
			Price:  r.BookPrice,
		},
		Status:        r.Status,
		ReservedAt:    r.ReservedAt,
		ExpiresAt:     r.ExpiresAt,
		Note:          r.Note,
		DaysRemaining: hold.DaysRemaining(time.Now()),
		CreatedAt:     r.CreatedAt,
	}
}

func RowsJSON(rows []reservationsvc.Row) []ReservationJSON {
	out := make([]ReservationJSON, 0, len(rows))
	for i := range rows {
		out = append(out, RowJSON(&rows[i]))
	}
	return out
}
