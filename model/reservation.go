// model/reservation.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// HoldWindow is how long a fresh reservation holds its unit of stock.
const HoldWindow = 72 * time.Hour

// ReservationStatus is persisted as a smallint (0 active, 1 cancelled,
// 2 completed). Active is the only non-terminal state.
type ReservationStatus int16

const (
	ReservationActive    ReservationStatus = 0
	ReservationCancelled ReservationStatus = 1
	ReservationCompleted ReservationStatus = 2
)

func (s ReservationStatus) String() string {
	switch s {
	case ReservationActive:
		return "active"
	case ReservationCancelled:
		return "cancelled"
	case ReservationCompleted:
		return "completed"
	}
	return fmt.Sprintf("unknown(%d)", int16(s))
}

func ParseReservationStatus(v string) (ReservationStatus, error) {
	switch v {
	case "active":
		return ReservationActive, nil
	case "cancelled":
		return ReservationCancelled, nil
	case "completed":
		return ReservationCompleted, nil
	}
	return 0, fmt.Errorf("invalid reservation status %q", v)
}

func (s ReservationStatus) Terminal() bool {
	return s == ReservationCancelled || s == ReservationCompleted
}

func (s ReservationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ReservationStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseReservationStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

type Reservation struct {
	ID         int64             `db:"id" json:"id"`
	UserID     int64             `db:"user_id" json:"user_id"`
	BookID     int64             `db:"book_id" json:"book_id"`
	Status     ReservationStatus `db:"status" json:"status"`
	ReservedAt time.Time         `db:"reserved_at" json:"reserved_at"`
	ExpiresAt  *time.Time        `db:"expires_at" json:"expires_at"`
	Note       *string           `db:"note" json:"note"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// DaysRemaining counts whole calendar days until expiry, floored at zero.
// Nil when the reservation has no expiry.
func (r *Reservation) DaysRemaining(now time.Time) *int64 {
	if r.ExpiresAt == nil {
		return nil
	}
	ey, em, ed := r.ExpiresAt.Date()
	ny, nm, nd := now.Date()
	exp := time.Date(ey, em, ed, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int64(exp.Sub(today).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}
