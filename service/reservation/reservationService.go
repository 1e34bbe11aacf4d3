package reservation

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"bookstore/model"
	reservationrepo "bookstore/repository/reservation"
)

// errors used by controllers

type ErrCode string

const (
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrBookUnavailable   ErrCode = "BOOK_UNAVAILABLE"
	ErrDuplicateActive   ErrCode = "DUPLICATE_ACTIVE_RESERVATION"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrNotOwner          ErrCode = "NOT_OWNER"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Row = reservationrepo.Row
type Filter = reservationrepo.Filter
type Summary = reservationrepo.Summary

// TxRunner wraps one reservation operation in a database transaction.
// A failed step rolls back everything, so stock mutations are never
// observable in isolation.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type Repo = reservationrepo.Repo

type Service interface {
	// Create admits a reservation: the book must have stock and not be sold,
	// and the user must not already hold an active reservation on it. On
	// success one unit of stock is claimed and the book status reconciled,
	// all in one transaction.
	Create(ctx context.Context, userID, bookID int64, note *string) (*model.Reservation, error)

	// Cancel and Complete move an active reservation to its terminal state
	// and return the claimed unit to stock exactly once. Cancel is
	// owner-gated; Complete is the administrative path.
	Cancel(ctx context.Context, userID, reservationID int64) error
	Complete(ctx context.Context, reservationID int64) error

	// CancelExpired is the sweeper entry point: cancels the reservation only
	// if it is still active and its expiry has passed.
	CancelExpired(ctx context.Context, reservationID int64) error

	// Update edits the note and/or cancels through the state machine.
	Update(ctx context.Context, userID, reservationID int64, note *string, status *model.ReservationStatus) (*Row, error)

	Get(ctx context.Context, userID, reservationID int64) (*Row, error)
	List(ctx context.Context, userID int64, f Filter) ([]Row, int64, error)
	Summary(ctx context.Context, userID int64) (Summary, []Row, error)
}

type service struct {
	tx  TxRunner
	r   Repo
	now func() time.Time
}

func New(tx TxRunner, r Repo) Service {
	return &service{tx: tx, r: r, now: time.Now}
}

// Create claims one unit of stock for a 3-day hold.
func (s *service) Create(ctx context.Context, userID, bookID int64, note *string) (*model.Reservation, error) {
	var out *model.Reservation
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		// Row lock on the book serializes concurrent stock mutations.
		b, err := s.r.GetBookForUpdate(ctx, tx, bookID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if !b.Available() {
			return makeErr(ErrBookUnavailable)
		}

		// Pre-check is an optimization only; the partial unique index is the
		// authoritative guard when two creations race.
		dup, err := s.r.HasActive(ctx, tx, userID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return makeErr(ErrDuplicateActive)
		}

		now := s.now().UTC()
		expires := now.Add(model.HoldWindow)
		res := &model.Reservation{
			UserID:     userID,
			BookID:     bookID,
			Status:     model.ReservationActive,
			ReservedAt: now,
			ExpiresAt:  &expires,
			Note:       note,
		}
		if err := s.r.Insert(ctx, tx, res); err != nil {
			if isDuplicateActive(err) {
				return makeErr(ErrDuplicateActive)
			}
			return err
		}

		stock, err := s.r.DecrementStock(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if next, changed := model.ReconcileStatus(stock, b.Status); changed {
			if err := s.r.SetBookStatus(ctx, tx, bookID, next); err != nil {
				return err
			}
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// transition moves an active reservation to a terminal state and returns its
// unit to stock. Runs inside the caller's transaction; refuses anything that
// is not active → cancelled|completed, which is what makes repeated cancel or
// complete calls idempotent with respect to stock.
func (s *service) transition(ctx context.Context, tx *sql.Tx, res *model.Reservation, next model.ReservationStatus) error {
	if res.Status != model.ReservationActive || !next.Terminal() {
		return makeErr(ErrInvalidTransition)
	}
	if err := s.r.SetStatus(ctx, tx, res.ID, next); err != nil {
		return err
	}
	b, err := s.r.GetBookForUpdate(ctx, tx, res.BookID)
	if err != nil {
		return err
	}
	stock, err := s.r.IncrementStock(ctx, tx, res.BookID)
	if err != nil {
		return err
	}
	if st, changed := model.ReconcileStatus(stock, b.Status); changed {
		return s.r.SetBookStatus(ctx, tx, res.BookID, st)
	}
	return nil
}

func (s *service) Cancel(ctx context.Context, userID, reservationID int64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		res, err := s.lock(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != userID {
			return makeErr(ErrNotOwner)
		}
		return s.transition(ctx, tx, res, model.ReservationCancelled)
	})
}

func (s *service) Complete(ctx context.Context, reservationID int64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		res, err := s.lock(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		return s.transition(ctx, tx, res, model.ReservationCompleted)
	})
}

func (s *service) CancelExpired(ctx context.Context, reservationID int64) error {
	return s.tx.InTx(ctx, func(tx *sql.Tx) error {
		res, err := s.lock(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		// Re-check under the lock; the owner may have acted since the scan.
		if res.ExpiresAt == nil || res.ExpiresAt.After(s.now()) {
			return makeErr(ErrInvalidTransition)
		}
		return s.transition(ctx, tx, res, model.ReservationCancelled)
	})
}

func (s *service) Update(ctx context.Context, userID, reservationID int64, note *string, status *model.ReservationStatus) (*Row, error) {
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		res, err := s.lock(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.UserID != userID {
			return makeErr(ErrNotOwner)
		}
		if note != nil {
			if err := s.r.SetNote(ctx, tx, res.ID, note); err != nil {
				return err
			}
		}
		if status != nil {
			// Always goes through the state machine; re-sending a terminal
			// status on a settled reservation is rejected, not absorbed.
			return s.transition(ctx, tx, res, *status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.r.Get(ctx, reservationID)
}

func (s *service) lock(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error) {
	res, err := s.r.GetForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	return res, nil
}

func (s *service) Get(ctx context.Context, userID, reservationID int64) (*Row, error) {
	row, err := s.r.Get(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, makeErr(ErrNotFound)
	}
	if row.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	return row, nil
}

func (s *service) List(ctx context.Context, userID int64, f Filter) ([]Row, int64, error) {
	return s.r.List(ctx, userID, f)
}

func (s *service) Summary(ctx context.Context, userID int64) (Summary, []Row, error) {
	counts, err := s.r.CountByStatus(ctx, userID)
	if err != nil {
		return Summary{}, nil, err
	}
	recent, err := s.r.Recent(ctx, userID, 5)
	if err != nil {
		return Summary{}, nil, err
	}
	return counts, recent, nil
}

// isDuplicateActive recognizes the partial unique index on
// (user_id, book_id) WHERE status = 0 losing an admission race.
func isDuplicateActive(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == pgerrcode.UniqueViolation &&
		strings.Contains(strings.ToLower(pgErr.ConstraintName), "reservations_user_book_active")
}
