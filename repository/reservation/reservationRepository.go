// repository/reservation/repo.go
package reservationrepo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration

	"bookstore/model"
)

var dialect = goqu.Dialect("postgres")

// Row is a reservation joined with the book it holds.
type Row struct {
	ID         int64                   `json:"id"`
	UserID     int64                   `json:"-"`
	Status     model.ReservationStatus `json:"status"`
	ReservedAt time.Time               `json:"reserved_at"`
	ExpiresAt  *time.Time              `json:"expires_at"`
	Note       *string                 `json:"note"`
	CreatedAt  time.Time               `json:"created_at"`
	BookID     int64                   `json:"-"`
	BookTitle  string                  `json:"-"`
	BookAuthor *string                 `json:"-"`
	BookPrice  float64                 `json:"-"`
}

// Filter narrows List; nil fields are not applied.
type Filter struct {
	Status  *model.ReservationStatus
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// Summary is the per-user reservation count breakdown.
type Summary struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Cancelled int64 `json:"cancelled"`
	Completed int64 `json:"completed"`
}

type Repo interface {
	// Stock ledger. Mutations are ±1; decrement clamps at zero. Both return
	// the new stock so the caller can reconcile the book status.
	DecrementStock(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	IncrementStock(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error)
	SetBookStatus(ctx context.Context, tx *sql.Tx, bookID int64, st model.BookStatus) error
	GetBookForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Book, error)

	// Reservation rows.
	HasActive(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error)
	Insert(ctx context.Context, tx *sql.Tx, r *model.Reservation) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error)
	SetStatus(ctx context.Context, tx *sql.Tx, id int64, st model.ReservationStatus) error
	SetNote(ctx context.Context, tx *sql.Tx, id int64, note *string) error

	// Read side.
	Get(ctx context.Context, id int64) (*Row, error)
	List(ctx context.Context, userID int64, f Filter) ([]Row, int64, error)
	Recent(ctx context.Context, userID int64, limit int) ([]Row, error)
	CountByStatus(ctx context.Context, userID int64) (Summary, error)
	ExpiredActive(ctx context.Context, now time.Time, limit int) ([]int64, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

// Stock ledger

func (r *repo) DecrementStock(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	const q = `
		UPDATE books
		SET stock = GREATEST(stock - 1, 0),
			updated_at = NOW()
		WHERE id = $1
		RETURNING stock`
	var stock int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&stock)
	return stock, err
}

func (r *repo) IncrementStock(ctx context.Context, tx *sql.Tx, bookID int64) (int64, error) {
	const q = `
		UPDATE books
		SET stock = stock + 1,
			updated_at = NOW()
		WHERE id = $1
		RETURNING stock`
	var stock int64
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&stock)
	return stock, err
}

func (r *repo) SetBookStatus(ctx context.Context, tx *sql.Tx, bookID int64, st model.BookStatus) error {
	const q = `
		UPDATE books
		SET status = $2,
			updated_at = NOW()
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, bookID, st)
	return err
}

// GetBookForUpdate locks the book row so concurrent stock mutations on the
// same book serialize. Only the fields the admission check needs are loaded.
func (r *repo) GetBookForUpdate(ctx context.Context, tx *sql.Tx, bookID int64) (*model.Book, error) {
	const q = `
		SELECT id, title, status, stock
		FROM books
		WHERE id = $1
		FOR UPDATE`
	b := &model.Book{}
	err := tx.QueryRowContext(ctx, q, bookID).Scan(&b.ID, &b.Title, &b.Status, &b.Stock)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Reservation rows

func (r *repo) HasActive(ctx context.Context, tx *sql.Tx, userID, bookID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND book_id = $2 AND status = 0
		)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID, bookID).Scan(&exists)
	return exists, err
}

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `
		INSERT INTO reservations (user_id, book_id, status, reserved_at, expires_at, note)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`
	return tx.QueryRowContext(ctx, q,
		res.UserID, res.BookID, res.Status, res.ReservedAt, res.ExpiresAt, res.Note,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Reservation, error) {
	const q = `
		SELECT id, user_id, book_id, status, reserved_at, expires_at, note, created_at, updated_at
		FROM reservations
		WHERE id = $1
		FOR UPDATE`
	res := &model.Reservation{}
	err := tx.QueryRowContext(ctx, q, id).Scan(
		&res.ID, &res.UserID, &res.BookID, &res.Status,
		&res.ReservedAt, &res.ExpiresAt, &res.Note, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repo) SetStatus(ctx context.Context, tx *sql.Tx, id int64, st model.ReservationStatus) error {
	const q = `
		UPDATE reservations
		SET status = $2,
			updated_at = NOW()
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, st)
	return err
}

func (r *repo) SetNote(ctx context.Context, tx *sql.Tx, id int64, note *string) error {
	const q = `
		UPDATE reservations
		SET note = $2,
			updated_at = NOW()
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id, note)
	return err
}

// Read side

var rowColumns = []any{
	goqu.I("r.id"), goqu.I("r.user_id"), goqu.I("r.status"),
	goqu.I("r.reserved_at"), goqu.I("r.expires_at"), goqu.I("r.note"),
	goqu.I("r.created_at"),
	goqu.I("b.id").As("b_id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.price"),
}

func rowSelect() *goqu.SelectDataset {
	return dialect.
		From(goqu.T("reservations").As("r")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("r.book_id")))).
		Select(rowColumns...)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.Status,
			&row.ReservedAt, &row.ExpiresAt, &row.Note, &row.CreatedAt,
			&row.BookID, &row.BookTitle, &row.BookAuthor, &row.BookPrice,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *repo) Get(ctx context.Context, id int64) (*Row, error) {
	q, args, err := rowSelect().
		Where(goqu.I("r.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	row := Row{}
	err = r.db.QueryRowContext(ctx, q, args...).Scan(
		&row.ID, &row.UserID, &row.Status,
		&row.ReservedAt, &row.ExpiresAt, &row.Note, &row.CreatedAt,
		&row.BookID, &row.BookTitle, &row.BookAuthor, &row.BookPrice,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func filterExpressions(userID int64, f Filter) []goqu.Expression {
	exprs := []goqu.Expression{goqu.I("r.user_id").Eq(userID)}
	if f.Status != nil {
		exprs = append(exprs, goqu.I("r.status").Eq(int16(*f.Status)))
	}
	if f.From != nil {
		exprs = append(exprs, goqu.I("r.reserved_at").Gte(*f.From))
	}
	if f.To != nil {
		exprs = append(exprs, goqu.I("r.reserved_at").Lte(*f.To))
	}
	return exprs
}

func (r *repo) List(ctx context.Context, userID int64, f Filter) ([]Row, int64, error) {
	where := filterExpressions(userID, f)

	countQ, countArgs, err := dialect.
		From(goqu.T("reservations").As("r")).
		Select(goqu.COUNT(goqu.Star())).
		Where(where...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	per := f.PerPage
	if per < 1 || per > 100 {
		per = 20
	}
	q, args, err := rowSelect().
		Where(where...).
		Order(goqu.I("r.reserved_at").Desc(), goqu.I("r.id").Desc()).
		Limit(uint(per)).
		Offset(uint((page - 1) * per)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanRows(rows)
	return out, total, err
}

func (r *repo) Recent(ctx context.Context, userID int64, limit int) ([]Row, error) {
	q, args, err := rowSelect().
		Where(goqu.I("r.user_id").Eq(userID)).
		Order(goqu.I("r.reserved_at").Desc(), goqu.I("r.id").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRows(rows)
}

func (r *repo) CountByStatus(ctx context.Context, userID int64) (Summary, error) {
	const q = `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 0),
			COUNT(*) FILTER (WHERE status = 1),
			COUNT(*) FILTER (WHERE status = 2)
		FROM reservations
		WHERE user_id = $1`
	var s Summary
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&s.Total, &s.Active, &s.Cancelled, &s.Completed)
	return s, err
}

func (r *repo) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	const q = `
		SELECT id
		FROM reservations
		WHERE status = 0
		AND expires_at IS NOT NULL
		AND expires_at < $1
		ORDER BY id
		LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
