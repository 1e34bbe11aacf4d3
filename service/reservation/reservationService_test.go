package reservation

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"bookstore/model"
	reservationrepo "bookstore/repository/reservation"
)

// memTx serializes whole operations the way the database transaction with
// its row locks would.
type memTx struct{ mu sync.Mutex }

func (t *memTx) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(nil)
}

// memRepo is an in-memory Repo that enforces the same constraints as the
// schema: the stock floor and the partial unique index on active rows.
type memRepo struct {
	mu     sync.Mutex
	books  map[int64]*model.Book
	res    map[int64]*model.Reservation
	nextID int64
}

func newMemRepo(books ...*model.Book) *memRepo {
	m := &memRepo{
		books: map[int64]*model.Book{},
		res:   map[int64]*model.Reservation{},
	}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *memRepo) DecrementStock(_ context.Context, _ *sql.Tx, bookID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[bookID]
	if b.Stock > 0 {
		b.Stock--
	}
	return b.Stock, nil
}

func (m *memRepo) IncrementStock(_ context.Context, _ *sql.Tx, bookID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[bookID]
	b.Stock++
	return b.Stock, nil
}

func (m *memRepo) SetBookStatus(_ context.Context, _ *sql.Tx, bookID int64, st model.BookStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[bookID].Status = st
	return nil
}

func (m *memRepo) GetBookForUpdate(_ context.Context, _ *sql.Tx, bookID int64) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[bookID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) HasActive(_ context.Context, _ *sql.Tx, userID, bookID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasActiveLocked(userID, bookID), nil
}

func (m *memRepo) hasActiveLocked(userID, bookID int64) bool {
	for _, r := range m.res {
		if r.UserID == userID && r.BookID == bookID && r.Status == model.ReservationActive {
			return true
		}
	}
	return false
}

func (m *memRepo) Insert(_ context.Context, _ *sql.Tx, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hasActiveLocked(r.UserID, r.BookID) {
		return &pgconn.PgError{
			Code:           pgerrcode.UniqueViolation,
			ConstraintName: "reservations_user_book_active_idx",
		}
	}
	m.nextID++
	r.ID = m.nextID
	r.CreatedAt = r.ReservedAt
	r.UpdatedAt = r.ReservedAt
	cp := *r
	m.res[r.ID] = &cp
	return nil
}

func (m *memRepo) GetForUpdate(_ context.Context, _ *sql.Tx, id int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (m *memRepo) SetStatus(_ context.Context, _ *sql.Tx, id int64, st model.ReservationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.res[id].Status = st
	return nil
}

func (m *memRepo) SetNote(_ context.Context, _ *sql.Tx, id int64, note *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.res[id].Note = note
	return nil
}

func (m *memRepo) rowLocked(r *model.Reservation) reservationrepo.Row {
	b := m.books[r.BookID]
	return reservationrepo.Row{
		ID:         r.ID,
		UserID:     r.UserID,
		Status:     r.Status,
		ReservedAt: r.ReservedAt,
		ExpiresAt:  r.ExpiresAt,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
		BookID:     b.ID,
		BookTitle:  b.Title,
		BookAuthor: b.Author,
		BookPrice:  b.Price,
	}
}

func (m *memRepo) Get(_ context.Context, id int64) (*reservationrepo.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return nil, nil
	}
	row := m.rowLocked(r)
	return &row, nil
}

func (m *memRepo) List(_ context.Context, userID int64, f reservationrepo.Filter) ([]reservationrepo.Row, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []reservationrepo.Row
	for _, r := range m.res {
		if r.UserID != userID {
			continue
		}
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.From != nil && r.ReservedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && r.ReservedAt.After(*f.To) {
			continue
		}
		out = append(out, m.rowLocked(r))
	}
	return out, int64(len(out)), nil
}

func (m *memRepo) Recent(ctx context.Context, userID int64, _ int) ([]reservationrepo.Row, error) {
	rows, _, err := m.List(ctx, userID, reservationrepo.Filter{})
	return rows, err
}

func (m *memRepo) CountByStatus(_ context.Context, userID int64) (reservationrepo.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s reservationrepo.Summary
	for _, r := range m.res {
		if r.UserID != userID {
			continue
		}
		s.Total++
		switch r.Status {
		case model.ReservationActive:
			s.Active++
		case model.ReservationCancelled:
			s.Cancelled++
		case model.ReservationCompleted:
			s.Completed++
		}
	}
	return s, nil
}

func (m *memRepo) ExpiredActive(_ context.Context, now time.Time, limit int) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, r := range m.res {
		if r.Status == model.ReservationActive && r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			ids = append(ids, r.ID)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (m *memRepo) book(t *testing.T, id int64) model.Book {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	require.True(t, ok)
	return *b
}

func newService(m *memRepo) *service {
	return &service{tx: &memTx{}, r: m, now: time.Now}
}

// --- tests ---

func TestCreate_BookNotFound(t *testing.T) {
	s := newService(newMemRepo())
	_, err := s.Create(context.Background(), 1, 99, nil)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestCreate_NoStock(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 0, Status: model.BookReserved})
	s := newService(m)

	_, err := s.Create(context.Background(), 1, 1, nil)
	require.Equal(t, ErrBookUnavailable, Code(err))
	require.EqualValues(t, 0, m.book(t, 1).Stock)
	require.Empty(t, m.res)
}

func TestCreate_SoldBook(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 2, Status: model.BookSold})
	s := newService(m)

	_, err := s.Create(context.Background(), 1, 1, nil)
	require.Equal(t, ErrBookUnavailable, Code(err))
	require.EqualValues(t, 2, m.book(t, 1).Stock)
}

func TestCreate_Success(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)
	start := time.Now().UTC()

	note := "pick up friday"
	res, err := s.Create(context.Background(), 7, 1, &note)
	require.NoError(t, err)
	require.Equal(t, model.ReservationActive, res.Status)
	require.False(t, res.ReservedAt.Before(start))
	require.NotNil(t, res.ExpiresAt)
	require.Equal(t, res.ReservedAt.Add(model.HoldWindow), *res.ExpiresAt)

	b := m.book(t, 1)
	require.EqualValues(t, 0, b.Stock)
	require.Equal(t, model.BookReserved, b.Status)
}

func TestCreate_DuplicateActive(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 5, Status: model.BookAvailable})
	s := newService(m)

	_, err := s.Create(context.Background(), 7, 1, nil)
	require.NoError(t, err)

	_, err = s.Create(context.Background(), 7, 1, nil)
	require.Equal(t, ErrDuplicateActive, Code(err))
	require.EqualValues(t, 4, m.book(t, 1).Stock)
}

func TestCreate_ConstraintBackstop(t *testing.T) {
	// The pre-check reads stale state; the unique index still rejects.
	m := &constraintRepo{memRepo: newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 5, Status: model.BookAvailable})}
	s := &service{tx: &memTx{}, r: m, now: time.Now}

	_, err := s.Create(context.Background(), 7, 1, nil)
	require.Equal(t, ErrDuplicateActive, Code(err))
}

type constraintRepo struct{ *memRepo }

func (c *constraintRepo) HasActive(context.Context, *sql.Tx, int64, int64) (bool, error) {
	return false, nil
}

func (c *constraintRepo) Insert(context.Context, *sql.Tx, *model.Reservation) error {
	return &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "reservations_user_book_active_idx",
	}
}

func TestCancel_RestoresStockOnce(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)

	res, err := s.Create(context.Background(), 7, 1, nil)
	require.NoError(t, err)
	require.EqualValues(t, 0, m.book(t, 1).Stock)

	require.NoError(t, s.Cancel(context.Background(), 7, res.ID))
	b := m.book(t, 1)
	require.EqualValues(t, 1, b.Stock)
	require.Equal(t, model.BookAvailable, b.Status)

	// Terminal states refuse further transitions and leave stock alone.
	err = s.Cancel(context.Background(), 7, res.ID)
	require.Equal(t, ErrInvalidTransition, Code(err))
	err = s.Complete(context.Background(), res.ID)
	require.Equal(t, ErrInvalidTransition, Code(err))
	require.EqualValues(t, 1, m.book(t, 1).Stock)
}

func TestCancel_NotOwner(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)

	res, err := s.Create(context.Background(), 7, 1, nil)
	require.NoError(t, err)

	err = s.Cancel(context.Background(), 8, res.ID)
	require.Equal(t, ErrNotOwner, Code(err))
	require.EqualValues(t, 0, m.book(t, 1).Stock)
}

func TestCancel_NotFound(t *testing.T) {
	s := newService(newMemRepo())
	err := s.Cancel(context.Background(), 7, 42)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestComplete_RestoresStock(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)

	res, err := s.Create(context.Background(), 7, 1, nil)
	require.NoError(t, err)

	require.NoError(t, s.Complete(context.Background(), res.ID))
	b := m.book(t, 1)
	require.EqualValues(t, 1, b.Stock)
	require.Equal(t, model.BookAvailable, b.Status)
}

func TestTransition_SoldBookStaysSold(t *testing.T) {
	// A hold created before the book was marked sold still returns its unit,
	// but the projector never flips sold.
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 0, Status: model.BookSold})
	now := time.Now().UTC()
	m.res[1] = &model.Reservation{ID: 1, UserID: 7, BookID: 1, Status: model.ReservationActive, ReservedAt: now}
	m.nextID = 1
	s := newService(m)

	require.NoError(t, s.Cancel(context.Background(), 7, 1))
	b := m.book(t, 1)
	require.EqualValues(t, 1, b.Stock)
	require.Equal(t, model.BookSold, b.Status)
}

func TestScenario_HandoffBetweenUsers(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)
	ctx := context.Background()

	resA, err := s.Create(ctx, 1, 1, nil)
	require.NoError(t, err)
	b := m.book(t, 1)
	require.EqualValues(t, 0, b.Stock)
	require.Equal(t, model.BookReserved, b.Status)

	_, err = s.Create(ctx, 2, 1, nil)
	require.Equal(t, ErrBookUnavailable, Code(err))

	require.NoError(t, s.Cancel(ctx, 1, resA.ID))
	b = m.book(t, 1)
	require.EqualValues(t, 1, b.Stock)
	require.Equal(t, model.BookAvailable, b.Status)

	_, err = s.Create(ctx, 2, 1, nil)
	require.NoError(t, err)
	b = m.book(t, 1)
	require.EqualValues(t, 0, b.Stock)
	require.Equal(t, model.BookReserved, b.Status)
}

func TestScenario_TwoCopies(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 2, Status: model.BookAvailable})
	s := newService(m)
	ctx := context.Background()

	_, err := s.Create(ctx, 1, 1, nil)
	require.NoError(t, err)
	_, err = s.Create(ctx, 2, 1, nil)
	require.NoError(t, err)

	b := m.book(t, 1)
	require.EqualValues(t, 0, b.Stock)
	require.Equal(t, model.BookReserved, b.Status)

	_, err = s.Create(ctx, 3, 1, nil)
	require.Equal(t, ErrBookUnavailable, Code(err))
}

func TestConcurrentCreate_SamePair(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 5, Status: model.BookAvailable})
	s := newService(m)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(context.Background(), 7, 1, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case Code(err) == ErrDuplicateActive:
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, dup)
	require.EqualValues(t, 4, m.book(t, 1).Stock)
}

func TestConcurrentCreate_LastCopy(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for uid := int64(1); uid <= 2; uid++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			_, err := s.Create(context.Background(), uid, 1, nil)
			errs <- err
		}(uid)
	}
	wg.Wait()
	close(errs)

	var ok, unavailable int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case Code(err) == ErrBookUnavailable:
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, unavailable)
	require.EqualValues(t, 0, m.book(t, 1).Stock)
}

func TestUpdate_NoteAndCancel(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)
	ctx := context.Background()

	res, err := s.Create(ctx, 7, 1, nil)
	require.NoError(t, err)

	note := "changed my mind"
	st := model.ReservationCancelled
	row, err := s.Update(ctx, 7, res.ID, &note, &st)
	require.NoError(t, err)
	require.Equal(t, model.ReservationCancelled, row.Status)
	require.NotNil(t, row.Note)
	require.Equal(t, note, *row.Note)
	require.EqualValues(t, 1, m.book(t, 1).Stock)

	// Repeating the cancel through Update is refused too.
	_, err = s.Update(ctx, 7, res.ID, nil, &st)
	require.Equal(t, ErrInvalidTransition, Code(err))
	require.EqualValues(t, 1, m.book(t, 1).Stock)
}

func TestGet_OwnerOnly(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 1, Status: model.BookAvailable})
	s := newService(m)

	res, err := s.Create(context.Background(), 7, 1, nil)
	require.NoError(t, err)

	_, err = s.Get(context.Background(), 8, res.ID)
	require.Equal(t, ErrNotOwner, Code(err))

	row, err := s.Get(context.Background(), 7, res.ID)
	require.NoError(t, err)
	require.Equal(t, "x", row.BookTitle)
}

func TestCancelExpired(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 0, Status: model.BookReserved})
	now := time.Now().UTC()
	stale := now.Add(-time.Hour)
	fresh := now.Add(time.Hour)
	m.res[1] = &model.Reservation{ID: 1, UserID: 7, BookID: 1, Status: model.ReservationActive, ReservedAt: now.Add(-100 * time.Hour), ExpiresAt: &stale}
	m.res[2] = &model.Reservation{ID: 2, UserID: 8, BookID: 1, Status: model.ReservationActive, ReservedAt: now, ExpiresAt: &fresh}
	m.nextID = 2
	s := newService(m)

	require.NoError(t, s.CancelExpired(context.Background(), 1))
	require.EqualValues(t, 1, m.book(t, 1).Stock)

	err := s.CancelExpired(context.Background(), 2)
	require.Equal(t, ErrInvalidTransition, Code(err))
	require.EqualValues(t, 1, m.book(t, 1).Stock)
}

func TestSweeper_ReleasesOnlyExpired(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 0, Status: model.BookReserved})
	now := time.Now().UTC()
	stale1 := now.Add(-time.Hour)
	stale2 := now.Add(-2 * time.Hour)
	fresh := now.Add(time.Hour)
	m.res[1] = &model.Reservation{ID: 1, UserID: 1, BookID: 1, Status: model.ReservationActive, ReservedAt: now, ExpiresAt: &stale1}
	m.res[2] = &model.Reservation{ID: 2, UserID: 2, BookID: 1, Status: model.ReservationActive, ReservedAt: now, ExpiresAt: &stale2}
	m.res[3] = &model.Reservation{ID: 3, UserID: 3, BookID: 1, Status: model.ReservationActive, ReservedAt: now, ExpiresAt: &fresh}
	m.nextID = 3
	s := newService(m)

	sw := NewSweeper(m, s, slog.Default())
	n, err := sw.ReleaseExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, n)
	require.EqualValues(t, 2, m.book(t, 1).Stock)
	require.Equal(t, model.ReservationActive, m.res[3].Status)
}

func TestList_FiltersByStatus(t *testing.T) {
	m := newMemRepo(&model.Book{ID: 1, Title: "x", Stock: 3, Status: model.BookAvailable})
	s := newService(m)
	ctx := context.Background()

	res, err := s.Create(ctx, 7, 1, nil)
	require.NoError(t, err)
	require.NoError(t, s.Cancel(ctx, 7, res.ID))
	_, err = s.Create(ctx, 7, 1, nil)
	require.NoError(t, err)

	active := model.ReservationActive
	rows, total, err := s.List(ctx, 7, Filter{Status: &active})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	require.Equal(t, model.ReservationActive, rows[0].Status)

	_, total, err = s.List(ctx, 7, Filter{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
}
