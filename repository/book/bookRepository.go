package bookrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jmoiron/sqlx"

	"bookstore/model"
)

var dialect = goqu.Dialect("postgres")

// Row is a book with its category name joined in for list views.
type Row struct {
	model.Book
	CategoryName *string `db:"category_name" json:"-"`
}

// SearchFilter mirrors the composite search query parameters. Zero values
// mean "not filtered".
type SearchFilter struct {
	Title    string
	Author   string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Status   *model.BookStatus
}

type Repo interface {
	List(ctx context.Context) ([]Row, error)
	Get(ctx context.Context, id int64) (*Row, error)
	Search(ctx context.Context, f SearchFilter) ([]Row, error)
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

var bookColumns = []any{
	"b.id", "b.title", "b.author", "b.isbn", "b.description", "b.condition",
	"b.price", "b.status", "b.stock", "b.category_id", "b.published_at",
	"b.created_at", "b.updated_at",
	goqu.I("c.name").As("category_name"),
}

func baseSelect() *goqu.SelectDataset {
	return dialect.
		From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("b.category_id")))).
		Select(bookColumns...)
}

func (r *repo) List(ctx context.Context) ([]Row, error) {
	q, args, err := baseSelect().
		Order(goqu.I("b.created_at").Desc(), goqu.I("b.id").Desc()).
		Limit(100).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Get(ctx context.Context, id int64) (*Row, error) {
	q, args, err := baseSelect().
		Where(goqu.I("b.id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	row := &Row{}
	err = r.db.GetContext(ctx, row, q, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *repo) Search(ctx context.Context, f SearchFilter) ([]Row, error) {
	ds := baseSelect()
	if f.Title != "" {
		ds = ds.Where(goqu.I("b.title").ILike("%" + f.Title + "%"))
	}
	if f.Author != "" {
		ds = ds.Where(goqu.I("b.author").ILike("%" + f.Author + "%"))
	}
	if f.Category != "" {
		ds = ds.Where(goqu.I("c.name").ILike("%" + f.Category + "%"))
	}
	if f.MinPrice != nil {
		ds = ds.Where(goqu.I("b.price").Gte(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		ds = ds.Where(goqu.I("b.price").Lte(*f.MaxPrice))
	}
	if f.Status != nil {
		ds = ds.Where(goqu.I("b.status").Eq(int16(*f.Status)))
	}
	q, args, err := ds.
		Order(goqu.I("b.id").Desc()).
		Limit(200).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO books (title, author, isbn, description, condition, price, status, stock, category_id, published_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`,
		b.Title, b.Author, b.ISBN, b.Description, b.Condition,
		b.Price, b.Status, b.Stock, b.CategoryID, b.PublishedAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repo) Update(ctx context.Context, b *model.Book) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE books
		SET title = $2, author = $3, isbn = $4, description = $5, condition = $6,
		    price = $7, status = $8, stock = $9, category_id = $10, published_at = $11,
		    updated_at = NOW()
		WHERE id = $1`,
		b.ID, b.Title, b.Author, b.ISBN, b.Description, b.Condition,
		b.Price, b.Status, b.Stock, b.CategoryID, b.PublishedAt,
	)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

// Delete removes the book; dependent reservations go with it via the FK
// cascade.
func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}
