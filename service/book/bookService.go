package booksvc

import (
	"context"
	"errors"

	"bookstore/model"
	repo "bookstore/repository/book"
)

type Row = repo.Row
type SearchFilter = repo.SearchFilter

type Repo interface {
	List(ctx context.Context) ([]Row, error)
	Get(ctx context.Context, id int64) (*Row, error)
	Search(ctx context.Context, f SearchFilter) ([]Row, error)
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type Service interface {
	List(ctx context.Context) ([]Row, error)
	Get(ctx context.Context, id int64) (*Row, error)
	Search(ctx context.Context, f SearchFilter) ([]Row, error)
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func validate(b *model.Book) error {
	if b.Title == "" {
		return errors.New("title is required")
	}
	if b.Price < 0 {
		return errors.New("price must be >= 0")
	}
	if b.Stock < 0 {
		return errors.New("stock must be >= 0")
	}
	if b.Condition == "" {
		b.Condition = "good"
	}
	return nil
}

func (s *service) Create(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	return s.r.Create(ctx, b)
}

func (s *service) Update(ctx context.Context, b *model.Book) (bool, error) {
	if err := validate(b); err != nil {
		return false, err
	}
	return s.r.Update(ctx, b)
}

func (s *service) List(ctx context.Context) ([]Row, error) { return s.r.List(ctx) }
func (s *service) Get(ctx context.Context, id int64) (*Row, error) { return s.r.Get(ctx, id) }
func (s *service) Search(ctx context.Context, f SearchFilter) ([]Row, error) {
	return s.r.Search(ctx, f)
}
func (s *service) Delete(ctx context.Context, id int64) (bool, error) { return s.r.Delete(ctx, id) }
