package categorysvc

import (
	"context"
	"errors"

	"bookstore/model"
	repo "bookstore/repository/category"
)

type Repo interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

var _ Repo = (repo.Repo)(nil)

type Service interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, c *model.Category) error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return s.r.Create(ctx, c)
}

func (s *service) Update(ctx context.Context, c *model.Category) (bool, error) {
	if c.Name == "" {
		return false, errors.New("name is required")
	}
	return s.r.Update(ctx, c)
}

func (s *service) List(ctx context.Context) ([]model.Category, error) { return s.r.List(ctx) }
func (s *service) Get(ctx context.Context, id int64) (*model.Category, error) {
	return s.r.Get(ctx, id)
}
func (s *service) Delete(ctx context.Context, id int64) (bool, error) { return s.r.Delete(ctx, id) }
