package categoryrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"bookstore/model"
)

type Repo interface {
	List(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id int64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sqlx.DB }

func New(db *sqlx.DB) Repo { return &repo{db} }

func (r *repo) List(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name`)
	return out, err
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := r.db.GetContext(ctx, c, `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *repo) Create(ctx context.Context, c *model.Category) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO categories(name, description)
		VALUES ($1,$2)
		RETURNING id, created_at, updated_at`,
		c.Name, c.Description,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *repo) Update(ctx context.Context, c *model.Category) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Description,
	)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}
