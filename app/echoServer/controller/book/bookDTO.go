package book

import (
	"time"

	"bookstore/model"
	booksvc "bookstore/service/book"
)

type BookReq struct {
	Title       string   `json:"title" validate:"required"`
	Author      *string  `json:"author"`
	ISBN        *string  `json:"isbn"`
	Description *string  `json:"description"`
	Condition   string   `json:"condition"`
	Price       float64  `json:"price" validate:"gte=0"`
	Status      *string  `json:"status" validate:"omitempty,oneof=available reserved sold"`
	Stock       int64    `json:"stock" validate:"gte=0"`
	CategoryID  *int64   `json:"category_id"`
	PublishedAt *string  `json:"published_at"`
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BookJSON struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Author      *string          `json:"author"`
	ISBN        *string          `json:"isbn"`
	Description *string          `json:"description"`
	Condition   string           `json:"condition"`
	Price       float64          `json:"price"`
	Status      model.BookStatus `json:"status"`
	Stock       int64            `json:"stock"`
	Category    *CategoryRef     `json:"category"`
	PublishedAt *time.Time       `json:"published_at"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func rowJSON(r *booksvc.Row) BookJSON {
	out := BookJSON{
		ID:          r.ID,
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Description: r.Description,
		Condition:   r.Condition,
		Price:       r.Price,
		Status:      r.Status,
		Stock:       r.Stock,
		PublishedAt: r.PublishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.CategoryID != nil && r.CategoryName != nil {
		out.Category = &CategoryRef{ID: *r.CategoryID, Name: *r.CategoryName}
	}
	return out
}

func rowsJSON(rows []booksvc.Row) []BookJSON {
	out := make([]BookJSON, 0, len(rows))
	for i := range rows {
		out = append(out, rowJSON(&rows[i]))
	}
	return out
}
