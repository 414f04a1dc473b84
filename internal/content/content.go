// Package content defines the read-side shapes returned to route handlers.
// The optimized and legacy query paths both build their responses through
// the mappers here, so callers cannot tell which path served a request.
package content

import (
	"math"
	"time"

	"github.com/sdko-org/content-query/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit from overflowing int.
	MaxPage = math.MaxInt / MaxLimit
)

// Filter is passed through to the data source as column = value conditions.
type Filter map[string]interface{}

type Query struct {
	Filter   Filter
	Page     int
	Limit    int
	Language string
	UseCache bool
}

// Normalize clamps page and limit into their valid ranges.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type Page[T any] struct {
	Items      []T        `json:"items"`
	Total      int64      `json:"total"`
	Pagination Pagination `json:"pagination"`
}

func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{
		Items: items,
		Total: total,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}
}

// URLResolver turns an image storage key into a client-facing URL.
type URLResolver interface {
	URL(key string) string
}

type ImageView struct {
	ID     uint   `json:"id"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type AuthorView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type BlogTranslationView struct {
	Language string `json:"language"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
}

type BlogView struct {
	ID           uint                  `json:"id"`
	Slug         string                `json:"slug"`
	Title        string                `json:"title"`
	Category     string                `json:"category"`
	Status       string                `json:"status"`
	Featured     bool                  `json:"featured"`
	PublishedAt  time.Time             `json:"publishedAt"`
	Image        *ImageView            `json:"image"`
	Author       *AuthorView           `json:"author"`
	Translations []BlogTranslationView `json:"translations"`
}

type ProgramTranslationView struct {
	Language    string `json:"language"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type GalleryItemView struct {
	ID       uint       `json:"id"`
	Caption  string     `json:"caption"`
	Position int        `json:"position"`
	Image    *ImageView `json:"image"`
}

type ProgramView struct {
	ID           uint                     `json:"id"`
	Slug         string                   `json:"slug"`
	Title        string                   `json:"title"`
	Category     string                   `json:"category"`
	Status       string                   `json:"status"`
	SortOrder    int                      `json:"sortOrder"`
	Image        *ImageView               `json:"image"`
	Translations []ProgramTranslationView `json:"translations"`
	Gallery      []GalleryItemView        `json:"gallery"`
}

func NewImageView(img *models.Image, r URLResolver) *ImageView {
	if img == nil {
		return nil
	}
	url := img.StorageKey
	if r != nil {
		url = r.URL(img.StorageKey)
	}
	return &ImageView{
		ID:     img.ID,
		URL:    url,
		Alt:    img.Alt,
		Width:  img.Width,
		Height: img.Height,
	}
}

func NewAuthorView(a *models.Author) *AuthorView {
	if a == nil {
		return nil
	}
	return &AuthorView{ID: a.ID, Name: a.Name, Slug: a.Slug}
}

// NewBlogView copies b and its relations into a view; b is not modified.
func NewBlogView(b models.Blog, img *models.Image, author *models.Author, translations []models.BlogTranslation, r URLResolver) BlogView {
	v := BlogView{
		ID:           b.ID,
		Slug:         b.Slug,
		Category:     b.Category,
		Status:       b.Status,
		Featured:     b.Featured,
		PublishedAt:  b.PublishedAt,
		Image:        NewImageView(img, r),
		Author:       NewAuthorView(author),
		Translations: make([]BlogTranslationView, 0, len(translations)),
	}
	for _, t := range translations {
		v.Translations = append(v.Translations, BlogTranslationView{
			Language: t.Language,
			Title:    t.Title,
			Excerpt:  t.Excerpt,
			Content:  t.Content,
		})
	}
	if len(v.Translations) > 0 {
		v.Title = v.Translations[0].Title
	}
	return v
}

// NewProgramView copies p and its relations into a view. images resolves
// gallery item images by id; p is not modified.
func NewProgramView(p models.Program, img *models.Image, translations []models.ProgramTranslation, gallery []models.GalleryItem, images map[uint]*models.Image, r URLResolver) ProgramView {
	v := ProgramView{
		ID:           p.ID,
		Slug:         p.Slug,
		Category:     p.Category,
		Status:       p.Status,
		SortOrder:    p.SortOrder,
		Image:        NewImageView(img, r),
		Translations: make([]ProgramTranslationView, 0, len(translations)),
		Gallery:      make([]GalleryItemView, 0, len(gallery)),
	}
	for _, t := range translations {
		v.Translations = append(v.Translations, ProgramTranslationView{
			Language:    t.Language,
			Title:       t.Title,
			Summary:     t.Summary,
			Description: t.Description,
		})
	}
	if len(v.Translations) > 0 {
		v.Title = v.Translations[0].Title
	}
	for _, g := range gallery {
		gi := g.Image
		if gi == nil {
			gi = images[g.ImageID]
		}
		v.Gallery = append(v.Gallery, GalleryItemView{
			ID:       g.ID,
			Caption:  g.Caption,
			Position: g.Position,
			Image:    NewImageView(gi, r),
		})
	}
	return v
}
