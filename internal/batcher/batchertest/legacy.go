package batchertest

import (
	"context"
	"fmt"
	"time"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
)

// LegacyListBlogs mimics the unoptimized handler: it loads relations row by
// row. It counts as a single call named "LegacyListBlogs".
func (s *Source) LegacyListBlogs(ctx context.Context, q content.Query) (content.Page[content.BlogView], error) {
	if err := s.hit("LegacyListBlogs"); err != nil {
		return content.Page[content.BlogView]{}, err
	}
	q = q.Normalize()
	all := s.filteredBlogs(q.Filter)
	rows := window(all, q.Offset(), q.Limit)

	items := make([]content.BlogView, 0, len(rows))
	for _, b := range rows {
		var img *models.Image
		if b.ImageID != nil {
			img = s.image(*b.ImageID)
		}
		var author *models.Author
		if b.AuthorID != nil {
			for i := range s.Authors {
				if s.Authors[i].ID == *b.AuthorID {
					author = &s.Authors[i]
				}
			}
		}
		var translations []models.BlogTranslation
		for _, t := range s.BlogTranslations {
			if t.BlogID == b.ID && (q.Language == "" || t.Language == q.Language) {
				translations = append(translations, t)
			}
		}
		items = append(items, content.NewBlogView(b, img, author, translations, nil))
	}
	return content.NewPage(items, int64(len(all)), q.Page, q.Limit), nil
}

// LegacyListPrograms is the program counterpart of LegacyListBlogs.
func (s *Source) LegacyListPrograms(ctx context.Context, q content.Query) (content.Page[content.ProgramView], error) {
	if err := s.hit("LegacyListPrograms"); err != nil {
		return content.Page[content.ProgramView]{}, err
	}
	q = q.Normalize()
	all := s.filteredPrograms(q.Filter)
	rows := window(all, q.Offset(), q.Limit)

	items := make([]content.ProgramView, 0, len(rows))
	for _, p := range rows {
		var img *models.Image
		if p.ImageID != nil {
			img = s.image(*p.ImageID)
		}
		var translations []models.ProgramTranslation
		for _, t := range s.ProgramTranslations {
			if t.ProgramID == p.ID && (q.Language == "" || t.Language == q.Language) {
				translations = append(translations, t)
			}
		}
		var gallery []models.GalleryItem
		for _, g := range s.Gallery {
			if g.ProgramID == p.ID {
				g.Image = s.image(g.ImageID)
				gallery = append(gallery, g)
			}
		}
		items = append(items, content.NewProgramView(p, img, translations, gallery, nil, nil))
	}
	return content.NewPage(items, int64(len(all)), q.Page, q.Limit), nil
}

func (s *Source) image(id uint) *models.Image {
	for i := range s.Images {
		if s.Images[i].ID == id {
			return &s.Images[i]
		}
	}
	return nil
}

// NewFixture builds a source with n published blogs, each with its own cover
// image and an "en" and "fr" translation, and n programs, each with a cover
// image, two translations and two gallery items. No blog has an author.
func NewFixture(n int) *Source {
	s := &Source{}
	published := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var imageID, translationID, galleryID uint

	nextImage := func(prefix string, i int) uint {
		imageID++
		s.Images = append(s.Images, models.Image{
			ID:         imageID,
			StorageKey: fmt.Sprintf("%s/%d.jpg", prefix, i),
			Alt:        fmt.Sprintf("%s %d", prefix, i),
			Width:      1200,
			Height:     800,
		})
		return imageID
	}

	for i := 1; i <= n; i++ {
		img := nextImage("blogs", i)
		s.Blogs = append(s.Blogs, models.Blog{
			ID:          uint(i),
			Slug:        fmt.Sprintf("blog-%d", i),
			Category:    "news",
			Status:      "published",
			ImageID:     &img,
			PublishedAt: published.Add(-time.Duration(i) * time.Hour),
		})
		for _, lang := range []string{"en", "fr"} {
			translationID++
			s.BlogTranslations = append(s.BlogTranslations, models.BlogTranslation{
				ID:       translationID,
				BlogID:   uint(i),
				Language: lang,
				Title:    fmt.Sprintf("Blog %d (%s)", i, lang),
				Excerpt:  "excerpt",
			})
		}
	}

	for i := 1; i <= n; i++ {
		img := nextImage("programs", i)
		s.Programs = append(s.Programs, models.Program{
			ID:        uint(i),
			Slug:      fmt.Sprintf("program-%d", i),
			Category:  "youth",
			Status:    "published",
			ImageID:   &img,
			SortOrder: i,
		})
		for _, lang := range []string{"en", "fr"} {
			translationID++
			s.ProgramTranslations = append(s.ProgramTranslations, models.ProgramTranslation{
				ID:        translationID,
				ProgramID: uint(i),
				Language:  lang,
				Title:     fmt.Sprintf("Program %d (%s)", i, lang),
				Summary:   "summary",
			})
		}
		for pos := 1; pos <= 2; pos++ {
			galleryID++
			s.Gallery = append(s.Gallery, models.GalleryItem{
				ID:        galleryID,
				ProgramID: uint(i),
				ImageID:   nextImage("gallery", int(galleryID)),
				Caption:   fmt.Sprintf("Photo %d", pos),
				Position:  pos,
			})
		}
	}
	return s
}
