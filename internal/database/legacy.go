package database

import (
	"context"
	"fmt"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
)

// LegacyListBlogs is the original list query: full rows with every relation
// preloaded by gorm. It serves as the fallback for the batched path and
// returns the same page shape.
func (s *Store) LegacyListBlogs(ctx context.Context, q content.Query) (content.Page[content.BlogView], error) {
	q = q.Normalize()

	var total int64
	if err := filtered(s.db.WithContext(ctx).Model(&models.Blog{}), q.Filter).Count(&total).Error; err != nil {
		return content.Page[content.BlogView]{}, fmt.Errorf("count blogs: %w", err)
	}

	var blogs []models.Blog
	err := filtered(s.db.WithContext(ctx), q.Filter).
		Preload("Image").
		Preload("Author").
		Preload("Translations", translationScope(q.Language)).
		Order(blogOrder).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&blogs).Error
	if err != nil {
		return content.Page[content.BlogView]{}, fmt.Errorf("list blogs: %w", err)
	}

	items := make([]content.BlogView, 0, len(blogs))
	for _, b := range blogs {
		items = append(items, content.NewBlogView(b, b.Image, b.Author, b.Translations, s.resolver))
	}
	return content.NewPage(items, total, q.Page, q.Limit), nil
}

// LegacyListPrograms is the program counterpart of LegacyListBlogs.
func (s *Store) LegacyListPrograms(ctx context.Context, q content.Query) (content.Page[content.ProgramView], error) {
	q = q.Normalize()

	var total int64
	if err := filtered(s.db.WithContext(ctx).Model(&models.Program{}), q.Filter).Count(&total).Error; err != nil {
		return content.Page[content.ProgramView]{}, fmt.Errorf("count programs: %w", err)
	}

	var programs []models.Program
	err := filtered(s.db.WithContext(ctx), q.Filter).
		Preload("Image").
		Preload("Translations", translationScope(q.Language)).
		Preload("Gallery", galleryOrder).
		Preload("Gallery.Image").
		Order(programOrder).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&programs).Error
	if err != nil {
		return content.Page[content.ProgramView]{}, fmt.Errorf("list programs: %w", err)
	}

	items := make([]content.ProgramView, 0, len(programs))
	for _, p := range programs {
		items = append(items, content.NewProgramView(p, p.Image, p.Translations, p.Gallery, nil, s.resolver))
	}
	return content.NewPage(items, total, q.Page, q.Limit), nil
}
