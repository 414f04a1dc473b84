package database

import (
	"context"
	"fmt"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
	"gorm.io/gorm"
)

var (
	blogColumns = []string{
		"id", "slug", "category", "status", "featured",
		"image_id", "author_id", "published_at", "created_at", "updated_at",
	}
	programColumns = []string{
		"id", "slug", "category", "status", "image_id",
		"sort_order", "created_at", "updated_at",
	}
)

const (
	blogOrder    = "published_at DESC, id DESC"
	programOrder = "sort_order ASC, id ASC"
)

// Store reads content through gorm. It implements batcher.DataSource and
// also carries the legacy Preload-based list queries used as fallbacks.
type Store struct {
	db       *gorm.DB
	resolver content.URLResolver
}

func NewStore(db *gorm.DB, resolver content.URLResolver) *Store {
	return &Store{db: db, resolver: resolver}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func filtered(db *gorm.DB, filter content.Filter) *gorm.DB {
	if len(filter) > 0 {
		db = db.Where(map[string]interface{}(filter))
	}
	return db
}

func (s *Store) FindBlogs(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Blog, error) {
	var blogs []models.Blog
	err := filtered(s.db.WithContext(ctx).Model(&models.Blog{}), filter).
		Select(blogColumns).
		Order(blogOrder).
		Offset(offset).
		Limit(limit).
		Find(&blogs).Error
	if err != nil {
		return nil, fmt.Errorf("find blogs: %w", err)
	}
	return blogs, nil
}

func (s *Store) CountBlogs(ctx context.Context, filter content.Filter) (int64, error) {
	var total int64
	if err := filtered(s.db.WithContext(ctx).Model(&models.Blog{}), filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count blogs: %w", err)
	}
	return total, nil
}

func (s *Store) FindPrograms(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Program, error) {
	var programs []models.Program
	err := filtered(s.db.WithContext(ctx).Model(&models.Program{}), filter).
		Select(programColumns).
		Order(programOrder).
		Offset(offset).
		Limit(limit).
		Find(&programs).Error
	if err != nil {
		return nil, fmt.Errorf("find programs: %w", err)
	}
	return programs, nil
}

func (s *Store) CountPrograms(ctx context.Context, filter content.Filter) (int64, error) {
	var total int64
	if err := filtered(s.db.WithContext(ctx).Model(&models.Program{}), filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count programs: %w", err)
	}
	return total, nil
}

func (s *Store) FindImagesByIDs(ctx context.Context, ids []uint) ([]models.Image, error) {
	var images []models.Image
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("find images: %w", err)
	}
	return images, nil
}

func (s *Store) FindAuthorsByIDs(ctx context.Context, ids []uint) ([]models.Author, error) {
	var authors []models.Author
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&authors).Error; err != nil {
		return nil, fmt.Errorf("find authors: %w", err)
	}
	return authors, nil
}

func translationScope(language string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if language != "" {
			db = db.Where("language = ?", language)
		}
		return db.Order("id ASC")
	}
}

func (s *Store) FindBlogTranslations(ctx context.Context, blogIDs []uint, language string) ([]models.BlogTranslation, error) {
	var translations []models.BlogTranslation
	err := s.db.WithContext(ctx).
		Scopes(translationScope(language)).
		Where("blog_id IN ?", blogIDs).
		Find(&translations).Error
	if err != nil {
		return nil, fmt.Errorf("find blog translations: %w", err)
	}
	return translations, nil
}

func (s *Store) FindProgramTranslations(ctx context.Context, programIDs []uint, language string) ([]models.ProgramTranslation, error) {
	var translations []models.ProgramTranslation
	err := s.db.WithContext(ctx).
		Scopes(translationScope(language)).
		Where("program_id IN ?", programIDs).
		Find(&translations).Error
	if err != nil {
		return nil, fmt.Errorf("find program translations: %w", err)
	}
	return translations, nil
}

func galleryOrder(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (s *Store) FindGalleryItems(ctx context.Context, programIDs []uint) ([]models.GalleryItem, error) {
	var items []models.GalleryItem
	err := s.db.WithContext(ctx).
		Scopes(galleryOrder).
		Where("program_id IN ?", programIDs).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("find gallery items: %w", err)
	}
	return items, nil
}
