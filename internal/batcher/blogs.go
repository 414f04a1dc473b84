package batcher

import (
	"context"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ListBlogs returns one page of blogs with cover image, author and
// translations attached. Data-source errors are returned unchanged.
func (b *Batcher) ListBlogs(ctx context.Context, q content.Query) (content.Page[content.BlogView], error) {
	q = q.Normalize()
	key := CacheKey(EntityBlogs, q)

	if q.UseCache {
		if page, ok := lookup[content.BlogView](b, EntityBlogs, key); ok {
			return page, nil
		}
	}

	var (
		blogs []models.Blog
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blogs, err = roundTrip(gctx, b, EntityBlogs, "page", func(ctx context.Context) ([]models.Blog, error) {
			return b.ds.FindBlogs(ctx, q.Filter, q.Offset(), q.Limit)
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = roundTrip(gctx, b, EntityBlogs, "count", func(ctx context.Context) (int64, error) {
			return b.ds.CountBlogs(ctx, q.Filter)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return content.Page[content.BlogView]{}, err
	}

	if len(blogs) == 0 {
		page := content.NewPage[content.BlogView](nil, total, q.Page, q.Limit)
		if q.UseCache {
			store(b, key, page, b.opts.EmptyTTL)
		}
		return page, nil
	}

	blogIDs := make([]uint, 0, len(blogs))
	var imageIDs, authorIDs []uint
	for _, blog := range blogs {
		blogIDs = append(blogIDs, blog.ID)
		if blog.ImageID != nil {
			imageIDs = append(imageIDs, *blog.ImageID)
		}
		if blog.AuthorID != nil {
			authorIDs = append(authorIDs, *blog.AuthorID)
		}
	}
	blogIDs = distinct(blogIDs)
	imageIDs = distinct(imageIDs)
	authorIDs = distinct(authorIDs)

	var (
		images       []models.Image
		authors      []models.Author
		translations []models.BlogTranslation
	)
	g, gctx = errgroup.WithContext(ctx)
	if len(imageIDs) > 0 {
		g.Go(func() error {
			var err error
			images, err = roundTrip(gctx, b, EntityBlogs, "images", func(ctx context.Context) ([]models.Image, error) {
				return b.ds.FindImagesByIDs(ctx, imageIDs)
			})
			return err
		})
	}
	if len(authorIDs) > 0 {
		g.Go(func() error {
			var err error
			authors, err = roundTrip(gctx, b, EntityBlogs, "authors", func(ctx context.Context) ([]models.Author, error) {
				return b.ds.FindAuthorsByIDs(ctx, authorIDs)
			})
			return err
		})
	}
	g.Go(func() error {
		var err error
		translations, err = roundTrip(gctx, b, EntityBlogs, "translations", func(ctx context.Context) ([]models.BlogTranslation, error) {
			return b.ds.FindBlogTranslations(ctx, blogIDs, q.Language)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return content.Page[content.BlogView]{}, err
	}

	imageByID := indexImages(images)
	authorByID := make(map[uint]*models.Author, len(authors))
	for i := range authors {
		authorByID[authors[i].ID] = &authors[i]
	}
	translationsByBlog := make(map[uint][]models.BlogTranslation, len(blogIDs))
	for _, t := range translations {
		translationsByBlog[t.BlogID] = append(translationsByBlog[t.BlogID], t)
	}

	items := make([]content.BlogView, 0, len(blogs))
	for _, blog := range blogs {
		var img *models.Image
		if blog.ImageID != nil {
			img = imageByID[*blog.ImageID]
		}
		var author *models.Author
		if blog.AuthorID != nil {
			author = authorByID[*blog.AuthorID]
		}
		items = append(items, content.NewBlogView(blog, img, author, translationsByBlog[blog.ID], b.opts.Resolver))
	}

	page := content.NewPage(items, total, q.Page, q.Limit)
	if q.UseCache {
		store(b, key, page, b.opts.BlogsTTL)
	}

	b.log.WithFields(logrus.Fields{
		"items":   len(items),
		"total":   total,
		"images":  len(imageIDs),
		"authors": len(authorIDs),
	}).Debug("Assembled blog page")
	return page, nil
}
