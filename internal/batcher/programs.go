package batcher

import (
	"context"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ListPrograms returns one page of programs with cover image, translations
// and gallery attached. Gallery images share the cover image batch, so the
// image kind costs a single round trip; it runs after the gallery query
// because gallery rows carry the remaining image ids.
func (b *Batcher) ListPrograms(ctx context.Context, q content.Query) (content.Page[content.ProgramView], error) {
	q = q.Normalize()
	key := CacheKey(EntityPrograms, q)

	if q.UseCache {
		if page, ok := lookup[content.ProgramView](b, EntityPrograms, key); ok {
			return page, nil
		}
	}

	var (
		programs []models.Program
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		programs, err = roundTrip(gctx, b, EntityPrograms, "page", func(ctx context.Context) ([]models.Program, error) {
			return b.ds.FindPrograms(ctx, q.Filter, q.Offset(), q.Limit)
		})
		return err
	})
	g.Go(func() error {
		var err error
		total, err = roundTrip(gctx, b, EntityPrograms, "count", func(ctx context.Context) (int64, error) {
			return b.ds.CountPrograms(ctx, q.Filter)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return content.Page[content.ProgramView]{}, err
	}

	if len(programs) == 0 {
		page := content.NewPage[content.ProgramView](nil, total, q.Page, q.Limit)
		if q.UseCache {
			store(b, key, page, b.opts.EmptyTTL)
		}
		return page, nil
	}

	programIDs := make([]uint, 0, len(programs))
	var imageIDs []uint
	for _, p := range programs {
		programIDs = append(programIDs, p.ID)
		if p.ImageID != nil {
			imageIDs = append(imageIDs, *p.ImageID)
		}
	}
	programIDs = distinct(programIDs)

	var (
		translations []models.ProgramTranslation
		gallery      []models.GalleryItem
	)
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		translations, err = roundTrip(gctx, b, EntityPrograms, "translations", func(ctx context.Context) ([]models.ProgramTranslation, error) {
			return b.ds.FindProgramTranslations(ctx, programIDs, q.Language)
		})
		return err
	})
	g.Go(func() error {
		var err error
		gallery, err = roundTrip(gctx, b, EntityPrograms, "gallery", func(ctx context.Context) ([]models.GalleryItem, error) {
			return b.ds.FindGalleryItems(ctx, programIDs)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return content.Page[content.ProgramView]{}, err
	}

	for _, item := range gallery {
		imageIDs = append(imageIDs, item.ImageID)
	}
	imageIDs = distinct(imageIDs)

	var images []models.Image
	if len(imageIDs) > 0 {
		var err error
		images, err = roundTrip(ctx, b, EntityPrograms, "images", func(ctx context.Context) ([]models.Image, error) {
			return b.ds.FindImagesByIDs(ctx, imageIDs)
		})
		if err != nil {
			return content.Page[content.ProgramView]{}, err
		}
	}

	imageByID := indexImages(images)
	translationsByProgram := make(map[uint][]models.ProgramTranslation, len(programIDs))
	for _, t := range translations {
		translationsByProgram[t.ProgramID] = append(translationsByProgram[t.ProgramID], t)
	}
	galleryByProgram := make(map[uint][]models.GalleryItem, len(programIDs))
	for _, item := range gallery {
		galleryByProgram[item.ProgramID] = append(galleryByProgram[item.ProgramID], item)
	}

	items := make([]content.ProgramView, 0, len(programs))
	for _, p := range programs {
		var img *models.Image
		if p.ImageID != nil {
			img = imageByID[*p.ImageID]
		}
		items = append(items, content.NewProgramView(p, img, translationsByProgram[p.ID], galleryByProgram[p.ID], imageByID, b.opts.Resolver))
	}

	page := content.NewPage(items, total, q.Page, q.Limit)
	if q.UseCache {
		store(b, key, page, b.opts.ProgramsTTL)
	}

	b.log.WithFields(logrus.Fields{
		"items":   len(items),
		"total":   total,
		"images":  len(imageIDs),
		"gallery": len(gallery),
	}).Debug("Assembled program page")
	return page, nil
}
