// Package batchertest provides an in-memory DataSource that counts round
// trips, for tests of the batcher and its callers.
package batchertest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
)

// Source is an in-memory DataSource. Filters match on exact equality of the
// named model fields "category", "status" and "featured".
type Source struct {
	Blogs               []models.Blog
	Programs            []models.Program
	Images              []models.Image
	Authors             []models.Author
	BlogTranslations    []models.BlogTranslation
	ProgramTranslations []models.ProgramTranslation
	Gallery             []models.GalleryItem

	// Errors maps a method name to the error it should return.
	Errors map[string]error
	// Panics maps a method name to a value it should panic with.
	Panics map[string]interface{}

	mu    sync.Mutex
	calls map[string]int
}

func (s *Source) hit(method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[method]++
	if v, ok := s.Panics[method]; ok {
		panic(v)
	}
	return s.Errors[method]
}

// Calls returns how many times method was invoked.
func (s *Source) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls returns the number of round trips across all methods.
func (s *Source) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Source) Reset() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func matches(filter content.Filter, category, status string, featured *bool) bool {
	for k, v := range filter {
		switch k {
		case "category":
			if fmt.Sprint(v) != category {
				return false
			}
		case "status":
			if fmt.Sprint(v) != status {
				return false
			}
		case "featured":
			if featured == nil || v != *featured {
				return false
			}
		}
	}
	return true
}

func window[T any](rows []T, offset, limit int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	out := make([]T, end-offset)
	copy(out, rows[offset:end])
	return out
}

func (s *Source) filteredBlogs(filter content.Filter) []models.Blog {
	var out []models.Blog
	for _, b := range s.Blogs {
		featured := b.Featured
		if matches(filter, b.Category, b.Status, &featured) {
			b.Image, b.Author, b.Translations = nil, nil, nil
			out = append(out, b)
		}
	}
	return out
}

func (s *Source) filteredPrograms(filter content.Filter) []models.Program {
	var out []models.Program
	for _, p := range s.Programs {
		if matches(filter, p.Category, p.Status, nil) {
			p.Image, p.Translations, p.Gallery = nil, nil, nil
			out = append(out, p)
		}
	}
	return out
}

func (s *Source) FindBlogs(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Blog, error) {
	if err := s.hit("FindBlogs"); err != nil {
		return nil, err
	}
	return window(s.filteredBlogs(filter), offset, limit), nil
}

func (s *Source) CountBlogs(ctx context.Context, filter content.Filter) (int64, error) {
	if err := s.hit("CountBlogs"); err != nil {
		return 0, err
	}
	return int64(len(s.filteredBlogs(filter))), nil
}

func (s *Source) FindPrograms(ctx context.Context, filter content.Filter, offset, limit int) ([]models.Program, error) {
	if err := s.hit("FindPrograms"); err != nil {
		return nil, err
	}
	return window(s.filteredPrograms(filter), offset, limit), nil
}

func (s *Source) CountPrograms(ctx context.Context, filter content.Filter) (int64, error) {
	if err := s.hit("CountPrograms"); err != nil {
		return 0, err
	}
	return int64(len(s.filteredPrograms(filter))), nil
}

func idSet(ids []uint) map[uint]bool {
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (s *Source) FindImagesByIDs(ctx context.Context, ids []uint) ([]models.Image, error) {
	if err := s.hit("FindImagesByIDs"); err != nil {
		return nil, err
	}
	set := idSet(ids)
	var out []models.Image
	for _, img := range s.Images {
		if set[img.ID] {
			out = append(out, img)
		}
	}
	return out, nil
}

func (s *Source) FindAuthorsByIDs(ctx context.Context, ids []uint) ([]models.Author, error) {
	if err := s.hit("FindAuthorsByIDs"); err != nil {
		return nil, err
	}
	set := idSet(ids)
	var out []models.Author
	for _, a := range s.Authors {
		if set[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Source) FindBlogTranslations(ctx context.Context, blogIDs []uint, language string) ([]models.BlogTranslation, error) {
	if err := s.hit("FindBlogTranslations"); err != nil {
		return nil, err
	}
	set := idSet(blogIDs)
	var out []models.BlogTranslation
	for _, t := range s.BlogTranslations {
		if set[t.BlogID] && (language == "" || t.Language == language) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Source) FindProgramTranslations(ctx context.Context, programIDs []uint, language string) ([]models.ProgramTranslation, error) {
	if err := s.hit("FindProgramTranslations"); err != nil {
		return nil, err
	}
	set := idSet(programIDs)
	var out []models.ProgramTranslation
	for _, t := range s.ProgramTranslations {
		if set[t.ProgramID] && (language == "" || t.Language == language) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Source) FindGalleryItems(ctx context.Context, programIDs []uint) ([]models.GalleryItem, error) {
	if err := s.hit("FindGalleryItems"); err != nil {
		return nil, err
	}
	set := idSet(programIDs)
	var out []models.GalleryItem
	for _, g := range s.Gallery {
		if set[g.ProgramID] {
			g.Image = nil
			out = append(out, g)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
