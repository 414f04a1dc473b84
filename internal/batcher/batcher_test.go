package batcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/sdko-org/content-query/internal/batcher/batchertest"
	"github.com/sdko-org/content-query/internal/cache"
	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBatcher(src *batchertest.Source) (*Batcher, *cache.Cache) {
	logger, _ := test.NewNullLogger()
	c := cache.New()
	return New(logger, src, c, Options{}), c
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestListBlogs_ExampleScenarioUsesTwoFollowUpQueries(t *testing.T) {
	src := batchertest.NewFixture(6)
	b, _ := newTestBatcher(src)

	page, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 6})
	require.NoError(t, err)

	assert.Len(t, page.Items, 6)
	assert.Equal(t, 1, src.Calls("FindBlogs"))
	assert.Equal(t, 1, src.Calls("CountBlogs"))
	assert.Equal(t, 1, src.Calls("FindImagesByIDs"))
	assert.Equal(t, 1, src.Calls("FindBlogTranslations"))
	assert.Equal(t, 0, src.Calls("FindAuthorsByIDs"), "no author ids collected")
	assert.Equal(t, 4, src.TotalCalls())

	for _, item := range page.Items {
		require.NotNil(t, item.Image)
		assert.Len(t, item.Translations, 2)
		assert.Nil(t, item.Author)
	}
}

func TestListBlogs_RoundTripsIndependentOfPageSize(t *testing.T) {
	for _, n := range []int{1, 10, 50} {
		src := batchertest.NewFixture(n)
		src.Authors = []models.Author{{ID: 1, Name: "Ada", Slug: "ada"}, {ID: 2, Name: "Lin", Slug: "lin"}}
		for i := range src.Blogs {
			author := uint(i%2 + 1)
			src.Blogs[i].AuthorID = &author
		}
		b, _ := newTestBatcher(src)

		page, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 50})
		require.NoError(t, err)

		assert.Len(t, page.Items, n)
		assert.Equal(t, 2+3, src.TotalCalls(), "page size %d", n)
		assert.Equal(t, "ada", page.Items[0].Author.Slug)
	}
}

func TestListBlogs_CacheHitSkipsDataSource(t *testing.T) {
	src := batchertest.NewFixture(3)
	b, _ := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 10, Language: "en", UseCache: true}

	first, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)
	calls := src.TotalCalls()

	second, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, calls, src.TotalCalls())
	assert.Equal(t, mustJSON(t, first), mustJSON(t, second))
}

func TestListBlogs_WithoutCacheAlwaysQueries(t *testing.T) {
	src := batchertest.NewFixture(2)
	b, c := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 10}

	_, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)
	_, err = b.ListBlogs(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 2, src.Calls("FindBlogs"))
	assert.Equal(t, 0, c.Len())
}

func TestListBlogs_CachedPageIsNotShared(t *testing.T) {
	src := batchertest.NewFixture(2)
	b, _ := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 10, UseCache: true}

	first, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)
	first.Items[0].Slug = "mutated"

	second, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "blog-1", second.Items[0].Slug)
}

func TestListBlogs_LanguageFiltersTranslations(t *testing.T) {
	src := batchertest.NewFixture(2)
	b, _ := newTestBatcher(src)

	page, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 10, Language: "fr"})
	require.NoError(t, err)

	require.Len(t, page.Items[0].Translations, 1)
	assert.Equal(t, "fr", page.Items[0].Translations[0].Language)
	assert.Equal(t, "Blog 1 (fr)", page.Items[0].Title)
}

func TestListBlogs_EmptyPageIsCachedWithoutRelationQueries(t *testing.T) {
	src := batchertest.NewFixture(3)
	b, c := newTestBatcher(src)
	q := content.Query{Page: 5, Limit: 10, UseCache: true}

	page, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)

	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, src.TotalCalls())
	assert.Equal(t, 1, c.Len())
}

func TestListBlogs_Pagination(t *testing.T) {
	src := batchertest.NewFixture(13)
	b, _ := newTestBatcher(src)

	page, err := b.ListBlogs(context.Background(), content.Query{Page: 2, Limit: 6})
	require.NoError(t, err)

	assert.Len(t, page.Items, 6)
	assert.Equal(t, "blog-7", page.Items[0].Slug)
	assert.Equal(t, content.Pagination{Page: 2, Limit: 6, Total: 13, Pages: 3}, page.Pagination)
}

func TestListBlogs_MissingRelationsDefault(t *testing.T) {
	src := batchertest.NewFixture(1)
	missing := uint(999)
	src.Blogs[0].ImageID = &missing
	src.BlogTranslations = nil
	b, _ := newTestBatcher(src)

	page, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 10})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].Image)
	assert.NotNil(t, page.Items[0].Translations)
	assert.Empty(t, page.Items[0].Translations)
	assert.Contains(t, mustJSON(t, page.Items[0]), `"image":null`)
}

func TestListBlogs_DoesNotMutateBaseRows(t *testing.T) {
	src := batchertest.NewFixture(2)
	before := mustJSON(t, src.Blogs)
	b, _ := newTestBatcher(src)

	_, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, before, mustJSON(t, src.Blogs))
}

func TestListBlogs_PropagatesDataSourceErrors(t *testing.T) {
	boom := errors.New("connection reset")
	for _, method := range []string{"FindBlogs", "CountBlogs", "FindImagesByIDs", "FindBlogTranslations"} {
		src := batchertest.NewFixture(2)
		src.Errors = map[string]error{method: boom}
		b, c := newTestBatcher(src)

		_, err := b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 10, UseCache: true})

		assert.ErrorIs(t, err, boom, method)
		assert.Equal(t, 0, c.Len(), "failed page must not be cached (%s)", method)
	}
}

func TestListPrograms_BatchesGalleryImagesWithCover(t *testing.T) {
	src := batchertest.NewFixture(6)
	b, _ := newTestBatcher(src)

	page, err := b.ListPrograms(context.Background(), content.Query{Page: 1, Limit: 6, Language: "en"})
	require.NoError(t, err)

	assert.Equal(t, 5, src.TotalCalls())
	assert.Equal(t, 1, src.Calls("FindImagesByIDs"))
	require.Len(t, page.Items, 6)
	for _, p := range page.Items {
		require.NotNil(t, p.Image)
		require.Len(t, p.Gallery, 2)
		assert.NotNil(t, p.Gallery[0].Image)
		assert.Len(t, p.Translations, 1)
	}
}

func TestListPrograms_MatchesLegacyShape(t *testing.T) {
	src := batchertest.NewFixture(4)
	b, _ := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 3, Language: "en"}

	optimized, err := b.ListPrograms(context.Background(), q)
	require.NoError(t, err)
	legacy, err := src.LegacyListPrograms(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, mustJSON(t, legacy), mustJSON(t, optimized))
}

func TestListBlogs_MatchesLegacyShape(t *testing.T) {
	src := batchertest.NewFixture(4)
	b, _ := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 3}

	optimized, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)
	legacy, err := src.LegacyListBlogs(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, mustJSON(t, legacy), mustJSON(t, optimized))
}

func TestListPrograms_CacheTTL(t *testing.T) {
	src := batchertest.NewFixture(1)
	logger, _ := test.NewNullLogger()
	c := cache.New()
	b := New(logger, src, c, Options{ProgramsTTL: time.Millisecond})
	q := content.Query{Page: 1, Limit: 10, UseCache: true}

	_, err := b.ListPrograms(context.Background(), q)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = b.ListPrograms(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, 2, src.Calls("FindPrograms"))
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(EntityBlogs, content.Query{
		Filter:   content.Filter{"status": "published", "category": "news"},
		Page:     1,
		Limit:    6,
		Language: "en",
	})
	b := CacheKey(EntityBlogs, content.Query{
		Filter:   content.Filter{"category": "news", "status": "published"},
		Page:     0,
		Limit:    6,
		Language: "en",
	})

	assert.Equal(t, a, b)
	assert.Equal(t, `blogs:list:{"category":"news","status":"published"}:p1:l6:en`, a)
	assert.Equal(t, "programs:list:{}:p1:l10:", CacheKey(EntityPrograms, content.Query{}))
}

func TestLookup_DropsUnreadableEntries(t *testing.T) {
	src := batchertest.NewFixture(1)
	b, c := newTestBatcher(src)
	q := content.Query{Page: 1, Limit: 10, UseCache: true}
	c.Set(CacheKey(EntityBlogs, q), "not bytes", time.Minute)

	page, err := b.ListBlogs(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	assert.Equal(t, 1, src.Calls("FindBlogs"))
}

func TestListBlogs_DataSourcePanicBecomesError(t *testing.T) {
	src := batchertest.NewFixture(3)
	src.Panics = map[string]interface{}{"FindImagesByIDs": "assignment to entry in nil map"}
	b, c := newTestBatcher(src)

	var err error
	require.NotPanics(t, func() {
		_, err = b.ListBlogs(context.Background(), content.Query{Page: 1, Limit: 10, UseCache: true})
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "blogs.images panicked")
	assert.Equal(t, 0, c.Len())
}

func TestListPrograms_DataSourcePanicBecomesError(t *testing.T) {
	src := batchertest.NewFixture(2)
	src.Panics = map[string]interface{}{"CountPrograms": "boom"}
	b, _ := newTestBatcher(src)

	var err error
	require.NotPanics(t, func() {
		_, err = b.ListPrograms(context.Background(), content.Query{Page: 1, Limit: 10})
	})
	assert.ErrorContains(t, err, "programs.count panicked: boom")
}
