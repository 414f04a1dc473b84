package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sdko-org/content-query/internal/content"
	"github.com/sdko-org/content-query/internal/optimizer"
	"github.com/sirupsen/logrus"
)

const defaultStatus = "published"

// LegacySource provides the unbatched list queries used as the fallback
// when the optimized path fails.
type LegacySource interface {
	LegacyListBlogs(ctx context.Context, q content.Query) (content.Page[content.BlogView], error)
	LegacyListPrograms(ctx context.Context, q content.Query) (content.Page[content.ProgramView], error)
}

type ContentHandler struct {
	svc    *optimizer.Service
	legacy LegacySource
	log    *logrus.Entry
}

func NewContentHandler(logger *logrus.Logger, svc *optimizer.Service, legacy LegacySource) *ContentHandler {
	return &ContentHandler{
		svc:    svc,
		legacy: legacy,
		log:    logger.WithField("component", "content_handler"),
	}
}

func (h *ContentHandler) ListBlogs(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r, "category", "featured", "status")
	page, err := h.svc.ListBlogs(r.Context(), q, h.legacy.LegacyListBlogs)
	if err != nil {
		h.log.WithError(err).WithField("query", r.URL.RawQuery).Error("Failed to list blogs")
		writeError(w, http.StatusInternalServerError, "Failed to list blogs")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ContentHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	q := parseQuery(r, "category", "status")
	page, err := h.svc.ListPrograms(r.Context(), q, h.legacy.LegacyListPrograms)
	if err != nil {
		h.log.WithError(err).WithField("query", r.URL.RawQuery).Error("Failed to list programs")
		writeError(w, http.StatusInternalServerError, "Failed to list programs")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// parseQuery reads paging, language and the allowed filter columns from the
// query string. Unparseable numbers fall through to the normalized defaults.
func parseQuery(r *http.Request, filterKeys ...string) content.Query {
	values := r.URL.Query()

	page, _ := strconv.Atoi(values.Get("page"))
	limit, _ := strconv.Atoi(values.Get("limit"))

	filter := content.Filter{"status": defaultStatus}
	for _, key := range filterKeys {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			continue
		}
		if key == "featured" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				continue
			}
			filter[key] = b
			continue
		}
		filter[key] = raw
	}

	return content.Query{
		Filter:   filter,
		Page:     page,
		Limit:    limit,
		Language: values.Get("lang"),
		UseCache: values.Get("nocache") != "1",
	}.Normalize()
}
