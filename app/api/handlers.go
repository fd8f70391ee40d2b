package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

func NewHandler(registry *feed.Registry, articleRepo database.ArticleRepository,
	feedRepo database.FeedRepository, runner tasks.RunnerInterface) *Handler {
	return &Handler{
		articleRepo: articleRepo,
		feedRepo:    feedRepo,
		registry:    registry,
		runner:      runner,
		generator:   feed.NewGenerator(),
	}
}

// ListArticles serves the paginated article list. Filters: category,
// source, search, and repeated preferred_category/preferred_source.
func (h *Handler) ListArticles(c *gin.Context) {
	filter := database.ArticleFilter{
		Category:            c.Query("category"),
		Source:              c.Query("source"),
		Search:              c.Query("search"),
		PreferredCategories: splitValues(c.QueryArray("preferred_category")),
		PreferredSources:    splitValues(c.QueryArray("preferred_source")),
	}

	h.respondWithPage(c, filter)
}

func (h *Handler) ListCategoryArticles(c *gin.Context) {
	category := strings.TrimSpace(c.Param("category"))
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing category parameter"})
		return
	}

	h.respondWithPage(c, database.ArticleFilter{Category: category})
}

func (h *Handler) SearchArticles(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	h.respondWithPage(c, database.ArticleFilter{
		Search:   query,
		Category: c.Query("category"),
		Source:   c.Query("source"),
	})
}

func (h *Handler) GetArticle(c *gin.Context) {
	id := c.Param("id")

	article, err := h.articleRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "find_article", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if article == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
		return
	}

	c.JSON(http.StatusOK, toArticleResponse(*article))
}

// GetCategoryFeed renders the latest articles of a category as RSS.
func (h *Handler) GetCategoryFeed(c *gin.Context) {
	category := strings.TrimSpace(c.Param("category"))
	if category == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	articles, err := h.articleRepo.Query(c.Request.Context(), database.ArticleFilter{
		Category: category,
		Limit:    rssItemLimit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "get_category_articles", "category", category, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Title:    category,
		Link:     fmt.Sprintf("%s/categories/%s/articles", baseURL(c), category),
		SelfLink: fmt.Sprintf("%s%s", baseURL(c), c.Request.URL.Path),
	}

	rss, err := h.generator.Run(channel, articles)
	if err != nil {
		slog.Error("RSS generation error", "category", category, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) ListFeeds(c *gin.Context) {
	statuses, err := h.feedRepo.ListFeeds(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entries := h.registry.ListFeeds()
	feeds := make([]FeedResponse, 0, len(entries))

	for _, entry := range entries {
		response := FeedResponse{
			Source:         entry.Source,
			Category:       entry.Category,
			URL:            entry.URL,
			ExtractSummary: entry.ExtractSummary,
			Filters:        len(entry.Filters),
		}
		if entry.Timeout > 0 {
			response.Timeout = entry.Timeout.String()
		}

		status, ok := lo.Find(statuses, func(s database.FeedStatus) bool {
			return strings.EqualFold(s.Source, entry.Source) && strings.EqualFold(s.Category, entry.Category)
		})
		if ok {
			response.LastFetchedAt = status.LastFetchedAt
			response.LastSuccessAt = status.LastSuccessAt
			response.LastError = status.LastError
			response.LastFetched = status.LastFetched
			response.LastSaved = status.LastSaved
			response.LastSkipped = status.LastSkipped
			response.LastErrored = status.LastErrored
		}

		feeds = append(feeds, response)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": feeds,
		"total": len(feeds),
	})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":            "ok",
		"timestamp":         time.Now().In(time.Local).Format(time.RFC3339),
		"registered_feeds":  h.registry.Count(),
		"ingestion_running": h.ingesting.Load(),
	}

	feedCount, err := h.feedRepo.GetFeedCount(c.Request.Context())
	if err != nil {
		slog.Error("Health check failed", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["tracked_feeds"] = feedCount

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.articleRepo.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	counts := func(groups []database.GroupCount) map[string]int {
		return lo.Associate(groups, func(g database.GroupCount) (string, int) {
			return g.Name, g.Count
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_articles": stats.TotalArticles,
		"last_ingested":  stats.LastIngested,
		"categories":     counts(stats.Categories),
		"sources":        counts(stats.Sources),
		"feeds":          h.registry.Count(),
	})
}

// TriggerIngest runs ingestion synchronously and returns the report. With
// source and category query parameters only that feed is ingested.
func (h *Handler) TriggerIngest(c *gin.Context) {
	source, category := c.Query("source"), c.Query("category")
	if source != "" || category != "" {
		entry, ok := h.registry.GetFeed(source, category)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
			return
		}

		var report tasks.Report
		ran := h.runExclusive(func() {
			startedAt := time.Now().UTC()
			feedReport := h.runner.IngestFeed(c.Request.Context(), entry)
			report = tasks.Report{
				StartedAt: startedAt,
				Duration:  time.Since(startedAt),
				Feeds:     []tasks.FeedReport{feedReport},
			}
		})
		h.respondWithReport(c, report, ran)
		return
	}

	report, ran := h.IngestAll(c.Request.Context())
	h.respondWithReport(c, report, ran)
}

// IngestAll runs a full ingestion pass unless one is already in progress,
// in which case it returns false without running.
func (h *Handler) IngestAll(ctx context.Context) (tasks.Report, bool) {
	var report tasks.Report
	ran := h.runExclusive(func() {
		report = h.runner.IngestAll(ctx)
	})
	return report, ran
}

func (h *Handler) runExclusive(run func()) bool {
	if !h.ingesting.CompareAndSwap(false, true) {
		return false
	}
	defer h.ingesting.Store(false)

	run()
	return true
}

func (h *Handler) respondWithReport(c *gin.Context, report tasks.Report, ran bool) {
	if !ran {
		c.JSON(http.StatusConflict, gin.H{"error": "Ingestion already running"})
		return
	}
	c.JSON(http.StatusOK, IngestResponse{Report: report, Totals: report.Totals()})
}

func (h *Handler) respondWithPage(c *gin.Context, filter database.ArticleFilter) {
	page, pageSize, err := parsePagination(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	total, err := h.articleRepo.Count(ctx, filter)
	if err != nil {
		slog.Error("Database error", "operation", "count_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	articles, err := h.articleRepo.Query(ctx, filter)
	if err != nil {
		slog.Error("Database error", "operation", "query_articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, ArticlePage{
		Count:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		Results:    lo.Map(articles, func(a database.Article, _ int) ArticleResponse { return toArticleResponse(a) }),
	})
}

func parsePagination(c *gin.Context) (int, int, error) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return 0, 0, fmt.Errorf("invalid page: %q", raw)
		}
		page = value
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {
			return 0, 0, fmt.Errorf("invalid page_size: %q", raw)
		}
		pageSize = min(value, maxPageSize)
	}

	return page, pageSize, nil
}

// splitValues accepts both repeated parameters and comma-separated lists.
func splitValues(values []string) []string {
	return lo.FlatMap(values, func(v string, _ int) []string {
		return lo.Compact(lo.Map(strings.Split(v, ","), func(s string, _ int) string {
			return strings.TrimSpace(s)
		}))
	})
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
