package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDuplicateKey means an article with the same link is already stored.
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrInvalidArticle = errors.New("article requires a title and a link")
)

const tagBatchSize = 500

var articleColumns = []string{
	"id", "title", "summary", "link", "source", "category",
	"published_at", "image_url", "author", "origin_feed", "ingested_at",
}

var insertColumns = append(append([]string{}, articleColumns...),
	"title_folded", "summary_folded", "source_folded", "category_folded")

var _ ArticleRepository = (*ArticleStore)(nil)

// ArticleStore persists articles in SQLite. The UNIQUE constraint on link
// is what guarantees uniqueness; Exists is only a shortcut.
type ArticleStore struct {
	db *DB
}

func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Insert stores a new article and its tags in one transaction and returns
// the assigned id. A link that is already stored yields ErrDuplicateKey.
func (s *ArticleStore) Insert(ctx context.Context, article Article) (string, error) {
	article.Title = strings.TrimSpace(article.Title)
	article.Link = strings.TrimSpace(article.Link)
	if article.Title == "" || article.Link == "" {
		return "", ErrInvalidArticle
	}

	id := uuid.NewString()
	ingestedAt := article.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.InsertInto("articles").
		Cols(insertColumns...).
		Values(
			id, article.Title, article.Summary, article.Link, article.Source, article.Category,
			toNullUnix(article.PublishedAt), article.ImageURL, article.Author, article.OriginFeed, ingestedAt.UnixNano(),
			fold(article.Title), fold(article.Summary), fold(article.Source), fold(article.Category),
		)

	query, args := ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("failed to insert article: %w", err)
	}

	tags := lo.Filter(article.Tags, func(tag string, _ int) bool {
		return strings.TrimSpace(tag) != ""
	})
	if len(tags) > 0 {
		tb := sqlbuilder.SQLite.NewInsertBuilder()
		tb.InsertInto("article_tags").Cols("article_id", "position", "tag")
		for i, tag := range tags {
			tb.Values(id, i, strings.TrimSpace(tag))
		}

		query, args := tb.Build()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("failed to insert article tags: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateKey
		}
		return "", fmt.Errorf("failed to commit article: %w", err)
	}

	return id, nil
}

// Exists reports whether an article with exactly this link is stored.
func (s *ArticleStore) Exists(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM articles WHERE link = ? LIMIT 1", strings.TrimSpace(link)).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check article existence: %w", err)
	}
	return true, nil
}

// Query returns matching articles, newest published first. Undated articles
// come after all dated ones; ties fall back to ingestion time.
func (s *ArticleStore) Query(ctx context.Context, filter ArticleFilter) ([]Article, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(articleColumns...).From("articles")
	applyFilter(sb, filter)
	sb.OrderBy("published_at IS NULL", "published_at DESC", "ingested_at DESC", "id")

	if filter.Limit > 0 {
		sb.Limit(filter.Limit)
		if filter.Offset > 0 {
			sb.Offset(filter.Offset)
		}
	}

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	if err := s.loadTags(ctx, articles); err != nil {
		return nil, err
	}

	return articles, nil
}

func (s *ArticleStore) Count(ctx context.Context, filter ArticleFilter) (int, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("COUNT(*)").From("articles")
	applyFilter(sb, filter)

	query, args := sb.Build()

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

// FindByID returns nil when no article has this id.
func (s *ArticleStore) FindByID(ctx context.Context, id string) (*Article, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(articleColumns...).From("articles").Where(sb.Equal("id", id))

	query, args := sb.Build()
	article, err := scanArticle(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	articles := []Article{article}
	if err := s.loadTags(ctx, articles); err != nil {
		return nil, err
	}

	return &articles[0], nil
}

func (s *ArticleStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var lastIngested sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(ingested_at) FROM articles").
		Scan(&stats.TotalArticles, &lastIngested)
	if err != nil {
		return nil, fmt.Errorf("failed to get article stats: %w", err)
	}
	stats.LastIngested = fromNullUnix(lastIngested)

	if stats.Categories, err = s.countBy(ctx, "category"); err != nil {
		return nil, err
	}
	if stats.Sources, err = s.countBy(ctx, "source"); err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *ArticleStore) countBy(ctx context.Context, column string) ([]GroupCount, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select(column, "COUNT(*) AS total").From("articles").GroupBy(column).OrderBy("total DESC", column)

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles by %s: %w", column, err)
	}
	defer rows.Close()

	counts := []GroupCount{}
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Name, &gc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", column, err)
		}
		counts = append(counts, gc)
	}

	return counts, rows.Err()
}

func (s *ArticleStore) loadTags(ctx context.Context, articles []Article) error {
	if len(articles) == 0 {
		return nil
	}

	tags := make(map[string][]string, len(articles))
	ids := lo.Map(articles, func(a Article, _ int) any { return a.ID })

	for _, batch := range lo.Chunk(ids, tagBatchSize) {
		sb := sqlbuilder.SQLite.NewSelectBuilder()
		sb.Select("article_id", "tag").
			From("article_tags").
			Where(sb.In("article_id", batch...)).
			OrderBy("article_id", "position")

		query, args := sb.Build()
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to load article tags: %w", err)
		}

		for rows.Next() {
			var articleID, tag string
			if err := rows.Scan(&articleID, &tag); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan article tag: %w", err)
			}
			tags[articleID] = append(tags[articleID], tag)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("error iterating tag rows: %w", err)
		}
	}

	for i := range articles {
		articles[i].Tags = tags[articles[i].ID]
		if articles[i].Tags == nil {
			articles[i].Tags = []string{}
		}
	}

	return nil
}

func applyFilter(sb *sqlbuilder.SelectBuilder, filter ArticleFilter) {
	if strings.TrimSpace(filter.Category) != "" {
		sb.Where(containsExpr(sb, "category_folded", filter.Category))
	}
	if strings.TrimSpace(filter.Source) != "" {
		sb.Where(containsExpr(sb, "source_folded", filter.Source))
	}
	if strings.TrimSpace(filter.Search) != "" {
		sb.Where(sb.Or(
			containsExpr(sb, "title_folded", filter.Search),
			containsExpr(sb, "summary_folded", filter.Search),
		))
	}

	// Source preferences only narrow a reader's preferred categories.
	categories := foldAll(filter.PreferredCategories)
	if len(categories) == 0 {
		return
	}
	sb.Where(sb.In("category_folded", categories...))
	if sources := foldAll(filter.PreferredSources); len(sources) > 0 {
		sb.Where(sb.In("source_folded", sources...))
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsExpr(sb *sqlbuilder.SelectBuilder, column, value string) string {
	pattern := "%" + likeEscaper.Replace(fold(value)) + "%"
	return fmt.Sprintf(`%s LIKE %s ESCAPE '\'`, column, sb.Var(pattern))
}

// fold produces the stored comparison form used for case-insensitive
// matching. Caser is not safe for concurrent use, so one is made per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func foldAll(values []string) []any {
	folded := lo.FilterMap(values, func(v string, _ int) (string, bool) {
		f := fold(v)
		return f, f != ""
	})
	return lo.ToAnySlice(lo.Uniq(folded))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (Article, error) {
	var article Article
	var publishedAt sql.NullInt64
	var ingestedAt int64

	err := row.Scan(
		&article.ID, &article.Title, &article.Summary, &article.Link, &article.Source, &article.Category,
		&publishedAt, &article.ImageURL, &article.Author, &article.OriginFeed, &ingestedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Article{}, err
		}
		return Article{}, fmt.Errorf("failed to scan article row: %w", err)
	}

	article.PublishedAt = fromNullUnix(publishedAt)
	article.IngestedAt = time.Unix(0, ingestedAt).UTC()

	return article, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func toNullUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}
