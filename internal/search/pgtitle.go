package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgTitle implements Searcher with a title substring scan over the guidelines
// table. It is the fallback when Meilisearch is absent or down.
type PgTitle struct {
	db *sql.DB
}

func NewPgTitle(db *sql.DB) *PgTitle {
	return &PgTitle{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgTitle) Healthy() bool {
	return true
}

func (p *PgTitle) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + likeEscape(q.Text) + "%"
	rows, err := p.db.QueryContext(context.Background(), `
		SELECT doc->>'GuidanceNumber', doc->>'Title', doc->>'LongTitle',
			doc->>'GuidanceSlug', doc->>'GuidanceType',
			COUNT(*) OVER ()
		FROM guidelines
		WHERE doc->>'LongTitle' ILIKE $1 ESCAPE '\' OR doc->>'Title' ILIKE $1 ESCAPE '\'
		ORDER BY doc->>'GuidanceNumber'
		LIMIT $2 OFFSET $3
	`, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("title search: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	total := 0
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Title, &r.LongTitle, &r.Slug, &r.Type, &total); err != nil {
			return nil, 0, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords reads every guideline for reindexing into Meilisearch.
func (p *PgTitle) LoadAllRecords(ctx context.Context) ([]GuidelineRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT doc->>'GuidanceNumber', doc->>'Title', doc->>'LongTitle',
			doc->>'GuidanceSlug', doc->>'GuidanceType'
		FROM guidelines
	`)
	if err != nil {
		return nil, fmt.Errorf("load guideline records: %w", err)
	}
	defer rows.Close()

	records := []GuidelineRecord{}
	for rows.Next() {
		var rec GuidelineRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.LongTitle, &rec.Slug, &rec.Type); err != nil {
			return nil, fmt.Errorf("scan guideline record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func likeEscape(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
