package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher with PostgreSQL full-text search over the
// generated pages.fts column.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy is always true: without Postgres nothing else works either.
func (p *PgFTS) Healthy() bool {
	return true
}

// pgReadable mirrors the page read rule: creator, share, or membership.
const pgReadable = `(p.created_by = $2
	OR EXISTS (SELECT 1 FROM page_shares ps WHERE ps.page_id = p.id AND ps.shared_with = $2)
	OR EXISTS (SELECT 1 FROM workspace_members wm WHERE wm.workspace_id = p.workspace_id AND wm.user_id = $2))`

func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}
	limit, offset := normalizeLimits(q)

	tsQuery := "plainto_tsquery('english', $1)"
	where := "p.fts @@ " + tsQuery + " AND " + pgReadable
	args := []any{q.Text, q.UserID}
	if q.FilterWorkspaceID != "" {
		args = append(args, q.FilterWorkspaceID)
		where += fmt.Sprintf(" AND p.workspace_id = $%d", len(args))
	}

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM pages p WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.id, p.title,
			ts_headline('english', p.content, %s, 'MaxFragments=1,MaxWords=30,StartSel=<mark>,StopSel=</mark>'),
			p.workspace_id
		FROM pages p
		WHERE %s
		ORDER BY ts_rank(p.fts, %s) DESC, p.updated_at DESC
		LIMIT %d OFFSET %d`, tsQuery, where, tsQuery, limit, offset), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.PageID, &r.Title, &r.Snippet, &r.WorkspaceID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllPages returns every page with its share recipients for a full
// reindex.
func (p *PgFTS) LoadAllPages(ctx context.Context) ([]PageRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT p.id, p.title, p.content, p.workspace_id, p.created_by, p.is_archived,
			coalesce(string_agg(ps.shared_with::text, ',' ORDER BY ps.shared_with), '')
		FROM pages p
		LEFT JOIN page_shares ps ON ps.page_id = p.id
		GROUP BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	defer rows.Close()

	pages := make([]PageRecord, 0)
	for rows.Next() {
		var (
			rec    PageRecord
			shared string
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Content, &rec.WorkspaceID, &rec.CreatedBy, &rec.IsArchived, &shared); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		rec.SharedWith = splitIDs(shared)
		pages = append(pages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

func splitIDs(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}
