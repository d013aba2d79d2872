package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, type, parent_code FROM locations`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	items := make([]Location, 0)
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.Code, &loc.Name, &loc.Type, &loc.ParentCode); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		items = append(items, loc)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CountLocationsByType(ctx context.Context, locationType string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM locations WHERE type=$1`, locationType).Scan(&count); err != nil {
		return 0, fmt.Errorf("count locations: %w", err)
	}
	return count, nil
}

// ReplaceLocations swaps the whole table for nodes inside one transaction.
// nodes must be ordered parents first.
func (s *PostgresStore) ReplaceLocations(ctx context.Context, nodes []Location) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET location_code=NULL WHERE location_code IS NOT NULL`); err != nil {
			return fmt.Errorf("detach user locations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM locations`); err != nil {
			return fmt.Errorf("clear locations: %w", err)
		}
		for _, node := range nodes {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO locations (code, name, type, parent_code) VALUES ($1, $2, $3, $4)
			`, node.Code, node.Name, node.Type, node.ParentCode); err != nil {
				return fmt.Errorf("insert location %s: %w", node.Code, err)
			}
		}
		return nil
	})
}
