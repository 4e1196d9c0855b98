package aliascache

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/quangvo/agripos/pkg/catalog"
)

// PgDB is the database interface used by [PostgresSource]. Both
// *pgxpool.Pool and *pgx.Conn satisfy it.
type PgDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads the alias list straight from the shop database.
// On-premise deployments use this instead of the HTTP backend so a sync
// works even when the API service is down.
type PostgresSource struct {
	db PgDB
}

// Compile-time interface check.
var _ Source = (*PostgresSource)(nil)

// NewPostgresSource creates a Source over the given connection or pool.
func NewPostgresSource(db PgDB) *PostgresSource {
	return &PostgresSource{db: db}
}

// VoiceAliases implements [Source]. Orphaned rows (NULL product_id) come
// back with a zero ProductID and are treated as no-match by the resolver.
func (s *PostgresSource) VoiceAliases(ctx context.Context) ([]catalog.Alias, error) {
	rows, err := s.db.Query(ctx, `SELECT alias_name, COALESCE(product_id, 0) FROM voice_aliases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("aliascache: query voice_aliases: %w", err)
	}
	defer rows.Close()

	var aliases []catalog.Alias
	for rows.Next() {
		var a catalog.Alias
		if err := rows.Scan(&a.AliasName, &a.ProductID); err != nil {
			return nil, fmt.Errorf("aliascache: scan voice_aliases row: %w", err)
		}
		aliases = append(aliases, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aliascache: iterate voice_aliases: %w", err)
	}
	return aliases, nil
}
