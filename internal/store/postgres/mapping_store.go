package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// MappingStore implements domain.MappingStore on the symbol_mappings table.
// Row ranks preserve the asset and exchange order of the source table.
type MappingStore struct {
	pool *pgxpool.Pool
}

// NewMappingStore creates a MappingStore backed by the given pool.
func NewMappingStore(pool *pgxpool.Pool) *MappingStore {
	return &MappingStore{pool: pool}
}

// mappingRecord is one (asset, exchange) cell.
type mappingRecord struct {
	Asset        string
	AssetRank    int
	Exchange     string
	ExchangeRank int
	Pair         string
}

// Load reads the full mapping table.
func (s *MappingStore) Load(ctx context.Context) (*domain.SymbolMapping, error) {
	const query = `
		SELECT asset, asset_rank, exchange, exchange_rank, pair
		FROM symbol_mappings
		ORDER BY asset_rank, exchange_rank`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: load mapping: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByPos[mappingRecord])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan mapping: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("postgres: load mapping: %w", domain.ErrNotFound)
	}
	return buildMapping(records)
}

// buildMapping assembles records sorted by (asset_rank, exchange_rank).
func buildMapping(records []mappingRecord) (*domain.SymbolMapping, error) {
	exchangeRank := make(map[string]int)
	for _, r := range records {
		if prev, ok := exchangeRank[r.Exchange]; ok && prev != r.ExchangeRank {
			return nil, fmt.Errorf("postgres: exchange %q has ranks %d and %d", r.Exchange, prev, r.ExchangeRank)
		}
		exchangeRank[r.Exchange] = r.ExchangeRank
	}
	exchanges := make([]domain.ExchangeID, 0, len(exchangeRank))
	for name := range exchangeRank {
		exchanges = append(exchanges, domain.ExchangeID(name))
	}
	sortByRank(exchanges, exchangeRank)

	var rows []domain.MappingRow
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Asset]
		if !ok {
			i = len(rows)
			index[r.Asset] = i
			rows = append(rows, domain.MappingRow{
				Asset: domain.AssetSymbol(r.Asset),
				Pairs: make(map[domain.ExchangeID]string),
			})
		}
		rows[i].Pairs[domain.ExchangeID(r.Exchange)] = r.Pair
	}

	m, err := domain.NewSymbolMapping(exchanges, rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	return m, nil
}

func sortByRank(ids []domain.ExchangeID, rank map[string]int) {
	sort.SliceStable(ids, func(i, j int) bool {
		return rank[string(ids[i])] < rank[string(ids[j])]
	})
}

// Replace overwrites the stored table with m in a single transaction.
func (s *MappingStore) Replace(ctx context.Context, m *domain.SymbolMapping) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin mapping replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "DELETE FROM symbol_mappings"); err != nil {
		return fmt.Errorf("postgres: clear mapping: %w", err)
	}

	var cells [][]any
	exchanges := m.Exchanges()
	for ai, asset := range m.Assets() {
		for ei, ex := range exchanges {
			pair, _ := m.Pair(asset, ex)
			cells = append(cells, []any{string(asset), ai, string(ex), ei, pair})
		}
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"symbol_mappings"},
		[]string{"asset", "asset_rank", "exchange", "exchange_rank", "pair"},
		pgx.CopyFromRows(cells),
	); err != nil {
		return fmt.Errorf("postgres: copy mapping: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit mapping replace: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.MappingStore = (*MappingStore)(nil)
