// Package mapping loads the asset-to-pair table that drives polling.
//
// The CSV form has a header row whose first column is "base_symbol" and
// whose remaining columns name exchanges. Each data row lists an asset and
// the pair string it trades under on every exchange; an empty cell means the
// asset is not listed there.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// SymbolColumn is the required name of the first header column.
const SymbolColumn = "base_symbol"

// LoadCSV reads and parses the mapping file at path.
func LoadCSV(path string) (*domain.SymbolMapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("mapping: %s: %w", path, err)
	}
	return m, nil
}

// Parse reads a mapping table from r.
func Parse(r io.Reader) (*domain.SymbolMapping, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty mapping file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// Spreadsheet exports sometimes start with a UTF-8 BOM.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	if header[0] != SymbolColumn {
		return nil, fmt.Errorf("first column must be %q, got %q", SymbolColumn, header[0])
	}

	exchanges := make([]domain.ExchangeID, 0, len(header)-1)
	for _, h := range header[1:] {
		exchanges = append(exchanges, domain.ExchangeID(strings.ToLower(h)))
	}

	var rows []domain.MappingRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if len(rec) > len(header) {
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(rec), len(header))
		}

		row := domain.MappingRow{
			Asset: domain.AssetSymbol(strings.TrimSpace(rec[0])),
			Pairs: make(map[domain.ExchangeID]string, len(exchanges)),
		}
		for i, ex := range exchanges {
			if i+1 < len(rec) {
				row.Pairs[ex] = strings.TrimSpace(rec[i+1])
			}
		}
		rows = append(rows, row)
	}

	return domain.NewSymbolMapping(exchanges, rows)
}
