// Package batch reads address-code lists, runs the eligibility engine over
// the deduplicated keys, and partitions the verdicts into per-code CSVs.
package batch

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// headerAliases maps the recognized column headers (government exports use
// the Korean names; hand-built lists often use the romanized API names) to
// canonical field slots.
var headerAliases = map[string]string{
	"시군구코드":         "district",
	"sigungu_cd":    "district",
	"sigungucd":     "district",
	"district_code": "district",
	"법정동코드":         "neighborhood",
	"bjdong_cd":     "neighborhood",
	"bjdongcd":      "neighborhood",
	"bjdong_code":   "neighborhood",
	"번":             "lot_main",
	"bun":           "lot_main",
	"lot_main":      "lot_main",
	"지":             "lot_sub",
	"ji":            "lot_sub",
	"lot_sub":       "lot_sub",
}

// ReadKeys loads an address list from a .csv or .xlsx file, normalizes each
// key, and deduplicates on the normalized 4-tuple preserving first-seen
// order. Rows missing the district, neighborhood, or main lot number are
// skipped. It returns the unique keys plus skipped/duplicate counts.
func ReadKeys(path string) ([]bldrgst.LotKey, Stats, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, Stats{}, err
	}
	if len(rows) == 0 {
		return nil, Stats{}, eris.Errorf("batch: %s has no header row", path)
	}

	cols, err := mapHeader(rows[0])
	if err != nil {
		return nil, Stats{}, eris.Wrapf(err, "batch: %s", path)
	}

	var keys []bldrgst.LotKey
	seen := make(map[bldrgst.LotKey]bool)
	var stats Stats

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for _, row := range rows[1:] {
		key := bldrgst.LotKey{
			District:     cell(row, cols["district"]),
			Neighborhood: cell(row, cols["neighborhood"]),
			LotMain:      cell(row, cols["lot_main"]),
			LotSub:       cell(row, cols["lot_sub"]),
		}
		if key.District == "" || key.Neighborhood == "" || key.LotMain == "" {
			stats.Skipped++
			continue
		}

		key = key.Normalize()
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}

	zap.L().Info("batch: input loaded",
		zap.String("path", path),
		zap.Int("unique", len(keys)),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
	)
	return keys, stats, nil
}

// mapHeader resolves column positions from the header row.
func mapHeader(header []string) (map[string]int, error) {
	cols := map[string]int{"district": -1, "neighborhood": -1, "lot_main": -1, "lot_sub": -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if slot, ok := headerAliases[name]; ok && cols[slot] == -1 {
			cols[slot] = i
		}
	}
	for _, slot := range []string{"district", "neighborhood", "lot_main"} {
		if cols[slot] == -1 {
			return nil, eris.Errorf("header is missing a %s column", slot)
		}
	}
	return cols, nil
}

// readCSVRows reads a CSV file, stripping a UTF-8 BOM and falling back to
// EUC-KR when the content is not valid UTF-8. Korean government portals
// export both encodings.
func readCSVRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}

	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		decoded, decErr := io.ReadAll(transform.NewReader(bytes.NewReader(data), korean.EUCKR.NewDecoder()))
		if decErr != nil {
			return nil, eris.Wrapf(decErr, "batch: decode %s as EUC-KR", path)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "batch: parse csv %s", path)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("batch: xlsx %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
