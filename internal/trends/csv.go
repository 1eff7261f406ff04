package trends

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Outaos/data-steward/internal/fetcher"
)

// utf8BOM is prepended to exports; the spreadsheet tooling downstream
// needs it to detect UTF-8 Cyrillic.
const utf8BOM = "\xEF\xBB\xBF"

var csvHeader = []string{"year", "pair_id", "ua_term", "ru_term", "region", "score_ua", "score_ru"}

// WriteCSV exports observations with a UTF-8 BOM. Nil scores become
// empty cells.
func WriteCSV(path string, obs []Observation) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "trends: create %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return eris.Wrap(err, "trends: write bom")
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "trends: write header")
	}
	for _, o := range obs {
		rec := []string{
			strconv.Itoa(o.Year),
			strconv.Itoa(o.PairID),
			o.TermUA,
			o.TermRU,
			o.Region,
			formatScore(o.ScoreUA),
			formatScore(o.ScoreRU),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "trends: write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "trends: flush csv")
	}

	zap.L().Info("trends: wrote csv", zap.String("path", path), zap.Int("rows", len(obs)))
	return nil
}

func formatScore(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// ReadCSV loads a previously exported observation file. Column order is
// resolved from the header, so extra columns are tolerated.
func ReadCSV(path string) ([]Observation, error) {
	header, rows, err := fetcher.ReadCSV(path, fetcher.CSVOptions{HasHeader: true, TrimSpace: true})
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(name)] = i
	}
	for _, col := range csvHeader {
		if _, ok := idx[col]; !ok {
			return nil, eris.Errorf("trends: column %q not found in %s", col, path)
		}
	}

	obs := make([]Observation, 0, len(rows))
	bad := 0
	for _, row := range rows {
		o, ok := rowToObservation(row, idx)
		if !ok {
			bad++
			continue
		}
		obs = append(obs, o)
	}
	if bad > 0 {
		zap.L().Warn("trends: skipped malformed csv rows", zap.String("path", path), zap.Int("rows", bad))
	}
	return obs, nil
}

func rowToObservation(row []string, idx map[string]int) (Observation, bool) {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	year, err := strconv.Atoi(cell("year"))
	if err != nil {
		return Observation{}, false
	}
	pairID, err := strconv.Atoi(cell("pair_id"))
	if err != nil {
		return Observation{}, false
	}

	return Observation{
		Year:    year,
		PairID:  pairID,
		TermUA:  cell("ua_term"),
		TermRU:  cell("ru_term"),
		Region:  cell("region"),
		ScoreUA: parseScore(cell("score_ua")),
		ScoreRU: parseScore(cell("score_ru")),
	}, true
}

func parseScore(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// pandas exports NA markers and float-formatted ints.
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			n := int(f)
			return &n
		}
		return nil
	}
	return &v
}
