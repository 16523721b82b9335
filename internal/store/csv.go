package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// ReadPricesCSV parses daily bars for one instrument.
// Expected header: date,open,high,low,close,volume in any order and case;
// only date and close are required. Dates may be YYYYMMDD or YYYY-MM-DD.
func ReadPricesCSV(r io.Reader, instrument string) ([]models.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", required)
		}
	}

	var points []models.PricePoint
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		p, err := parsePriceRow(row, cols, instrument)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, p)
	}

	return points, nil
}

func parsePriceRow(row []string, cols map[string]int, instrument string) (models.PricePoint, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	price := func(name string) (decimal.Decimal, error) {
		v := field(name)
		if v == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s %q", name, v)
		}
		return d, nil
	}

	date, err := normalizeDate(field("date"))
	if err != nil {
		return models.PricePoint{}, err
	}

	p := models.PricePoint{Instrument: instrument, Date: date}
	if p.Close, err = price("close"); err != nil {
		return p, err
	}
	if !p.Close.IsPositive() {
		return p, fmt.Errorf("close must be positive on %s", date)
	}
	if p.Open, err = price("open"); err != nil {
		return p, err
	}
	if p.High, err = price("high"); err != nil {
		return p, err
	}
	if p.Low, err = price("low"); err != nil {
		return p, err
	}
	if v := field("volume"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, fmt.Errorf("invalid volume %q", v)
		}
		p.Volume = int64(f)
	}

	return p, nil
}

func normalizeDate(v string) (string, error) {
	for _, layout := range []string{"20060102", "2006-01-02", "2006/01/02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return models.FormatDate(t), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", v)
}
