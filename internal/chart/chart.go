package chart

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/TruWeaveTrader/statarb/internal/models"
)

// Series is the time-indexed output handed to external renderers
type Series struct {
	Dates    []string
	Equity   []float64
	Returns  []float64
	Drawdown []float64
}

// FromCurve splits an equity curve into parallel series
func FromCurve(curve []models.EquityPoint) Series {
	s := Series{
		Dates:    make([]string, len(curve)),
		Equity:   make([]float64, len(curve)),
		Returns:  make([]float64, len(curve)),
		Drawdown: make([]float64, len(curve)),
	}
	for i, p := range curve {
		s.Dates[i] = p.Date
		s.Equity[i] = p.Equity.InexactFloat64()
		s.Returns[i] = p.Return
		s.Drawdown[i] = p.Drawdown
	}
	return s
}

// Len returns the number of dates in the series
func (s Series) Len() int {
	return len(s.Dates)
}

// Sink accepts series for rendering elsewhere
type Sink interface {
	Render(ctx context.Context, s Series) error
}

// CSVSink writes series as date,equity,return,drawdown rows
type CSVSink struct {
	Path string
}

// NewCSVSink creates a sink writing to path
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (c *CSVSink) Render(ctx context.Context, s Series) error {
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "equity", "return", "drawdown"}); err != nil {
		return err
	}
	for i := 0; i < s.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Write([]string{
			s.Dates[i],
			strconv.FormatFloat(s.Equity[i], 'f', 2, 64),
			strconv.FormatFloat(s.Returns[i], 'f', 8, 64),
			strconv.FormatFloat(s.Drawdown[i], 'f', 8, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// Recorder keeps rendered series in memory
type Recorder struct {
	mu     sync.Mutex
	series []Series
}

func (r *Recorder) Render(ctx context.Context, s Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.series = append(r.series, s)
	return nil
}

// Last returns the most recently rendered series
func (r *Recorder) Last() (Series, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.series) == 0 {
		return Series{}, false
	}
	return r.series[len(r.series)-1], true
}
