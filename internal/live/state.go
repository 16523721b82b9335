package live

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/TruWeaveTrader/statarb/internal/models"
	"github.com/shopspring/decimal"
)

// Status is an immutable snapshot of the live runner, published after every step
type Status struct {
	RunID        string            `json:"run_id"`
	PID          int               `json:"pid"`
	Running      bool              `json:"running"`
	StartedAt    time.Time         `json:"started_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Date         string            `json:"date"`
	Step         int               `json:"step"`
	TotalSteps   int               `json:"total_steps"`
	Equity       decimal.Decimal   `json:"equity"`
	Cash         decimal.Decimal   `json:"cash"`
	Positions    []models.Position `json:"positions"`
	TotalTrades  int               `json:"total_trades"`
	ClosedTrades int               `json:"closed_trades"`
	Drawdown     float64           `json:"drawdown"`
	MaxDrawdown  float64           `json:"max_drawdown"`
	SharpeToDate float64           `json:"sharpe_to_date"`
	Message      string            `json:"message,omitempty"`
}

const stateDirName = ".statarb"
const stateFileName = "live_status.json"

// DefaultStatusPath is ~/.statarb/live_status.json
func DefaultStatusPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, stateDirName, stateFileName), nil
}

// WriteStatus writes a status snapshot to disk, replacing the file atomically
func WriteStatus(path string, status *Status) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStatus reads the last written status
func ReadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RemoveStatus deletes the status file
func RemoveStatus(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}
