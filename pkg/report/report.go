package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkedin-outreach/pkg/config"
	"github.com/linkedin-outreach/pkg/logger"
)

// RunRecord summarizes one automation run for the history file and the
// CSV export consumed by the charting scripts.
type RunRecord struct {
	Keywords                string    `json:"keywords"`
	Target                  int       `json:"target"`
	ConnectionsMade         int       `json:"connections_made"`
	ProfilesScanned         int       `json:"profiles_scanned"`
	ActionableElementsFound int       `json:"actionable_elements_found"`
	PagesVisited            int       `json:"pages_visited"`
	StartedAt               time.Time `json:"started_at"`
	FinishedAt              time.Time `json:"finished_at"`
	Outcome                 string    `json:"outcome"`
}

// Writer persists run records to a JSON history file and a flat CSV.
type Writer struct {
	config *config.ReportConfig
	log    *zap.SugaredLogger
	mu     sync.Mutex
}

func New(cfg *config.ReportConfig) (*Writer, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Writer{
		config: cfg,
		log:    logger.WithComponent("report"),
	}, nil
}

func (w *Writer) filepath(filename string) string {
	return filepath.Join(w.config.DataDir, filename)
}

// Append records the run in both output formats. The history file is
// rewritten whole; the CSV only grows.
func (w *Writer) Append(rec RunRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.appendHistory(rec); err != nil {
		return err
	}
	if err := w.appendCSV(rec); err != nil {
		return err
	}

	w.log.Infow("Run recorded",
		"connections_made", rec.ConnectionsMade,
		"profiles_scanned", rec.ProfilesScanned,
		"outcome", rec.Outcome,
	)
	return nil
}

// History returns all recorded runs, oldest first.
func (w *Writer) History() ([]RunRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadHistory()
}

func (w *Writer) loadHistory() ([]RunRecord, error) {
	data, err := os.ReadFile(w.filepath(w.config.HistoryFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", w.config.HistoryFile, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []RunRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", w.config.HistoryFile, err)
	}
	return records, nil
}

func (w *Writer) appendHistory(rec RunRecord) error {
	records, err := w.loadHistory()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run history: %w", err)
	}
	if err := os.WriteFile(w.filepath(w.config.HistoryFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", w.config.HistoryFile, err)
	}
	return nil
}

var csvHeader = []string{
	"started_at", "finished_at", "keywords", "target",
	"connections_made", "profiles_scanned", "actionable_elements_found",
	"pages_visited", "outcome",
}

func (w *Writer) appendCSV(rec RunRecord) error {
	path := w.filepath(w.config.CSVFile)

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", w.config.CSVFile, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if fresh {
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("failed to write CSV header: %w", err)
		}
	}

	row := []string{
		rec.StartedAt.Format(time.RFC3339),
		rec.FinishedAt.Format(time.RFC3339),
		rec.Keywords,
		strconv.Itoa(rec.Target),
		strconv.Itoa(rec.ConnectionsMade),
		strconv.Itoa(rec.ProfilesScanned),
		strconv.Itoa(rec.ActionableElementsFound),
		strconv.Itoa(rec.PagesVisited),
		rec.Outcome,
	}
	if err := cw.Write(row); err != nil {
		return fmt.Errorf("failed to write CSV row: %w", err)
	}

	cw.Flush()
	return cw.Error()
}
