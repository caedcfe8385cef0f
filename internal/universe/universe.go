// Package universe maintains the tradable symbol list: a current CSV plus
// dated snapshots written whenever the list changes.
package universe

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const currentFile = "symbols.csv"

// Manager owns the symbol list directory. The current list lives in
// symbols.csv; each change also writes symbols-YYYY-MM-DD.csv so the
// universe on any past date can be reconstructed.
type Manager struct {
	dir string
	log *slog.Logger
}

// NewManager creates a Manager rooted at dir.
func NewManager(dir string, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{dir: dir, log: log.With("component", "universe")}
}

// Current returns the current symbol list, sorted. A missing file is an
// empty universe, not an error.
func (m *Manager) Current() ([]string, error) {
	symbols, err := LoadCSV(filepath.Join(m.dir, currentFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	return symbols, err
}

// Update replaces the current list with symbols. When the list actually
// changed it also writes a dated snapshot for asOf and logs the diff. The
// returned added and removed slices describe the change.
func (m *Manager) Update(symbols []string, asOf time.Time) (added, removed []string, err error) {
	current, err := m.Current()
	if err != nil {
		return nil, nil, err
	}

	next := normalize(symbols)
	added, removed = Diff(current, next)
	if len(added) == 0 && len(removed) == 0 && len(current) > 0 {
		m.log.Info("universe unchanged", "symbols", len(current))
		return nil, nil, nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, nil, err
	}
	if err := WriteCSV(filepath.Join(m.dir, currentFile), next); err != nil {
		return nil, nil, err
	}
	snapshot := fmt.Sprintf("symbols-%s.csv", asOf.Format("2006-01-02"))
	if err := WriteCSV(filepath.Join(m.dir, snapshot), next); err != nil {
		return nil, nil, err
	}

	m.log.Info("universe updated",
		"symbols", len(next),
		"added", len(added),
		"removed", len(removed),
		"snapshot", snapshot)
	return added, removed, nil
}

// Snapshots returns the dates of all stored snapshots, oldest first.
func (m *Manager) Snapshots() ([]time.Time, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "symbols-") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, "symbols-"), ".csv"))
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Diff returns the symbols present in next but not current, and those in
// current but not next. Both results are sorted.
func Diff(current, next []string) (added, removed []string) {
	curSet := make(map[string]struct{}, len(current))
	for _, s := range current {
		curSet[s] = struct{}{}
	}
	nextSet := make(map[string]struct{}, len(next))
	for _, s := range next {
		nextSet[s] = struct{}{}
	}

	for s := range nextSet {
		if _, ok := curSet[s]; !ok {
			added = append(added, s)
		}
	}
	for s := range curSet {
		if _, ok := nextSet[s]; !ok {
			removed = append(removed, s)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// LoadCSV reads the first column ("symbol") from a CSV file with a header
// row and returns the symbols found, uppercased.
func LoadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	symbols := make([]string, 0, len(records)-1)
	for _, row := range records[1:] {
		if len(row) > 0 {
			sym := strings.TrimSpace(row[0])
			if sym != "" {
				symbols = append(symbols, strings.ToUpper(sym))
			}
		}
	}
	return normalize(symbols), nil
}

// WriteCSV writes symbols to a single-column CSV with a "symbol" header.
func WriteCSV(path string, symbols []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"symbol"}); err != nil {
		return err
	}
	for _, s := range symbols {
		if err := w.Write([]string{s}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// normalize uppercases, deduplicates, and sorts.
func normalize(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
