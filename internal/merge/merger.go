// Package merge converts parsed measurement tables into typed field
// updates and merges them, keyed by measurement timestamp, into one
// hourly-observation set per station.
package merge

import (
	"sort"
	"sync"
	"time"

	"climate-platform/internal/archive"
	"climate-platform/internal/models"
)

// timestampColumn is the measurement-time column present in every
// category's file.
const timestampColumn = "MESS_DATUM"

// Merger accumulates the hourly observations of a single station.
// Files for different measurement categories of the same station are
// processed concurrently, so MergeTable is safe to call from multiple
// goroutines; thread-safety is the merger's own contract and callers
// take no locks. If two files carry the same field for the same hour
// (historical/recent overlap), the later write wins.
type Merger struct {
	stationID string
	pool      *ValuePool

	mu          sync.Mutex
	byTime      map[time.Time]*models.HourlyObservation
	skippedRows int
}

// NewMerger creates a merger for one station. The value pool is
// injected so each station (and each test) can run with a fresh cache.
func NewMerger(stationID string, pool *ValuePool) *Merger {
	if pool == nil {
		pool = NewValuePool()
	}
	return &Merger{
		stationID: stationID,
		pool:      pool,
		byTime:    make(map[time.Time]*models.HourlyObservation),
	}
}

// MergeTable applies every row of one parsed file to the observation
// set. A missing mapped column is a schema mismatch and rejects the
// whole file; a malformed row is skipped alone.
func (m *Merger) MergeTable(src models.SourceFile, table *archive.ParsedTable) error {
	if table.Empty() {
		return nil
	}

	tsIdx := table.ColumnIndex(timestampColumn)
	if tsIdx < 0 {
		return &SchemaMismatchError{Source: src, Column: timestampColumn}
	}

	mappings := categoryFields[src.Category]
	indices := make([]int, len(mappings))
	for i, mapping := range mappings {
		idx := table.ColumnIndex(mapping.Column)
		if idx < 0 {
			return &SchemaMismatchError{Source: src, Column: mapping.Column}
		}
		indices[i] = idx
	}

	for _, row := range table.Rows {
		token := row[tsIdx]
		if token == nil {
			m.skipRow()
			continue
		}

		ts, err := models.ParseMeasurementTime(*token)
		if err != nil {
			m.skipRow()
			continue
		}

		if err := m.applyRow(ts, row, mappings, indices); err != nil {
			m.skipRow()
		}
	}

	return nil
}

// applyRow parses the row's tokens, then looks up or creates the
// observation for the timestamp and assigns the fields under the set
// lock. A parse failure rejects the row before any shared state is
// touched.
func (m *Merger) applyRow(ts time.Time, row []*string, mappings []fieldMapping, indices []int) error {
	assigns := make([]func(*models.HourlyObservation), 0, len(mappings))
	for i, mapping := range mappings {
		token := row[indices[i]]
		if token == nil {
			continue
		}
		assign, err := mapping.Apply(m.pool, *token)
		if err != nil {
			return err
		}
		assigns = append(assigns, assign)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	obs, ok := m.byTime[ts]
	if !ok {
		obs = &models.HourlyObservation{
			StationID:       m.stationID,
			MeasurementTime: ts,
			CreatedAt:       time.Now().UTC(),
		}
		m.byTime[ts] = obs
	}
	for _, assign := range assigns {
		assign(obs)
	}
	return nil
}

func (m *Merger) skipRow() {
	m.mu.Lock()
	m.skippedRows++
	m.mu.Unlock()
}

// SkippedRows returns how many malformed rows were dropped.
func (m *Merger) SkippedRows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.skippedRows
}

// Observations returns the merged set ordered by measurement time.
// Call it only after every MergeTable for the station has returned;
// the observations are immutable from then on.
func (m *Merger) Observations() []*models.HourlyObservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*models.HourlyObservation, 0, len(m.byTime))
	for _, obs := range m.byTime {
		result = append(result, obs)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MeasurementTime.Before(result[j].MeasurementTime)
	})
	return result
}
