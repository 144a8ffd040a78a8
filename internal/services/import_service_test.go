package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-platform/internal/aggregate"
	"climate-platform/internal/catalog"
	"climate-platform/internal/fetch"
	"climate-platform/internal/models"
	"climate-platform/internal/repository"
	"climate-platform/pkg/logging"
	"climate-platform/pkg/metrics"
)

var testMetrics = metrics.NewCollector("climate_services_test")

// captureRepository records what the pipeline persists.
type captureRepository struct {
	mu           sync.Mutex
	stations     []string
	observations []*models.HourlyObservation
	summaries    []*models.SummarizedMeasurement
}

func (c *captureRepository) SaveStations(ctx context.Context, stationIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stations = append(c.stations, stationIDs...)
	return nil
}

func (c *captureRepository) ListStations(ctx context.Context, limit, offset int) ([]*repository.Station, error) {
	return nil, nil
}

func (c *captureRepository) SaveObservations(ctx context.Context, observations []*models.HourlyObservation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observations = append(c.observations, observations...)
	return nil
}

func (c *captureRepository) SaveSummaries(ctx context.Context, summaries []*models.SummarizedMeasurement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = append(c.summaries, summaries...)
	return nil
}

func (c *captureRepository) GetObservations(ctx context.Context, filter repository.ObservationFilter) ([]*models.HourlyObservation, int, error) {
	return nil, 0, nil
}

func (c *captureRepository) GetSummaries(ctx context.Context, filter repository.SummaryFilter) ([]*models.SummarizedMeasurement, int, error) {
	return nil, 0, nil
}

func (c *captureRepository) HealthCheck(ctx context.Context) error { return nil }

func zipArchive(t *testing.T, entryName, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(entryName)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func listingPage(entries ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><a href="../">../</a>`)
	for _, entry := range entries {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, entry, entry)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// newImportFixture builds a fake remote tree: per-path listing pages
// and archive payloads, empty listings everywhere else.
func newImportFixture(t *testing.T, pages map[string]string, archives map[string][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if data, ok := archives[r.URL.Path]; ok {
			if data == nil {
				http.Error(w, "broken", http.StatusInternalServerError)
				return
			}
			w.Write(data)
			return
		}
		if page, ok := pages[r.URL.Path]; ok {
			fmt.Fprint(w, page)
			return
		}
		fmt.Fprint(w, listingPage())
	}))
}

func newImportService(server *httptest.Server, repo repository.ClimateRepository) *ImportService {
	client := server.Client()
	return NewImportService(
		catalog.New(client, logging.NewNop()),
		fetch.New(client, 2),
		aggregate.New(2),
		repo,
		logging.NewNop(),
		testMetrics,
		2,
	)
}

func TestRun_MergesAndAggregatesOneStation(t *testing.T) {
	temperature := "STATIONS_ID;MESS_DATUM;TT_TU;RF_TU;eor\n" +
		"691;2020010100;2.0;80.0;eor\n" +
		"691;2020010101;-999;75.0;eor\n" +
		"691;2020010102;4.0;70.0;eor\n"
	wind := "STATIONS_ID;MESS_DATUM;QN;F;D;eor\n" +
		"691;2020010100;3;3.5;270;eor\n"

	pages := map[string]string{
		"/air_temperature/historical": listingPage("stundenwerte_TU_00691_19500101_20231231_hist.zip"),
		"/wind/recent":                listingPage("stundenwerte_FF_00691_akt.zip"),
	}
	archives := map[string][]byte{
		"/air_temperature/historical/stundenwerte_TU_00691_19500101_20231231_hist.zip": zipArchive(t, "produkt_tu_stunde_00691.txt", temperature),
		"/wind/recent/stundenwerte_FF_00691_akt.zip":                                   zipArchive(t, "produkt_ff_stunde_00691.txt", wind),
	}

	server := newImportFixture(t, pages, archives)
	defer server.Close()

	repo := &captureRepository{}
	result, err := newImportService(server, repo).Run(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalStations)
	assert.Equal(t, 1, result.SucceededStations)
	assert.Equal(t, 0, result.FailedStations)
	assert.Equal(t, 2, result.TotalArchives)
	assert.Equal(t, []string{"00691"}, repo.stations)

	require.Len(t, repo.observations, 3)
	first := repo.observations[0]
	assert.Equal(t, "00691", first.StationID)
	require.NotNil(t, first.Temperature)
	assert.Equal(t, 2.0, *first.Temperature)
	require.NotNil(t, first.WindSpeed)
	assert.Equal(t, 3.5, *first.WindSpeed)

	second := repo.observations[1]
	assert.Nil(t, second.Temperature)
	require.NotNil(t, second.Humidity)
	assert.Equal(t, 75.0, *second.Humidity)

	// One day of data rolls up into exactly one summary per level.
	kinds := map[models.IntervalKind]int{}
	for _, s := range repo.summaries {
		kinds[s.Interval.Kind]++
	}
	for _, kind := range []models.IntervalKind{
		models.IntervalDay, models.IntervalMonth, models.IntervalSeason,
		models.IntervalYear, models.IntervalDecade,
	} {
		assert.Equal(t, 1, kinds[kind], "kind %v", kind)
	}

	day := repo.summaries[0]
	require.Equal(t, models.IntervalDay, day.Interval.Kind)
	require.NotNil(t, day.Temperature.Min)
	assert.Equal(t, 2.0, *day.Temperature.Min)
	require.NotNil(t, day.Temperature.Max)
	assert.Equal(t, 4.0, *day.Temperature.Max)
	require.NotNil(t, day.Temperature.Avg())
	assert.Equal(t, 3.0, *day.Temperature.Avg())
}

func TestRun_FailedStationDoesNotAbortOthers(t *testing.T) {
	temperature := "STATIONS_ID;MESS_DATUM;TT_TU;RF_TU;eor\n" +
		"691;2020010100;2.0;80.0;eor\n"

	pages := map[string]string{
		"/air_temperature/historical": listingPage(
			"stundenwerte_TU_00691_hist.zip",
			"stundenwerte_TU_09999_hist.zip",
		),
	}
	archives := map[string][]byte{
		"/air_temperature/historical/stundenwerte_TU_00691_hist.zip": zipArchive(t, "produkt_tu_stunde_00691.txt", temperature),
		// nil payload makes the fixture answer 500.
		"/air_temperature/historical/stundenwerte_TU_09999_hist.zip": nil,
	}

	server := newImportFixture(t, pages, archives)
	defer server.Close()

	repo := &captureRepository{}
	result, err := newImportService(server, repo).Run(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalStations)
	assert.Equal(t, 1, result.SucceededStations)
	assert.Equal(t, 1, result.FailedStations)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "09999")

	// The healthy station's data still landed.
	require.Len(t, repo.observations, 1)
	assert.Equal(t, "00691", repo.observations[0].StationID)
}

func TestRun_CatalogFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := &captureRepository{}
	_, err := newImportService(server, repo).Run(context.Background(), server.URL)
	require.Error(t, err)
	assert.Empty(t, repo.stations)
}

func TestClimateService_Validation(t *testing.T) {
	service := NewClimateService(&captureRepository{}, logging.NewNop())

	from := time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, _, err := service.GetObservations(context.Background(), repository.ObservationFilter{From: &from, To: &to})
	require.Error(t, err)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, _, err = service.GetSummaries(context.Background(), repository.SummaryFilter{From: &from, To: &to})
	require.Error(t, err)
}
