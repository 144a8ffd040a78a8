package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"climate-platform/internal/models"
	"climate-platform/pkg/logging"
)

func listingPage(entries ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><a href="../">../</a>`)
	for _, entry := range entries {
		fmt.Fprintf(&b, `<a href="%s">%s</a>`, entry, entry)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

// fakeListingServer serves one directory page per category and span.
func fakeListingServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[strings.TrimSuffix(r.URL.Path, "/")]
		if !ok {
			// Directories without data are served empty, mirroring a
			// category that has no archives for the period.
			fmt.Fprint(w, listingPage())
			return
		}
		fmt.Fprint(w, page)
	}))
}

func TestDiscover(t *testing.T) {
	pages := map[string]string{
		"/air_temperature/historical": listingPage(
			"stundenwerte_TU_00691_19500101_20231231_hist.zip",
			"stundenwerte_TU_01234_19720101_20231231_hist.zip",
			"TU_Stundenwerte_Beschreibung_Stationen.txt",
		),
		"/air_temperature/recent": listingPage(
			"stundenwerte_TU_00691_akt.zip",
		),
		"/wind/historical": listingPage(
			"stundenwerte_FF_00691_19500101_20231231_hist.zip",
			"unrelated_readme.pdf",
		),
	}

	server := fakeListingServer(t, pages)
	defer server.Close()

	listing, err := New(server.Client(), logging.NewNop()).Discover(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	if len(listing.Sources) != 4 {
		t.Fatalf("sources = %d, want 4", len(listing.Sources))
	}

	byStation := map[string]int{}
	historical := 0
	for _, src := range listing.Sources {
		byStation[src.StationID]++
		if src.Historical {
			historical++
		}
		if !strings.HasPrefix(src.URL, server.URL) {
			t.Errorf("source URL %q not rooted at the listing server", src.URL)
		}
	}
	if byStation["00691"] != 3 {
		t.Errorf("station 00691 sources = %d, want 3", byStation["00691"])
	}
	if byStation["01234"] != 1 {
		t.Errorf("station 01234 sources = %d, want 1", byStation["01234"])
	}
	if historical != 3 {
		t.Errorf("historical sources = %d, want 3", historical)
	}

	desc, ok := listing.Descriptions[models.CategoryAirTemperature]
	if !ok {
		t.Fatal("missing station description for air_temperature")
	}
	if !strings.HasSuffix(desc, "TU_Stundenwerte_Beschreibung_Stationen.txt") {
		t.Errorf("description URL = %q", desc)
	}
}

func TestDiscover_CategoryMismatchIsFatal(t *testing.T) {
	pages := map[string]string{
		// A TD archive listed under air_temperature is a broken layout.
		"/air_temperature/historical": listingPage("stundenwerte_TD_00691_hist.zip"),
	}

	server := fakeListingServer(t, pages)
	defer server.Close()

	_, err := New(server.Client(), logging.NewNop()).Discover(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Discover() should reject an archive filed under the wrong category")
	}
}

func TestDiscover_EmptyCatalogIsFatal(t *testing.T) {
	server := fakeListingServer(t, nil)
	defer server.Close()

	_, err := New(server.Client(), logging.NewNop()).Discover(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Discover() should fail when no archive exists anywhere")
	}
}

func TestDiscover_ListingErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.Client(), logging.NewNop()).Discover(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Discover() should surface a failing listing request")
	}
}
