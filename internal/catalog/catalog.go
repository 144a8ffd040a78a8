// Package catalog discovers the downloadable source archives for every
// station by crawling a remote directory listing.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"climate-platform/internal/models"
	"climate-platform/pkg/logging"
)

var (
	hrefPattern = regexp.MustCompile(`href="([^"?]+)"`)
	// e.g. stundenwerte_TU_00691_19500101_20231231_hist.zip
	archivePattern = regexp.MustCompile(`^stundenwerte_([A-Z0-9]+)_(\d{5})_.*\.zip$`)
	// e.g. TU_Stundenwerte_Beschreibung_Stationen.txt
	descriptionPattern = regexp.MustCompile(`^[A-Z0-9]+_Stundenwerte_Beschreibung_Stationen\.txt$`)
)

// Listing is the discovered source tree: every archive plus at most
// one station-description reference per measurement category.
type Listing struct {
	Sources      []models.SourceFile
	Descriptions map[models.MeasurementCategory]string
}

// Catalog crawls directory listings. It performs network reads but is
// otherwise side-effect free; a malformed listing is a fatal startup
// error and is never retried.
type Catalog struct {
	client *http.Client
	logger *logging.StructuredLogger
}

// New creates a catalog crawler.
func New(client *http.Client, logger *logging.StructuredLogger) *Catalog {
	if client == nil {
		client = http.DefaultClient
	}
	return &Catalog{client: client, logger: logger}
}

// Discover walks rootURL/<category>/{historical,recent}/ and pattern-
// matches every listing entry into SourceFile descriptors.
func (c *Catalog) Discover(ctx context.Context, rootURL string) (*Listing, error) {
	listing := &Listing{
		Descriptions: make(map[models.MeasurementCategory]string),
	}

	for _, category := range models.AllCategories {
		for _, span := range []string{"historical", "recent"} {
			dirURL, err := joinURL(rootURL, category.String(), span)
			if err != nil {
				return nil, fmt.Errorf("invalid root url %q: %w", rootURL, err)
			}

			entries, err := c.readListing(ctx, dirURL)
			if err != nil {
				return nil, err
			}

			count := 0
			for _, entry := range entries {
				if m := archivePattern.FindStringSubmatch(entry); m != nil {
					if m[1] != category.Code() {
						return nil, fmt.Errorf("listing %s: archive %q does not belong to category %s", dirURL, entry, category)
					}
					fileURL, err := joinURL(dirURL, entry)
					if err != nil {
						return nil, fmt.Errorf("listing %s: invalid entry %q: %w", dirURL, entry, err)
					}
					listing.Sources = append(listing.Sources, models.SourceFile{
						StationID:  m[2],
						Category:   category,
						Historical: span == "historical",
						URL:        fileURL,
					})
					count++
					continue
				}
				if descriptionPattern.MatchString(entry) {
					descURL, err := joinURL(dirURL, entry)
					if err != nil {
						return nil, fmt.Errorf("listing %s: invalid entry %q: %w", dirURL, entry, err)
					}
					listing.Descriptions[category] = descURL
				}
			}

			c.logger.Debug(ctx, "[CATALOG_DIR] Directory listing crawled", logging.Fields{
				"url":      dirURL,
				"archives": count,
			})
		}
	}

	if len(listing.Sources) == 0 {
		return nil, fmt.Errorf("catalog crawl of %s yielded no archives", rootURL)
	}

	return listing, nil
}

// readListing fetches one directory listing page and returns its href
// targets, ignoring navigation links.
func (c *Catalog) readListing(ctx context.Context, dirURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dirURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing %s: %w", dirURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to read listing %s: unexpected status %d", dirURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing %s: %w", dirURL, err)
	}

	var entries []string
	for _, m := range hrefPattern.FindAllStringSubmatch(string(body), -1) {
		target := m[1]
		if target == "../" || strings.HasPrefix(target, "/") || strings.Contains(target, "://") {
			continue
		}
		entries = append(entries, target)
	}
	return entries, nil
}

func joinURL(base string, parts ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	joined := u.JoinPath(parts...)
	return joined.String(), nil
}
