package ephemeris

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default broadcast navigation mirrors. %s is replaced with the daily
// brdc filename (see DailyFilename).
var defaultSourceTemplates = []string{
	"https://igs.bkg.bund.de/root_ftp/IGS/BRDC/%s",
	"https://cddis.nasa.gov/archive/gnss/data/daily/%s",
}

// DailyFilename returns the conventional daily broadcast navigation filename
// for the given date, e.g. "brdc2410.26n" for day-of-year 241 of 2026.
func DailyFilename(t time.Time) string {
	return fmt.Sprintf("brdc%03d0.%02dn", t.YearDay(), t.Year()%100)
}

// SourceURLs expands the given URL templates for the date. Templates without
// a %s verb are used as-is.
func SourceURLs(templates []string, t time.Time) []string {
	if len(templates) == 0 {
		templates = defaultSourceTemplates
	}
	name := DailyFilename(t)
	urls := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		if strings.Contains(tmpl, "%s") {
			urls = append(urls, fmt.Sprintf(tmpl, name))
		} else {
			urls = append(urls, tmpl)
		}
	}
	return urls
}

// Fetcher retrieves raw RINEX navigation text over HTTP, trying each source
// URL in order until one succeeds. The engine itself never fetches; only the
// service refresh loop uses this.
type Fetcher struct {
	sources    []string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source URLs.
func NewFetcher(sources []string) *Fetcher {
	return &Fetcher{
		sources: sources,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Sources returns the configured source URLs.
func (f *Fetcher) Sources() []string {
	return f.sources
}

// Fetch downloads navigation data from the first source that responds with
// 200 OK, transparently decompressing gzip-named payloads. It returns the
// data and the source URL that served it.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, string, error) {
	var lastErr error
	for _, url := range f.sources {
		data, err := f.fetchOne(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}
		return data, url, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no source URLs configured")
	}
	return nil, "", fmt.Errorf("all navigation sources failed: %w", lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching navigation data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip payload: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}
