// Package overpass provides a client for the Overpass geo-catalog API.
package overpass

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://overpass-api.de/api/interpreter"

// Client queries points of interest from the Overpass API.
type Client interface {
	// QueryPOIs returns elements matching the tag filters inside the bounding box.
	QueryPOIs(ctx context.Context, box BoundingBox, filters []TagFilter) ([]Element, error)
}

// BoundingBox is a south/west/north/east box in degrees.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// TagFilter selects elements carrying a tag key with one of the given values.
// An empty Values slice matches any value of Key.
type TagFilter struct {
	Key    string
	Values []string
}

// Element is a single point of interest from the catalog.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *LatLon           `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

// LatLon is a coordinate pair. Ways and relations report their centroid here
// rather than in the top-level lat/lon fields.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinates returns the element's position regardless of element type.
func (e Element) Coordinates() (lat, lon float64) {
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon
	}
	return e.Lat, e.Lon
}

// response is the Overpass JSON envelope.
type response struct {
	Elements []Element `json:"elements"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom interpreter endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an Overpass client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) QueryPOIs(ctx context.Context, box BoundingBox, filters []TagFilter) ([]Element, error) {
	query := BuildQuery(box, filters)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("overpass: unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "overpass: unmarshal response")
	}

	return parsed.Elements, nil
}

// BuildQuery renders an Overpass QL query selecting nodes and ways matching
// any of the tag filters inside the box. Relations are deliberately left out:
// they model multipolygon areas, not visitable points of interest.
func BuildQuery(box BoundingBox, filters []TagFilter) string {
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:50];(")
	bbox := formatBBox(box)
	for _, f := range filters {
		clause := tagClause(f)
		sb.WriteString("node" + clause + bbox + ";")
		sb.WriteString("way" + clause + bbox + ";")
	}
	sb.WriteString(");out center tags;")
	return sb.String()
}

func tagClause(f TagFilter) string {
	if len(f.Values) == 0 {
		return "[\"" + f.Key + "\"]"
	}
	if len(f.Values) == 1 {
		return "[\"" + f.Key + "\"=\"" + f.Values[0] + "\"]"
	}
	return "[\"" + f.Key + "\"~\"^(" + strings.Join(f.Values, "|") + ")$\"]"
}

func formatBBox(box BoundingBox) string {
	return "(" + formatFloat(box.South) + "," + formatFloat(box.West) + "," +
		formatFloat(box.North) + "," + formatFloat(box.East) + ")"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
