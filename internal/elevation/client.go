package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trip-synth/internal/geo"
)

// DefaultEndpoint is the Google Elevation API JSON endpoint.
const DefaultEndpoint = "https://maps.googleapis.com/maps/api/elevation/json"

// Client queries an HTTP elevation service speaking the Google Elevation API
// format: GET ?locations=lat,lng|lat,lng&key=... returning
// {"status": "OK", "results": [{"elevation": .., "location": {"lat": .., "lng": ..}}]}.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

type apiResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Elevation float64 `json:"elevation"`
	Location  struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
	Resolution float64 `json:"resolution"`
}

// Lookup issues one request for the whole batch. Transport and decoding
// failures are returned as errors; a provider-side failure is reported
// through Response.Status.
func (c *Client) Lookup(ctx context.Context, points []geo.Point) (Response, error) {
	if len(points) == 0 {
		return Response{Status: StatusOK}, nil
	}
	params := url.Values{}
	params.Set("locations", encodeLocations(points))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("create elevation request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("elevation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Response{Status: "HTTP_" + strconv.Itoa(resp.StatusCode)}, nil
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Response{}, fmt.Errorf("decode elevation response: %w", err)
	}

	out := Response{Status: body.Status}
	if body.Status != StatusOK {
		return out, nil
	}
	out.Results = make([]Result, len(body.Results))
	for i, r := range body.Results {
		out.Results[i] = Result{
			Location:  geo.Point{Lat: r.Location.Lat, Lon: r.Location.Lng},
			Elevation: r.Elevation,
		}
	}
	return out, nil
}

func encodeLocations(points []geo.Point) string {
	var b strings.Builder
	for i, p := range points {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(p.Lat, 'f', 7, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(p.Lon, 'f', 7, 64))
	}
	return b.String()
}
