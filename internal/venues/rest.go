package venues

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/denishimanych-lgtm/Arbitrage-scanner-sub001/internal/netx"
)

// getJSON performs a GET and decodes the body into out, translating every
// failure mode into a *VenueError.
func getJSON(ctx context.Context, pool *netx.Pool, venueID, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewVenueError(venueID, ErrTransport, err.Error())
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return doJSON(ctx, pool, venueID, req, out)
}

// postJSON performs a JSON POST (Hyperliquid-style info endpoints).
func postJSON(ctx context.Context, pool *netx.Pool, venueID, url string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return NewVenueError(venueID, ErrParse, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return NewVenueError(venueID, ErrTransport, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(ctx, pool, venueID, req, out)
}

func doJSON(ctx context.Context, pool *netx.Pool, venueID string, req *http.Request, out interface{}) error {
	resp, err := pool.Do(ctx, req)
	if err != nil {
		return ClassifyTransport(venueID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return ClassifyStatus(venueID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClassifyTransport(venueID, err)
	}
	if len(body) == 0 {
		return NewVenueError(venueID, ErrParse, "empty body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ParseError(venueID, err)
	}
	return nil
}
