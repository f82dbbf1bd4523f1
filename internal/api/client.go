// Package api is the HTTP client for a running companion server, used
// by the terminal calculator and other tools.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mordian/w40k-companion/internal/datasheet"
	"github.com/mordian/w40k-companion/internal/models"
)

var httpClient = &http.Client{Timeout: 8 * time.Second}

const factionCacheTTL = 5 * time.Minute

// Client fetches datasheets and runs calculations against the API.
// The faction list is cached briefly; everything else goes straight
// through.
type Client struct {
	base string

	mu       sync.RWMutex
	factions []datasheet.Faction
	fetched  time.Time
}

func NewClient(baseURL string) *Client {
	return &Client{base: strings.TrimRight(baseURL, "/")}
}

func (c *Client) get(path string, out any) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) post(path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiError surfaces the server's error message when the body carries
// one.
func apiError(resp *http.Response) error {
	var er models.ErrorResponse
	if json.NewDecoder(resp.Body).Decode(&er) == nil && er.Error != "" {
		if er.Field != "" {
			return fmt.Errorf("api: %s: %s", er.Field, er.Error)
		}
		return fmt.Errorf("api: %s", er.Error)
	}
	return fmt.Errorf("api status %d", resp.StatusCode)
}

// Factions lists factions, cached for a few minutes.
func (c *Client) Factions() ([]datasheet.Faction, error) {
	c.mu.RLock()
	if time.Since(c.fetched) < factionCacheTTL && len(c.factions) > 0 {
		out := make([]datasheet.Faction, len(c.factions))
		copy(out, c.factions)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	var res []datasheet.Faction
	if err := c.get("/api/factions", &res); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.factions = make([]datasheet.Faction, len(res))
	copy(c.factions, res)
	c.fetched = time.Now()
	c.mu.Unlock()

	return res, nil
}

// Units lists a faction's datasheets. Accepts a faction name, slug or
// id.
func (c *Client) Units(faction string) ([]datasheet.Unit, error) {
	var res []datasheet.Unit
	if err := c.get("/api/factions/"+toSlug(faction)+"/units", &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Unit fetches the full detail payload for one datasheet, including
// derived calculator profiles. Accepts a unit name, slug or id.
func (c *Client) Unit(faction, unit string) (*datasheet.Detail, error) {
	var res datasheet.Detail
	if err := c.get("/api/factions/"+toSlug(faction)+"/units/"+toSlug(unit), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Calculate runs one engine calculation on the server.
func (c *Client) Calculate(req models.CalcRequest) (*models.CalcResult, error) {
	var res models.CalcResult
	if err := c.post("/api/mathhammer", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func toSlug(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "")
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "--", "-")
	return s
}
