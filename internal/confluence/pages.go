package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/p-blackswan/pm-agent/internal/models"
)

type pageBody struct {
	Wiki struct {
		Value          string `json:"value"`
		Representation string `json:"representation"`
	} `json:"wiki"`
}

type pagePayload struct {
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Space    *spaceRef `json:"space,omitempty"`
	Body     pageBody  `json:"body"`
	Version  *version  `json:"version,omitempty"`
	Metadata *struct {
		Labels []label `json:"labels"`
	} `json:"metadata,omitempty"`
}

type spaceRef struct {
	Key string `json:"key"`
}

type version struct {
	Number int `json:"number"`
}

type label struct {
	Name string `json:"name"`
}

type pageResponse struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Space   spaceRef `json:"space"`
	Version version  `json:"version"`
	Links   struct {
		Base  string `json:"base"`
		WebUI string `json:"webui"`
	} `json:"_links"`
}

func (p pageResponse) toModel() models.Page {
	return models.Page{
		ID:    p.ID,
		Title: p.Title,
		Space: p.Space.Key,
		URL:   p.Links.Base + p.Links.WebUI,
	}
}

func wikiPayload(title, body string) pagePayload {
	payload := pagePayload{Type: "page", Title: title}
	payload.Body.Wiki.Value = body
	payload.Body.Wiki.Representation = "wiki"
	return payload
}

// CreatePage publishes a wiki-markup page into a space.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, body string, labels []string) (models.Page, error) {
	payload := wikiPayload(title, body)
	payload.Space = &spaceRef{Key: spaceKey}
	if len(labels) > 0 {
		payload.Metadata = &struct {
			Labels []label `json:"labels"`
		}{}
		for _, name := range labels {
			payload.Metadata.Labels = append(payload.Metadata.Labels, label{Name: name})
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Page{}, fmt.Errorf("marshal page: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/rest/api/content", bytes.NewReader(raw))
	if err != nil {
		return models.Page{}, err
	}
	var pr pageResponse
	if err := decodeResponse(resp, &pr); err != nil {
		return models.Page{}, err
	}
	c.logger.Info().Str("page", pr.ID).Str("space", spaceKey).Str("title", title).Msg("page created")
	return pr.toModel(), nil
}

// UpdatePage replaces a page's title and body, bumping the version.
func (c *Client) UpdatePage(ctx context.Context, pageID, title, body string) (models.Page, error) {
	resp, err := c.do(ctx, http.MethodGet, "/rest/api/content/"+url.PathEscape(pageID), nil)
	if err != nil {
		return models.Page{}, err
	}
	var current pageResponse
	if err := decodeResponse(resp, &current); err != nil {
		return models.Page{}, err
	}

	payload := wikiPayload(title, body)
	payload.Version = &version{Number: current.Version.Number + 1}

	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Page{}, fmt.Errorf("marshal page: %w", err)
	}
	resp, err = c.do(ctx, http.MethodPut, "/rest/api/content/"+url.PathEscape(pageID), bytes.NewReader(raw))
	if err != nil {
		return models.Page{}, err
	}
	var pr pageResponse
	if err := decodeResponse(resp, &pr); err != nil {
		return models.Page{}, err
	}
	c.logger.Info().Str("page", pr.ID).Int("version", payload.Version.Number).Msg("page updated")
	return pr.toModel(), nil
}

type searchResponse struct {
	Results []pageResponse `json:"results"`
}

// SearchPages runs a CQL query and returns matching pages.
func (c *Client) SearchPages(ctx context.Context, cql string, limit int) ([]models.Page, error) {
	if limit <= 0 {
		limit = 25
	}
	path := fmt.Sprintf("/rest/api/content/search?cql=%s&limit=%d", url.QueryEscape(cql), limit)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	if err := decodeResponse(resp, &sr); err != nil {
		return nil, err
	}
	pages := make([]models.Page, 0, len(sr.Results))
	for _, pr := range sr.Results {
		pages = append(pages, pr.toModel())
	}
	return pages, nil
}

type spacesResponse struct {
	Results []struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"results"`
}

// ListSpaces returns the visible spaces, cached briefly to keep repeated
// space-key validation off the API.
func (c *Client) ListSpaces(ctx context.Context) ([]models.Space, error) {
	if cached, ok := c.spaces.Get("spaces"); ok {
		return cached, nil
	}

	resp, err := c.do(ctx, http.MethodGet, "/rest/api/space?limit=100", nil)
	if err != nil {
		return nil, err
	}
	var sr spacesResponse
	if err := decodeResponse(resp, &sr); err != nil {
		return nil, err
	}
	spaces := make([]models.Space, 0, len(sr.Results))
	for _, s := range sr.Results {
		spaces = append(spaces, models.Space{Key: s.Key, Name: s.Name})
	}
	c.spaces.Put("spaces", spaces)
	return spaces, nil
}

// Ping verifies reachability and credentials, used as the health check.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/rest/api/space?limit=1", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
