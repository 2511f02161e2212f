package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/p-blackswan/pm-agent/internal/models"
)

// Jira Software stores the epic name and story points in custom fields whose
// IDs depend on the instance. These defaults match Jira Cloud's standard
// scheme and can be overridden after construction.
const (
	defaultEpicNameField    = "customfield_10011"
	defaultStoryPointsField = "customfield_10016"
)

// FieldConfig carries the instance-specific custom field IDs.
type FieldConfig struct {
	EpicName    string
	StoryPoints string
}

// SetFieldConfig overrides the custom field IDs.
func (c *Client) SetFieldConfig(cfg FieldConfig) {
	c.fields = cfg
}

func (c *Client) fieldConfig() FieldConfig {
	cfg := c.fields
	if cfg.EpicName == "" {
		cfg.EpicName = defaultEpicNameField
	}
	if cfg.StoryPoints == "" {
		cfg.StoryPoints = defaultStoryPointsField
	}
	return cfg
}

type createIssueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type issue struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      struct {
			Name string `json:"name"`
		} `json:"status"`
		Priority struct {
			Name string `json:"name"`
		} `json:"priority"`
		Labels []string `json:"labels"`
	} `json:"fields"`
}

type searchResult struct {
	Total  int     `json:"total"`
	Issues []issue `json:"issues"`
}

func (c *Client) createIssue(ctx context.Context, fields map[string]any) (createIssueResponse, error) {
	body, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return createIssueResponse{}, fmt.Errorf("marshal issue: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return createIssueResponse{}, err
	}
	var out createIssueResponse
	if err := decodeResponse(resp, &out); err != nil {
		return createIssueResponse{}, err
	}
	return out, nil
}

func (c *Client) browseURL(key string) string {
	return c.baseURL + "/browse/" + key
}

// CreateEpic creates an Epic issue in the configured project.
func (c *Client) CreateEpic(ctx context.Context, title, description, priority string, labels []string) (models.Epic, error) {
	if priority == "" {
		priority = "Medium"
	}
	fields := map[string]any{
		"project":                map[string]string{"key": c.projectKey},
		"summary":                title,
		"description":            description,
		"issuetype":              map[string]string{"name": "Epic"},
		"priority":               map[string]string{"name": priority},
		c.fieldConfig().EpicName: title,
	}
	if len(labels) > 0 {
		fields["labels"] = labels
	}

	created, err := c.createIssue(ctx, fields)
	if err != nil {
		return models.Epic{}, err
	}
	c.logger.Info().Str("key", created.Key).Str("title", title).Msg("epic created")

	return models.Epic{
		Key:         created.Key,
		ID:          created.ID,
		Title:       title,
		Description: description,
		Status:      "To Do",
		Priority:    priority,
		Labels:      labels,
		URL:         c.browseURL(created.Key),
	}, nil
}

// CreateUserStory creates a Story issue. Acceptance criteria and story points
// are folded into the description so they survive instances without the
// matching custom fields.
func (c *Client) CreateUserStory(ctx context.Context, draft models.StoryDraft) (models.Story, error) {
	priority := draft.Priority
	if priority == "" {
		priority = "Medium"
	}

	description := draft.Description
	if len(draft.AcceptanceCriteria) > 0 {
		var b strings.Builder
		b.WriteString(description)
		b.WriteString("\n\nAcceptance Criteria:\n")
		for i, crit := range draft.AcceptanceCriteria {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, crit.Text, crit.Priority)
		}
		description = strings.TrimRight(b.String(), "\n")
	}

	fields := map[string]any{
		"project":     map[string]string{"key": c.projectKey},
		"summary":     draft.Title,
		"description": description,
		"issuetype":   map[string]string{"name": "Story"},
		"priority":    map[string]string{"name": priority},
	}
	if draft.StoryPoints > 0 {
		fields[c.fieldConfig().StoryPoints] = draft.StoryPoints
	}
	if len(draft.Labels) > 0 {
		fields["labels"] = draft.Labels
	}

	created, err := c.createIssue(ctx, fields)
	if err != nil {
		return models.Story{}, err
	}
	c.logger.Info().Str("key", created.Key).Str("title", draft.Title).Msg("user story created")

	return models.Story{
		Key:         created.Key,
		ID:          created.ID,
		Title:       draft.Title,
		Description: description,
		Status:      "To Do",
		Priority:    priority,
		StoryPoints: draft.StoryPoints,
		URL:         c.browseURL(created.Key),
	}, nil
}

// LinkStoryToEpic attaches a story to its epic. Callers treat failures as
// non-fatal: the story exists either way.
func (c *Client) LinkStoryToEpic(ctx context.Context, storyKey, epicKey string) error {
	payload := map[string]any{
		"type":         map[string]string{"name": "Relates"},
		"inwardIssue":  map[string]string{"key": storyKey},
		"outwardIssue": map[string]string{"key": epicKey},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal link: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/rest/api/2/issueLink", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.logger.Debug().Str("story", storyKey).Str("epic", epicKey).Msg("story linked to epic")
	return nil
}

// GetEpic fetches an epic by key.
func (c *Client) GetEpic(ctx context.Context, key string) (models.Epic, error) {
	resp, err := c.do(ctx, http.MethodGet, "/rest/api/2/issue/"+url.PathEscape(key), nil)
	if err != nil {
		return models.Epic{}, err
	}
	var is issue
	if err := decodeResponse(resp, &is); err != nil {
		return models.Epic{}, err
	}
	return models.Epic{
		Key:         is.Key,
		ID:          is.ID,
		Title:       is.Fields.Summary,
		Description: is.Fields.Description,
		Status:      is.Fields.Status.Name,
		Priority:    is.Fields.Priority.Name,
		Labels:      is.Fields.Labels,
		URL:         c.browseURL(is.Key),
	}, nil
}

// GetEpicStories lists the stories linked to an epic via JQL.
func (c *Client) GetEpicStories(ctx context.Context, epicKey string) ([]models.Story, error) {
	jql := fmt.Sprintf(`project = %s AND "Epic Link" = %s AND issuetype = Story`, c.projectKey, epicKey)
	path := "/rest/api/2/search?jql=" + url.QueryEscape(jql)

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var result searchResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}

	stories := make([]models.Story, 0, len(result.Issues))
	for _, is := range result.Issues {
		stories = append(stories, models.Story{
			Key:         is.Key,
			ID:          is.ID,
			EpicKey:     epicKey,
			Title:       is.Fields.Summary,
			Description: is.Fields.Description,
			Status:      is.Fields.Status.Name,
			Priority:    is.Fields.Priority.Name,
			URL:         c.browseURL(is.Key),
		})
	}
	return stories, nil
}

// Myself verifies credentials, used as the health check.
func (c *Client) Myself(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/rest/api/2/myself", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
