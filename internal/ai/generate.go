package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/p-blackswan/pm-agent/internal/intent"
	"github.com/p-blackswan/pm-agent/internal/models"
)

// GenerateFeatures asks the model for a feature breakdown of an epic and
// parses the reply as a plain list.
func (c *Client) GenerateFeatures(ctx context.Context, title, description string) ([]string, error) {
	text, err := c.complete(ctx, featureSystemPrompt, fmt.Sprintf(featureUserPrompt, title, description))
	if err != nil {
		return nil, err
	}
	features := intent.ParseFeatureList(text)
	c.logger.Debug().Str("epic", title).Int("features", len(features)).Msg("features generated")
	return features, nil
}

// GenerateUserStories produces one story draft per feature. Requests fan out
// concurrently; individual failures are logged and dropped so one bad feature
// never sinks the batch. Story order follows completion, not input order.
func (c *Client) GenerateUserStories(ctx context.Context, features []string, epicTitle string) ([]models.StoryDraft, error) {
	var (
		mu     sync.Mutex
		drafts []models.StoryDraft
		wg     sync.WaitGroup
	)
	for _, feature := range features {
		wg.Add(1)
		go func(feature string) {
			defer wg.Done()
			draft, err := c.generateUserStory(ctx, epicTitle, feature)
			if err != nil {
				c.logger.Warn().Err(err).Str("feature", feature).Msg("story generation failed, dropping feature")
				return
			}
			mu.Lock()
			drafts = append(drafts, draft)
			mu.Unlock()
		}(feature)
	}
	wg.Wait()
	c.logger.Debug().Int("features", len(features)).Int("stories", len(drafts)).Msg("stories generated")
	return drafts, nil
}

func (c *Client) generateUserStory(ctx context.Context, epicTitle, feature string) (models.StoryDraft, error) {
	text, err := c.complete(ctx, storySystemPrompt, fmt.Sprintf(storyUserPrompt, epicTitle, feature))
	if err != nil {
		return models.StoryDraft{}, err
	}
	return parseStoryDraft(text, feature), nil
}

// parseStoryDraft decodes a story JSON reply. Malformed JSON falls back to a
// single basic story built from the feature text.
func parseStoryDraft(content, feature string) models.StoryDraft {
	fallback := models.StoryDraft{
		Title:       "User story for " + feature,
		Description: fmt.Sprintf("As a user, I want %s so that I can benefit from this functionality.", strings.ToLower(feature)),
		StoryPoints: 3,
		Priority:    intent.PriorityMedium,
	}

	raw, ok := extractJSON(content)
	if !ok {
		return fallback
	}
	var draft models.StoryDraft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return fallback
	}
	if draft.Title == "" {
		draft.Title = fallback.Title
	}
	if draft.Description == "" {
		draft.Description = fallback.Description
	}
	if draft.StoryPoints == 0 {
		draft.StoryPoints = 3
	}
	if draft.Priority == "" {
		draft.Priority = intent.PriorityMedium
	}
	for i := range draft.AcceptanceCriteria {
		if draft.AcceptanceCriteria[i].Priority == "" {
			draft.AcceptanceCriteria[i].Priority = "Should"
		}
	}
	return draft
}

// AnalyzeDocumentsForEpics turns a combined document blob into epic proposals.
func (c *Client) AnalyzeDocumentsForEpics(ctx context.Context, combined string) ([]models.EpicProposal, error) {
	text, err := c.complete(ctx, analysisSystemPrompt, fmt.Sprintf(analysisUserPrompt, combined))
	if err != nil {
		return nil, err
	}
	proposals := parseProposals(text)
	c.logger.Debug().Int("proposals", len(proposals)).Msg("documents analyzed")
	return proposals, nil
}

// RegenerateEpicsWithFeedback reworks existing proposals per the reviewer's
// feedback. On a malformed reply the original proposals are kept so the user
// never loses the pending set.
func (c *Client) RegenerateEpicsWithFeedback(ctx context.Context, proposals []models.EpicProposal, feedback string) ([]models.EpicProposal, error) {
	current, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal proposals: %w", err)
	}
	text, err := c.complete(ctx, regenerateSystemPrompt, fmt.Sprintf(regenerateUserPrompt, current, feedback))
	if err != nil {
		return nil, err
	}
	regenerated := parseProposals(text)
	if len(regenerated) == 0 {
		c.logger.Warn().Msg("regeneration reply unparseable, keeping original proposals")
		return proposals, nil
	}
	return regenerated, nil
}

func parseProposals(content string) []models.EpicProposal {
	raw, ok := extractJSONArray(content)
	if !ok {
		return nil
	}
	var proposals []models.EpicProposal
	if err := json.Unmarshal([]byte(raw), &proposals); err != nil {
		return nil
	}
	kept := proposals[:0]
	for _, p := range proposals {
		if p.Title == "" {
			continue
		}
		p.Priority = intent.NormalizePriority(p.Priority)
		kept = append(kept, p)
	}
	return kept
}
