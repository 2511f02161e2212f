// Package models holds the domain records exchanged between the conversation
// core, the workflow orchestrator, and the external capability clients.
package models

import "time"

// Epic is a created Jira epic.
type Epic struct {
	Key         string
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	Labels      []string
	Features    []string
	URL         string
}

// Story is a created Jira user story linked to an epic.
type Story struct {
	Key         string
	ID          string
	EpicKey     string
	Title       string
	Description string
	Status      string
	Priority    string
	StoryPoints int
	URL         string
}

// AcceptanceCriterion is one testable condition on a story draft. Priority
// follows MoSCoW wording (Must/Should/Could); Should is the default.
type AcceptanceCriterion struct {
	Text     string `json:"criterion"`
	Priority string `json:"priority"`
}

// StoryDraft is an AI-generated user story before creation in the tracker.
type StoryDraft struct {
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria"`
	StoryPoints        int                   `json:"story_points"`
	Priority           string                `json:"priority"`
	Labels             []string              `json:"-"`
}

// EpicProposal is an AI-generated epic draft awaiting human approval.
type EpicProposal struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Features           []string `json:"features"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Priority           string   `json:"priority"`
	Labels             []string `json:"labels"`
}

// Meeting is a calendar event with its attached note material.
type Meeting struct {
	ID         string
	Title      string
	Date       time.Time
	Attendees  []string
	Notes      string
	Transcript string
	Duration   time.Duration
}

// ActionItem is one follow-up extracted from meeting notes.
type ActionItem struct {
	Text  string `json:"item"`
	Owner string `json:"owner"`
	Due   string `json:"due_date"`
}

// StructuredNotes is the AI-structured form of a meeting's raw notes.
type StructuredNotes struct {
	Title       string       `json:"title"`
	Summary     string       `json:"summary"`
	KeyPoints   []string     `json:"key_points"`
	Decisions   []string     `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	NextSteps   []string     `json:"next_steps"`
	Tags        []string     `json:"tags"`
}

// Page is a published Confluence page.
type Page struct {
	ID    string
	Title string
	Space string
	URL   string
}

// Space is a Confluence space.
type Space struct {
	Key  string
	Name string
}
