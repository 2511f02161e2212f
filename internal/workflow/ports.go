package workflow

import (
	"context"

	"github.com/p-blackswan/pm-agent/internal/models"
)

// AI is the text-generation backend used by the workflows.
type AI interface {
	GenerateFeatures(ctx context.Context, title, description string) ([]string, error)
	GenerateUserStories(ctx context.Context, features []string, epicTitle string) ([]models.StoryDraft, error)
	ProcessMeetingNotes(ctx context.Context, meeting models.Meeting) (models.StructuredNotes, error)
	CreateConfluenceContent(ctx context.Context, meeting models.Meeting, notes models.StructuredNotes) (title, body string, err error)
	AnalyzeDocumentsForEpics(ctx context.Context, combined string) ([]models.EpicProposal, error)
	RegenerateEpicsWithFeedback(ctx context.Context, proposals []models.EpicProposal, feedback string) ([]models.EpicProposal, error)
}

// Tracker is the issue tracker the workflows create work items in.
type Tracker interface {
	CreateEpic(ctx context.Context, title, description, priority string, labels []string) (models.Epic, error)
	CreateUserStory(ctx context.Context, draft models.StoryDraft) (models.Story, error)
	LinkStoryToEpic(ctx context.Context, storyKey, epicKey string) error
	GetEpic(ctx context.Context, key string) (models.Epic, error)
	GetEpicStories(ctx context.Context, epicKey string) ([]models.Story, error)
}

// Publisher is the documentation surface meeting pages are published to.
type Publisher interface {
	CreatePage(ctx context.Context, spaceKey, title, body string, labels []string) (models.Page, error)
	UpdatePage(ctx context.Context, pageID, title, body string) (models.Page, error)
	SearchPages(ctx context.Context, cql string, limit int) ([]models.Page, error)
	ListSpaces(ctx context.Context) ([]models.Space, error)
}

// Calendar lists meetings for the documentation workflows.
type Calendar interface {
	RecentMeetings(ctx context.Context, daysBack int) ([]models.Meeting, error)
	SearchMeetings(ctx context.Context, keyword string, daysBack int) ([]models.Meeting, error)
}
