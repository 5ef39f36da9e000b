package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Mock EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) PublishStoryPublished(ctx context.Context, storyID int64, authorID uint64) error {
	args := m.Called(ctx, storyID, authorID)
	return args.Error(0)
}

func (m *EventPublisher) PublishStorySuspended(ctx context.Context, storyID int64, suspended bool) error {
	args := m.Called(ctx, storyID, suspended)
	return args.Error(0)
}

func (m *EventPublisher) PublishSessionEnded(ctx context.Context, sessionID string, userID uint64, storyID int64, endingPageID *int64) error {
	args := m.Called(ctx, sessionID, userID, storyID, endingPageID)
	return args.Error(0)
}
