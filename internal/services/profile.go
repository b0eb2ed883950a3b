package services

import (
	"context"
	"errors"
	"strings"

	"github.com/pranganb/vtube/internal/apperr"
	"github.com/pranganb/vtube/internal/store"
	"github.com/pranganb/vtube/types"
)

// ProfileRepository runs the read-side aggregations.
type ProfileRepository interface {
	ChannelProfile(ctx context.Context, username, viewerID string) (types.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]types.WatchHistoryEntry, error)
}

type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// ChannelProfile returns subscriber stats for the channel named username as
// seen by viewerID.
func (s *ProfileService) ChannelProfile(ctx context.Context, username, viewerID string) (types.ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.ChannelProfile{}, apperr.Validation("username is missing")
	}

	profile, err := s.repo.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.ChannelProfile{}, apperr.NotFound("channel does not exist")
		}
		return types.ChannelProfile{}, apperr.Internal("failed to load channel", err)
	}
	return profile, nil
}

func (s *ProfileService) WatchHistory(ctx context.Context, userID string) ([]types.WatchHistoryEntry, error) {
	history, err := s.repo.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to load watch history", err)
	}
	return history, nil
}
