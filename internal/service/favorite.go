package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/promptdeck/promptdeck/internal/ledger"
)

// FavoriteStatus is returned by the favorite endpoints.
type FavoriteStatus struct {
	IsFavorite    bool  `json:"is_favorite"`
	FavoriteCount int64 `json:"favorite_count"`
}

// Favorite adds the template to the principal's favorite set. Repeat calls
// are no-ops and never double-count.
func (s *TemplateService) Favorite(ctx context.Context, principal uuid.UUID, id uuid.UUID) (*FavoriteStatus, error) {
	if _, err := s.fetchLive(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.ledger.AddFavorite(ctx, id, principal); err != nil {
		return nil, wrapLedgerErr(err)
	}
	return s.favoriteStatus(ctx, id, &principal)
}

// Unfavorite removes the template from the principal's favorite set.
// Removing a non-favorited template succeeds without effect.
func (s *TemplateService) Unfavorite(ctx context.Context, principal uuid.UUID, id uuid.UUID) (*FavoriteStatus, error) {
	if _, err := s.fetchLive(ctx, id); err != nil {
		return nil, err
	}
	if _, err := s.ledger.RemoveFavorite(ctx, id, principal); err != nil {
		return nil, wrapLedgerErr(err)
	}
	return s.favoriteStatus(ctx, id, &principal)
}

// GetFavoriteStatus reports the favorite membership and count for a
// template. principal may be nil for anonymous callers, in which case
// IsFavorite is always false.
func (s *TemplateService) GetFavoriteStatus(ctx context.Context, principal *uuid.UUID, id uuid.UUID) (*FavoriteStatus, error) {
	if _, err := s.fetchLive(ctx, id); err != nil {
		return nil, err
	}
	return s.favoriteStatus(ctx, id, principal)
}

func (s *TemplateService) favoriteStatus(ctx context.Context, id uuid.UUID, principal *uuid.UUID) (*FavoriteStatus, error) {
	status := &FavoriteStatus{}

	count, err := s.ledger.FavoriteCount(ctx, id)
	if err != nil {
		return nil, err
	}
	status.FavoriteCount = count

	if principal != nil {
		fav, err := s.ledger.IsFavorite(ctx, id, *principal)
		if err != nil {
			return nil, err
		}
		status.IsFavorite = fav
	}
	return status, nil
}

// wrapLedgerErr maps an exhausted counter retry into the conflict error
// surfaced at the boundary.
func wrapLedgerErr(err error) error {
	if errors.Is(err, ledger.ErrCounterUpdate) {
		return &ConflictError{Message: "counter update failed, please retry"}
	}
	return err
}
