package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

// PreferenceVector is the per-request profile of a user's tastes. Each
// dimension is normalized by its own maximum, so weights only rank within a
// dimension, never across dimensions. Built fresh per request and discarded.
type PreferenceVector struct {
	Categories map[types.VideoCategory]float64
	Tags       map[string]float64
	Channels   map[uuid.UUID]float64
}

func (v PreferenceVector) IsEmpty() bool {
	return len(v.Categories) == 0 && len(v.Tags) == 0 && len(v.Channels) == 0
}

// preferenceDecayDays is the exponential decay constant: an interaction a
// month old contributes about a third of a fresh one.
const preferenceDecayDays = 30.0

const likeWeight = 2.0

type PreferenceService interface {
	// BuildPreferences derives the preference vector from the user's view
	// and like history. A user with no qualifying interactions gets an
	// empty vector; that is insufficient signal, not an error.
	BuildPreferences(ctx context.Context, userID uuid.UUID) (PreferenceVector, error)
}

type preferenceService struct {
	log             *logger.Logger
	videoRepo       repos.VideoRepo
	interactionRepo repos.InteractionRepo
}

func NewPreferenceService(log *logger.Logger, videoRepo repos.VideoRepo, interactionRepo repos.InteractionRepo) PreferenceService {
	return &preferenceService{
		log:             log.With("service", "PreferenceService"),
		videoRepo:       videoRepo,
		interactionRepo: interactionRepo,
	}
}

func (s *preferenceService) BuildPreferences(ctx context.Context, userID uuid.UUID) (PreferenceVector, error) {
	vector := PreferenceVector{
		Categories: map[types.VideoCategory]float64{},
		Tags:       map[string]float64{},
		Channels:   map[uuid.UUID]float64{},
	}

	interactions, err := s.interactionRepo.ListByUser(ctx, userID, types.InteractionView, types.InteractionLike)
	if err != nil {
		return vector, fmt.Errorf("list interactions: %w", err)
	}
	if len(interactions) == 0 {
		return vector, nil
	}

	videoIDs := make([]uuid.UUID, 0, len(interactions))
	seen := make(map[uuid.UUID]struct{}, len(interactions))
	for _, rec := range interactions {
		if _, ok := seen[rec.VideoID]; ok {
			continue
		}
		seen[rec.VideoID] = struct{}{}
		videoIDs = append(videoIDs, rec.VideoID)
	}

	videos, err := s.videoRepo.GetByIDs(ctx, videoIDs)
	if err != nil {
		return vector, fmt.Errorf("load interacted videos: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}

	now := time.Now().UTC()
	for _, rec := range interactions {
		video, ok := byID[rec.VideoID]
		if !ok {
			continue
		}
		daysOld := now.Sub(rec.CreatedAt).Hours() / 24.0
		if daysOld < 0 {
			daysOld = 0
		}
		timeWeight := math.Exp(-daysOld / preferenceDecayDays)
		typeWeight := 1.0
		if rec.Type == types.InteractionLike {
			typeWeight = likeWeight
		}
		contribution := timeWeight * typeWeight

		vector.Categories[video.Category] += contribution
		for _, tag := range video.Tags {
			vector.Tags[tag] += contribution
		}
		vector.Channels[video.ChannelID] += contribution
	}

	normalizeCategories(vector.Categories)
	normalizeTags(vector.Tags)
	normalizeChannels(vector.Channels)
	return vector, nil
}

func normalizeCategories(m map[types.VideoCategory]float64) {
	var max float64
	for _, w := range m {
		if w > max {
			max = w
		}
	}
	if max == 0 {
		return
	}
	for k, w := range m {
		m[k] = w / max
	}
}

func normalizeTags(m map[string]float64) {
	var max float64
	for _, w := range m {
		if w > max {
			max = w
		}
	}
	if max == 0 {
		return
	}
	for k, w := range m {
		m[k] = w / max
	}
}

func normalizeChannels(m map[uuid.UUID]float64) {
	var max float64
	for _, w := range m {
		if w > max {
			max = w
		}
	}
	if max == 0 {
		return
	}
	for k, w := range m {
		m[k] = w / max
	}
}
