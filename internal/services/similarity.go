package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/oultic/oultic-backend/internal/logger"
	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/types"
)

// minSharedInteractions filters out users whose overlap with the target is a
// single coincidence. It counts interaction records, not distinct videos: a
// view and a like on the same shared video are two records.
const minSharedInteractions = 3

// maxSimilarityCandidates bounds the candidate pool so the cost stays linear
// in interaction volume rather than quadratic in user count.
const maxSimilarityCandidates = 100

type SimilarUser struct {
	UserID uuid.UUID
	Score  float64
}

type SimilarityService interface {
	// FindSimilarUsers ranks other users by Jaccard overlap of
	// viewed-or-liked video sets. A target with no interactions gets an
	// empty list, not an error. Ties break by user id ascending.
	FindSimilarUsers(ctx context.Context, userID uuid.UUID, topK int) ([]SimilarUser, error)
}

type similarityService struct {
	log             *logger.Logger
	interactionRepo repos.InteractionRepo
}

func NewSimilarityService(log *logger.Logger, interactionRepo repos.InteractionRepo) SimilarityService {
	return &similarityService{
		log:             log.With("service", "SimilarityService"),
		interactionRepo: interactionRepo,
	}
}

func (s *similarityService) FindSimilarUsers(ctx context.Context, userID uuid.UUID, topK int) ([]SimilarUser, error) {
	if topK <= 0 {
		return []SimilarUser{}, nil
	}

	userVideos, err := s.interactionRepo.ListVideoIDsByUser(ctx, userID, types.InteractionView, types.InteractionLike)
	if err != nil {
		return nil, fmt.Errorf("list target interactions: %w", err)
	}
	if len(userVideos) == 0 {
		return []SimilarUser{}, nil
	}
	userSet := make(map[uuid.UUID]struct{}, len(userVideos))
	for _, id := range userVideos {
		userSet[id] = struct{}{}
	}

	grouped, err := s.interactionRepo.GroupByUserForVideos(ctx, userVideos, userID)
	if err != nil {
		return nil, fmt.Errorf("group candidate interactions: %w", err)
	}

	type candidate struct {
		userID  uuid.UUID
		records int
	}
	candidates := make([]candidate, 0, len(grouped))
	for otherID, overlap := range grouped {
		if overlap.Records < minSharedInteractions {
			continue
		}
		candidates = append(candidates, candidate{userID: otherID, records: overlap.Records})
	}
	// Deterministic cap: widest overlap first, user id breaks ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].records != candidates[j].records {
			return candidates[i].records > candidates[j].records
		}
		return candidates[i].userID.String() < candidates[j].userID.String()
	})
	if len(candidates) > maxSimilarityCandidates {
		candidates = candidates[:maxSimilarityCandidates]
	}

	similarities := make([]SimilarUser, 0, len(candidates))
	for _, cand := range candidates {
		otherVideos, err := s.interactionRepo.ListVideoIDsByUser(ctx, cand.userID, types.InteractionView, types.InteractionLike)
		if err != nil {
			return nil, fmt.Errorf("list candidate interactions: %w", err)
		}
		score := jaccard(userSet, otherVideos)
		if score > 0 {
			similarities = append(similarities, SimilarUser{UserID: cand.userID, Score: score})
		}
	}

	sort.Slice(similarities, func(i, j int) bool {
		if similarities[i].Score != similarities[j].Score {
			return similarities[i].Score > similarities[j].Score
		}
		return similarities[i].UserID.String() < similarities[j].UserID.String()
	})
	if len(similarities) > topK {
		similarities = similarities[:topK]
	}
	return similarities, nil
}

// jaccard is |intersection| / |union| of the target set and the other user's
// video list. Symmetric by construction.
func jaccard(target map[uuid.UUID]struct{}, other []uuid.UUID) float64 {
	if len(target) == 0 && len(other) == 0 {
		return 0
	}
	otherSet := make(map[uuid.UUID]struct{}, len(other))
	for _, id := range other {
		otherSet[id] = struct{}{}
	}
	intersection := 0
	for id := range otherSet {
		if _, ok := target[id]; ok {
			intersection++
		}
	}
	union := len(target) + len(otherSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
