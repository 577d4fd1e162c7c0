// Package diff は新着リスティングの差分検出と永続化を行う。
package diff

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/listingwatch/internal/model"
	"github.com/hitoshi/listingwatch/internal/repository"
)

const (
	// maxTitleLength / maxCompanyLength は保存時の列幅に合わせた上限。
	maxTitleLength   = 1000
	maxCompanyLength = 200
)

// Service は抽出結果と永続化済みリスティングの差分を検出し、新着分だけを保存する。
// 判定キーは (siteID, externalID) の組で、一度保存された組は二度と新着にならない。
type Service struct {
	listingRepo repository.ListingRepository
	logger      *slog.Logger
}

// NewService はServiceを生成する。
func NewService(listingRepo repository.ListingRepository, logger *slog.Logger) *Service {
	return &Service{listingRepo: listingRepo, logger: logger}
}

// DetectNew は候補のうち未保存のものだけを返す。
// ExternalIDが空の候補は同一性を判定できないため新着として扱わない。
// 永続化を挟まなければ同じ入力に対して常に同じ結果を返す。
func (s *Service) DetectNew(ctx context.Context, siteID string, candidates []model.ScrapedListing) ([]model.ScrapedListing, error) {
	existingIDs, err := s.listingRepo.ListExternalIDs(ctx, siteID)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(existingIDs))
	for _, id := range existingIDs {
		known[id] = true
	}

	var fresh []model.ScrapedListing
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		if candidate.ExternalID == "" {
			continue
		}
		if known[candidate.ExternalID] || seen[candidate.ExternalID] {
			continue
		}
		seen[candidate.ExternalID] = true
		fresh = append(fresh, candidate)
	}

	return fresh, nil
}

// PersistNew は新着候補をListingとして1行ずつ保存し、保存に成功した行を返す。
// 1行の挿入失敗（一意制約の競合など）はログに記録してスキップし、
// 他の行の挿入には影響させない。
func (s *Service) PersistNew(ctx context.Context, siteID string, fresh []model.ScrapedListing) []*model.Listing {
	now := time.Now()

	var persisted []*model.Listing
	for _, candidate := range fresh {
		listing := &model.Listing{
			ID:              uuid.New().String(),
			SiteID:          siteID,
			ExternalID:      candidate.ExternalID,
			Title:           truncate(candidate.Title, maxTitleLength),
			Company:         truncate(candidate.Company, maxCompanyLength),
			Price:           candidate.Price,
			URL:             candidate.URL,
			City:            candidate.City,
			CreatedAtOnSite: candidate.CreatedAtOnSite,
			FirstSeenAt:     now,
			LastSeenAt:      now,
			IsActive:        true,
		}

		if err := s.listingRepo.Create(ctx, listing); err != nil {
			s.logger.Warn("リスティングの保存に失敗しました",
				slog.String("site_id", siteID),
				slog.String("external_id", candidate.ExternalID),
				slog.String("error", err.Error()),
			)
			continue
		}
		persisted = append(persisted, listing)
	}

	return persisted
}

// truncate は上限を超えるテキストを省略記号付きで切り詰める。
func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
