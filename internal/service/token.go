package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"viptips-platform/internal/model"
	"viptips-platform/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type TokenService interface {
	// Redeem consumes one use of the token identified by code. The guard on
	// expiry and remaining uses lives in the update itself, so concurrent
	// redemptions cannot overdraw a token.
	Redeem(ctx context.Context, user *model.User, code string) error
	ListForUser(ctx context.Context, userID string) ([]*model.VIPToken, error)
	// AdminMint creates a batch outside the billing flow, with the same
	// invariants stamped on every row.
	AdminMint(ctx context.Context, adminID, userID string, count int, validFor time.Duration, tipID *uint) ([]*model.VIPToken, error)
}

type tokenServiceImpl struct {
	db            *gorm.DB
	tokenRepo     repository.VIPTokenRepository
	analyticsRepo repository.AnalyticsRepository
}

func NewTokenService(
	db *gorm.DB,
	tokenRepo repository.VIPTokenRepository,
	analyticsRepo repository.AnalyticsRepository,
) TokenService {
	return &tokenServiceImpl{
		db:            db,
		tokenRepo:     tokenRepo,
		analyticsRepo: analyticsRepo,
	}
}

func (s *tokenServiceImpl) Redeem(ctx context.Context, user *model.User, code string) error {
	if user == nil || user.Guest {
		return ErrGuestForbidden
	}

	ok, err := s.tokenRepo.Redeem(ctx, user.ID, code, time.Now())
	if err != nil {
		return fmt.Errorf("redeem token: %w", err)
	}
	if !ok {
		return ErrTokenNotUsable
	}

	metadata, _ := json.Marshal(map[string]string{"code": code})
	if err := s.analyticsRepo.Record(ctx, "token_redeemed", user.ID, string(metadata)); err != nil {
		log.Warn().Err(err).Msg("record token redemption")
	}

	return nil
}

func (s *tokenServiceImpl) ListForUser(ctx context.Context, userID string) ([]*model.VIPToken, error) {
	return s.tokenRepo.ListByUser(ctx, userID)
}

func (s *tokenServiceImpl) AdminMint(ctx context.Context, adminID, userID string, count int, validFor time.Duration, tipID *uint) ([]*model.VIPToken, error) {
	if count <= 0 {
		return nil, fmt.Errorf("token count must be positive")
	}
	if validFor <= 0 {
		return nil, fmt.Errorf("token validity must be positive")
	}

	tokenType := model.TokenTypeGeneral
	if tipID != nil {
		tokenType = model.TokenTypeTip
	}

	batchID := uuid.NewString()
	expiresAt := time.Now().Add(validFor)

	tokens := make([]*model.VIPToken, count)
	for i := range tokens {
		tokens[i] = &model.VIPToken{
			Code:      uuid.NewString(),
			UserID:    userID,
			Type:      tokenType,
			TipID:     tipID,
			Quantity:  1,
			Used:      0,
			ExpiresAt: expiresAt,
			BatchID:   batchID,
			Source:    model.TokenSourceAdmin,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.tokenRepo.CreateBatch(ctx, tx, tokens)
	})
	if err != nil {
		return nil, fmt.Errorf("mint admin token batch: %w", err)
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"batch_id": batchID,
		"count":    count,
		"tip_id":   tipID,
	})
	if err := s.analyticsRepo.RecordAudit(ctx, adminID, "mint_tokens", userID, string(metadata)); err != nil {
		log.Warn().Err(err).Msg("record admin mint audit")
	}

	return tokens, nil
}
