package service

import (
	"context"
	"fmt"
	"time"

	"viptips-platform/internal/repository"

	"github.com/rs/zerolog/log"
)

// EntitlementService decides whether a user may see VIP content. Every
// lookup failure resolves to denial; access is never granted on ambiguous
// state.
type EntitlementService interface {
	// HasVIPAccess reports access to a single VIP resource. tipID nil means
	// "any VIP content", in which case only subscriptions and general tokens
	// count.
	HasVIPAccess(ctx context.Context, userID string, tipID *uint) (bool, error)
	HasAnyVIPAccess(ctx context.Context, userID string) (bool, error)
}

type entitlementServiceImpl struct {
	userRepo         repository.UserRepository
	subscriptionRepo repository.SubscriptionRepository
	tokenRepo        repository.VIPTokenRepository
}

func NewEntitlementService(
	userRepo repository.UserRepository,
	subscriptionRepo repository.SubscriptionRepository,
	tokenRepo repository.VIPTokenRepository,
) EntitlementService {
	return &entitlementServiceImpl{
		userRepo:         userRepo,
		subscriptionRepo: subscriptionRepo,
		tokenRepo:        tokenRepo,
	}
}

func (s *entitlementServiceImpl) HasVIPAccess(ctx context.Context, userID string, tipID *uint) (bool, error) {
	if userID == "" {
		return false, nil
	}

	// Callers reject guests before getting here; this is the backstop.
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("look up user %s: %w", userID, err)
	}
	if user.Guest {
		return false, nil
	}

	now := time.Now()

	// An active subscription grants every VIP resource.
	sub, err := s.subscriptionRepo.FindActiveForUser(ctx, userID, now)
	if err != nil {
		return false, fmt.Errorf("look up active subscription: %w", err)
	}
	if sub != nil {
		return true, nil
	}

	if tipID != nil {
		token, err := s.tokenRepo.FindUsableForTip(ctx, userID, *tipID, now)
		if err != nil {
			return false, fmt.Errorf("look up tip token: %w", err)
		}
		if token != nil {
			return true, nil
		}
	}

	token, err := s.tokenRepo.FindUsableGeneral(ctx, userID, now)
	if err != nil {
		return false, fmt.Errorf("look up general token: %w", err)
	}
	if token != nil {
		return true, nil
	}

	return false, nil
}

func (s *entitlementServiceImpl) HasAnyVIPAccess(ctx context.Context, userID string) (bool, error) {
	return s.HasVIPAccess(ctx, userID, nil)
}

// ResolveClosed wraps a resolver result for callers that only want the
// boolean: any error is logged and collapses to denial.
func ResolveClosed(granted bool, err error) bool {
	if err != nil {
		log.Warn().Err(err).Msg("entitlement lookup failed, denying access")
		return false
	}
	return granted
}
