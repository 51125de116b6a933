package service

import (
	"context"
	"fmt"

	"viptips-platform/internal/dto"
	"viptips-platform/internal/model"
	"viptips-platform/internal/repository"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 50
)

// vipLockedPlaceholder is what non-entitled callers see instead of the real
// pick. The tip itself is never omitted from a response.
const vipLockedPlaceholder = "Unlock this pick with a VIP subscription or token."

type TipService interface {
	GetTip(ctx context.Context, user *model.User, tipID uint) (*dto.TipResponse, error)
	ListTips(ctx context.Context, user *model.User, limit, offset int) (*dto.TipListResponse, error)
}

type tipServiceImpl struct {
	tipRepo        repository.TipRepository
	entitlement    EntitlementService
	guestPageLimit int
}

func NewTipService(
	tipRepo repository.TipRepository,
	entitlement EntitlementService,
	guestPageLimit int,
) TipService {
	return &tipServiceImpl{
		tipRepo:        tipRepo,
		entitlement:    entitlement,
		guestPageLimit: guestPageLimit,
	}
}

func (s *tipServiceImpl) GetTip(ctx context.Context, user *model.User, tipID uint) (*dto.TipResponse, error) {
	tip, err := s.tipRepo.FindByID(ctx, tipID)
	if err != nil {
		return nil, fmt.Errorf("find tip %d: %w", tipID, err)
	}

	if !tip.IsVIP {
		return tipResponse(tip, true), nil
	}

	if user == nil || user.Guest {
		return tipResponse(tip, false), nil
	}

	granted := ResolveClosed(s.entitlement.HasVIPAccess(ctx, user.ID, &tipID))
	return tipResponse(tip, granted), nil
}

func (s *tipServiceImpl) ListTips(ctx context.Context, user *model.User, limit, offset int) (*dto.TipListResponse, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	guest := user == nil || user.Guest
	if guest && limit > s.guestPageLimit {
		limit = s.guestPageLimit
	}

	tips, err := s.tipRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}

	// Listings only consider universal access: subscriptions and general
	// tokens. Tip-bound tokens unlock their tip on the detail view.
	canVIP := false
	if !guest {
		canVIP = ResolveClosed(s.entitlement.HasAnyVIPAccess(ctx, user.ID))
	}

	resp := &dto.TipListResponse{Tips: make([]*dto.TipResponse, len(tips))}
	for i, tip := range tips {
		resp.Tips[i] = tipResponse(tip, !tip.IsVIP || canVIP)
	}

	return resp, nil
}

func tipResponse(tip *model.Tip, full bool) *dto.TipResponse {
	resp := &dto.TipResponse{
		ID:      tip.ID,
		Title:   tip.Title,
		Sport:   tip.Sport,
		League:  tip.League,
		Market:  tip.Market,
		Odds:    tip.Odds.String(),
		IsVIP:   tip.IsVIP,
		MatchAt: tip.MatchAt,
		Result:  tip.Result,
	}

	if full {
		resp.Content = tip.Content
		resp.TicketSnapshots = tip.TicketSnapshots
		return resp
	}

	resp.VIPLocked = true
	resp.Content = vipLockedPlaceholder
	return resp
}
