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
	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

// ReconcilerService converges local subscription and token state with the
// billing provider's webhook stream. Deliveries are at-least-once and
// unordered; every handler is safe to repeat and token minting is gated by
// an atomic per-event claim.
type ReconcilerService interface {
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
}

type reconcilerServiceImpl struct {
	db               *gorm.DB
	webhookSecret    string
	subscriptionRepo repository.SubscriptionRepository
	tokenRepo        repository.VIPTokenRepository
	webhookEventRepo repository.WebhookEventRepository
	analyticsRepo    repository.AnalyticsRepository
}

func NewReconcilerService(
	db *gorm.DB,
	webhookSecret string,
	subscriptionRepo repository.SubscriptionRepository,
	tokenRepo repository.VIPTokenRepository,
	webhookEventRepo repository.WebhookEventRepository,
	analyticsRepo repository.AnalyticsRepository,
) ReconcilerService {
	return &reconcilerServiceImpl{
		db:               db,
		webhookSecret:    webhookSecret,
		subscriptionRepo: subscriptionRepo,
		tokenRepo:        tokenRepo,
		webhookEventRepo: webhookEventRepo,
		analyticsRepo:    analyticsRepo,
	}
}

func (s *reconcilerServiceImpl) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch event.Type {
	case "customer.subscription.created":
		return s.handleSubscriptionCreated(ctx, &event)
	case "customer.subscription.updated":
		return s.handleSubscriptionUpdated(ctx, &event)
	case "customer.subscription.deleted":
		return s.handleSubscriptionDeleted(ctx, &event)
	case "invoice.paid":
		return s.handleInvoicePaid(ctx, &event)
	case "invoice.payment_failed":
		return s.handleInvoicePaymentFailed(ctx, &event)
	default:
		log.Info().
			Str("event_id", event.ID).
			Str("type", string(event.Type)).
			Msg("webhook ignored (unhandled type)")
		return nil
	}
}

// processOnce runs fn inside a transaction gated by an atomic claim on the
// event id. A duplicate delivery commits the empty transaction and returns
// nil. When fn fails everything rolls back, the claim included, so the
// provider's redelivery gets a clean retry.
func (s *reconcilerServiceImpl) processOnce(ctx context.Context, eventID, eventType string, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.webhookEventRepo.ClaimEvent(ctx, tx, eventID, eventType)
		if err != nil {
			return fmt.Errorf("claim webhook event: %w", err)
		}
		if !claimed {
			log.Info().
				Str("event_id", eventID).
				Str("type", eventType).
				Msg("duplicate webhook delivery, skipping")
			return nil
		}
		return fn(tx)
	})
}

func (s *reconcilerServiceImpl) handleSubscriptionCreated(ctx context.Context, event *stripelib.Event) error {
	var payload model.StripeSubscription
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("decode subscription payload: %w", err)
	}

	userID, err := s.resolveUserID(ctx, &payload)
	if err != nil {
		return err
	}
	planID := resolvePlanID(&payload)

	return s.processOnce(ctx, event.ID, string(event.Type), func(tx *gorm.DB) error {
		sub := subscriptionFromPayload(userID, planID, &payload)
		if err := s.subscriptionRepo.Upsert(ctx, tx, sub); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", payload.ID, err)
		}

		if err := s.mintTokens(ctx, tx, userID, planID, payload.ID, false); err != nil {
			return err
		}

		s.record(ctx, "subscription_created", userID, payload.ID)
		return nil
	})
}

func (s *reconcilerServiceImpl) handleSubscriptionUpdated(ctx context.Context, event *stripelib.Event) error {
	var payload model.StripeSubscription
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("decode subscription payload: %w", err)
	}

	userID, err := s.resolveUserID(ctx, &payload)
	if err != nil {
		return err
	}
	planID := resolvePlanID(&payload)

	return s.processOnce(ctx, event.ID, string(event.Type), func(tx *gorm.DB) error {
		// Same upsert as creation but no minting: an update arriving before
		// its created event still converges on the provider's state.
		sub := subscriptionFromPayload(userID, planID, &payload)
		if err := s.subscriptionRepo.Upsert(ctx, tx, sub); err != nil {
			return fmt.Errorf("upsert subscription %s: %w", payload.ID, err)
		}

		s.record(ctx, "subscription_updated", userID, payload.ID)
		return nil
	})
}

func (s *reconcilerServiceImpl) handleSubscriptionDeleted(ctx context.Context, event *stripelib.Event) error {
	var payload model.StripeSubscription
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("decode subscription payload: %w", err)
	}

	canceledAt := time.Now()
	if payload.CanceledAt > 0 {
		canceledAt = time.Unix(payload.CanceledAt, 0)
	}

	return s.processOnce(ctx, event.ID, string(event.Type), func(tx *gorm.DB) error {
		if err := s.subscriptionRepo.Cancel(ctx, tx, payload.ID, canceledAt); err != nil {
			return fmt.Errorf("cancel subscription %s: %w", payload.ID, err)
		}

		s.record(ctx, "subscription_canceled", "", payload.ID)
		return nil
	})
}

func (s *reconcilerServiceImpl) handleInvoicePaid(ctx context.Context, event *stripelib.Event) error {
	var payload model.StripeInvoice
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("decode invoice payload: %w", err)
	}

	// Only renewal cycles mint; the initial invoice is covered by the
	// subscription.created grant.
	if payload.BillingReason != "subscription_cycle" {
		log.Debug().
			Str("event_id", event.ID).
			Str("billing_reason", payload.BillingReason).
			Msg("invoice.paid ignored (not a renewal cycle)")
		return nil
	}
	if payload.Subscription == "" {
		return fmt.Errorf("invoice %s has no subscription reference", payload.ID)
	}

	// The local row is the source for user and plan. A renewal invoice for a
	// subscription we have not seen yet fails and is redelivered after the
	// created event lands.
	sub, err := s.subscriptionRepo.GetByStripeID(ctx, payload.Subscription)
	if err != nil {
		return fmt.Errorf("look up subscription %s for renewal: %w", payload.Subscription, err)
	}

	return s.processOnce(ctx, event.ID, string(event.Type), func(tx *gorm.DB) error {
		if err := s.mintTokens(ctx, tx, sub.UserID, sub.PlanID, sub.StripeSubscriptionID, true); err != nil {
			return err
		}

		s.record(ctx, "subscription_renewed", sub.UserID, sub.StripeSubscriptionID)
		return nil
	})
}

func (s *reconcilerServiceImpl) handleInvoicePaymentFailed(ctx context.Context, event *stripelib.Event) error {
	var payload model.StripeInvoice
	if err := json.Unmarshal(event.Data.Raw, &payload); err != nil {
		return fmt.Errorf("decode invoice payload: %w", err)
	}

	// Record-only: the provider's own subscription.updated carries any
	// status change.
	s.record(ctx, "invoice_payment_failed", "", payload.Subscription)
	return nil
}

// mintTokens creates one batch of tokens for a plan grant. Not idempotent on
// its own; callers gate it with processOnce.
func (s *reconcilerServiceImpl) mintTokens(ctx context.Context, tx *gorm.DB, userID, planID, subscriptionRef string, renewal bool) error {
	grant, err := GrantForPlan(planID)
	if err != nil {
		return err
	}

	source := model.TokenSourceSubscription
	if renewal {
		source = model.TokenSourceRenewal
	}

	batchID := uuid.NewString()
	expiresAt := time.Now().Add(tokenValidity)

	tokens := make([]*model.VIPToken, grant.Count)
	for i := range tokens {
		tokens[i] = &model.VIPToken{
			Code:            uuid.NewString(),
			UserID:          userID,
			Type:            grant.TokenType,
			Quantity:        1,
			Used:            0,
			ExpiresAt:       expiresAt,
			BatchID:         batchID,
			Source:          source,
			PlanID:          planID,
			SubscriptionRef: subscriptionRef,
			Renewal:         renewal,
		}
	}

	if err := s.tokenRepo.CreateBatch(ctx, tx, tokens); err != nil {
		return fmt.Errorf("mint token batch for %s: %w", userID, err)
	}

	log.Info().
		Str("user_id", userID).
		Str("plan_id", planID).
		Str("batch_id", batchID).
		Bool("renewal", renewal).
		Int("count", grant.Count).
		Msg("minted vip tokens")
	return nil
}

// resolveUserID maps a provider subscription to a platform user: checkout
// stamps user_id into subscription metadata, and an already-reconciled row
// covers events that lost it.
func (s *reconcilerServiceImpl) resolveUserID(ctx context.Context, payload *model.StripeSubscription) (string, error) {
	if userID := payload.Metadata["user_id"]; userID != "" {
		return userID, nil
	}

	sub, err := s.subscriptionRepo.GetByStripeID(ctx, payload.ID)
	if err != nil {
		return "", fmt.Errorf("subscription %s has no user_id metadata and no local row: %w", payload.ID, err)
	}
	return sub.UserID, nil
}

func resolvePlanID(payload *model.StripeSubscription) string {
	if planID := payload.Metadata["plan_id"]; planID != "" {
		return planID
	}
	for _, item := range payload.Items.Data {
		if planID := item.Price.Metadata["plan_id"]; planID != "" {
			return planID
		}
	}
	return payload.FirstPriceID()
}

func subscriptionFromPayload(userID, planID string, payload *model.StripeSubscription) *model.Subscription {
	sub := &model.Subscription{
		UserID:               userID,
		StripeSubscriptionID: payload.ID,
		StripeCustomerID:     payload.Customer,
		PlanID:               planID,
		Status:               payload.Status,
		CurrentPeriodStart:   time.Unix(payload.CurrentPeriodStart, 0),
		CurrentPeriodEnd:     time.Unix(payload.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:    payload.CancelAtPeriodEnd,
	}
	if payload.TrialEnd > 0 {
		trialEnd := time.Unix(payload.TrialEnd, 0)
		sub.TrialEnd = &trialEnd
	}
	if payload.CanceledAt > 0 {
		canceledAt := time.Unix(payload.CanceledAt, 0)
		sub.CanceledAt = &canceledAt
	}
	return sub
}

func (s *reconcilerServiceImpl) record(ctx context.Context, name, userID, ref string) {
	metadata, _ := json.Marshal(map[string]string{"subscription_ref": ref})
	if err := s.analyticsRepo.Record(ctx, name, userID, string(metadata)); err != nil {
		log.Warn().Err(err).Str("event", name).Msg("record analytics event")
	}
}
