package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"viptips-platform/internal/model"
	"viptips-platform/internal/repository"

	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

func newReconciler(db *gorm.DB) ReconcilerService {
	return NewReconcilerService(
		db, testWebhookSecret,
		repository.NewSubscriptionRepository(db),
		repository.NewVIPTokenRepository(db),
		repository.NewWebhookEventRepository(db),
		repository.NewAnalyticsRepository(db),
	)
}

func signEvent(t *testing.T, eventJSON string) ([]byte, string) {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(eventJSON),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func eventJSON(t *testing.T, eventID, eventType string, object map[string]interface{}) string {
	t.Helper()
	envelope := map[string]interface{}{
		"id":     eventID,
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	}
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return string(raw)
}

func subscriptionObject(subID, userID, planID, status string, periodEnd time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":                   subID,
		"object":               "subscription",
		"customer":             "cus_test",
		"status":               status,
		"current_period_start": periodEnd.Add(-30 * 24 * time.Hour).Unix(),
		"current_period_end":   periodEnd.Unix(),
		"cancel_at_period_end": false,
		"metadata": map[string]string{
			"user_id": userID,
			"plan_id": planID,
		},
	}
}

func deliver(t *testing.T, svc ReconcilerService, eventJSON string) error {
	t.Helper()
	payload, header := signEvent(t, eventJSON)
	return svc.HandleWebhook(context.Background(), payload, header)
}

func countRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(value).Count(&count).Error)
	return count
}

func TestInvalidSignatureRejected(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	body := eventJSON(t, "evt_1", "customer.subscription.created",
		subscriptionObject("sub_1", "user-1", PlanStarter, "active", time.Now().Add(30*24*time.Hour)))

	err := svc.HandleWebhook(context.Background(), []byte(body), "t=123,v1=bogus")
	require.ErrorIs(t, err, ErrInvalidSignature)

	require.Zero(t, countRows(t, db, &model.Subscription{}))
	require.Zero(t, countRows(t, db, &model.WebhookEvent{}))
}

func TestSubscriptionCreatedUpsertsAndMints(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	periodEnd := time.Now().Add(30 * 24 * time.Hour)

	body := eventJSON(t, "evt_created_1", "customer.subscription.created",
		subscriptionObject("sub_1", user.ID, PlanStarter, "active", periodEnd))
	require.NoError(t, deliver(t, svc, body))

	var sub model.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_1").First(&sub).Error)
	require.Equal(t, user.ID, sub.UserID)
	require.Equal(t, PlanStarter, sub.PlanID)
	require.Equal(t, model.SubscriptionStatusActive, sub.Status)
	require.WithinDuration(t, periodEnd, sub.CurrentPeriodEnd, time.Second)

	var tokens []*model.VIPToken
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&tokens).Error)
	require.Len(t, tokens, 5) // starter grant
	for _, token := range tokens {
		require.Equal(t, model.TokenTypeGeneral, token.Type)
		require.EqualValues(t, 1, token.Quantity)
		require.EqualValues(t, 0, token.Used)
		require.Equal(t, tokens[0].BatchID, token.BatchID)
		require.Equal(t, "sub_1", token.SubscriptionRef)
		require.False(t, token.Renewal)
		require.True(t, token.ExpiresAt.After(time.Now()))
	}
}

func TestDuplicateDeliveryIsNoOp(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	trialEnd := time.Now().Add(14 * 24 * time.Hour)
	object := subscriptionObject("sub_dup", user.ID, PlanTrial, "trialing", trialEnd)
	object["trial_end"] = trialEnd.Unix()
	body := eventJSON(t, "evt_dup_1", "customer.subscription.created", object)

	require.NoError(t, deliver(t, svc, body))
	require.NoError(t, deliver(t, svc, body)) // duplicate acked, no side effects

	require.EqualValues(t, 1, countRows(t, db, &model.Subscription{}))

	var sub model.Subscription
	require.NoError(t, db.First(&sub).Error)
	require.Equal(t, model.SubscriptionStatusTrialing, sub.Status)
	require.NotNil(t, sub.TrialEnd)
	require.WithinDuration(t, trialEnd, *sub.TrialEnd, time.Second)

	var batches []string
	require.NoError(t, db.Model(&model.VIPToken{}).Distinct("batch_id").Pluck("batch_id", &batches).Error)
	require.Len(t, batches, 1)
	require.EqualValues(t, 2, countRows(t, db, &model.VIPToken{})) // trial grant
}

func TestRenewalMintsDistinctBatch(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_2", "customer.subscription.created",
		subscriptionObject("sub_renew", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))

	renewal := eventJSON(t, "evt_invoice_1", "invoice.paid", map[string]interface{}{
		"id":             "in_1",
		"object":         "invoice",
		"subscription":   "sub_renew",
		"billing_reason": "subscription_cycle",
	})
	require.NoError(t, deliver(t, svc, renewal))

	var batches []string
	require.NoError(t, db.Model(&model.VIPToken{}).Distinct("batch_id").Pluck("batch_id", &batches).Error)
	require.Len(t, batches, 2)
	require.EqualValues(t, 10, countRows(t, db, &model.VIPToken{}))

	var renewalTokens []*model.VIPToken
	require.NoError(t, db.Where("renewal = ?", true).Find(&renewalTokens).Error)
	require.Len(t, renewalTokens, 5)
	for _, token := range renewalTokens {
		require.Equal(t, model.TokenSourceRenewal, token.Source)
	}
}

func TestInitialInvoiceDoesNotMint(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_3", "customer.subscription.created",
		subscriptionObject("sub_first", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))

	first := eventJSON(t, "evt_invoice_2", "invoice.paid", map[string]interface{}{
		"id":             "in_2",
		"object":         "invoice",
		"subscription":   "sub_first",
		"billing_reason": "subscription_create",
	})
	require.NoError(t, deliver(t, svc, first))

	require.EqualValues(t, 5, countRows(t, db, &model.VIPToken{}))
}

func TestRenewalForUnknownSubscriptionFailsForRedelivery(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	renewal := eventJSON(t, "evt_invoice_3", "invoice.paid", map[string]interface{}{
		"id":             "in_3",
		"object":         "invoice",
		"subscription":   "sub_not_yet",
		"billing_reason": "subscription_cycle",
	})
	require.Error(t, deliver(t, svc, renewal))

	// The event was not claimed, so the provider's redelivery can retry it
	// after the created event lands.
	require.Zero(t, countRows(t, db, &model.WebhookEvent{}))

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_4", "customer.subscription.created",
		subscriptionObject("sub_not_yet", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))
	require.NoError(t, deliver(t, svc, renewal))

	require.EqualValues(t, 10, countRows(t, db, &model.VIPToken{}))
}

func TestSubscriptionUpdatedDoesNotMint(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_5", "customer.subscription.created",
		subscriptionObject("sub_upd", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))

	updated := eventJSON(t, "evt_updated_1", "customer.subscription.updated",
		subscriptionObject("sub_upd", user.ID, PlanStarter, "past_due", time.Now().Add(30*24*time.Hour)))
	require.NoError(t, deliver(t, svc, updated))

	var sub model.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_upd").First(&sub).Error)
	require.Equal(t, model.SubscriptionStatusPastDue, sub.Status)
	require.EqualValues(t, 1, countRows(t, db, &model.Subscription{}))
	require.EqualValues(t, 5, countRows(t, db, &model.VIPToken{}))
}

func TestSubscriptionDeletedCancels(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_6", "customer.subscription.created",
		subscriptionObject("sub_del", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))

	canceledAt := time.Now()
	object := subscriptionObject("sub_del", user.ID, PlanStarter, "canceled", time.Now().Add(30*24*time.Hour))
	object["canceled_at"] = canceledAt.Unix()
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_deleted_1", "customer.subscription.deleted", object)))

	var sub model.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_del").First(&sub).Error)
	require.Equal(t, model.SubscriptionStatusCanceled, sub.Status)
	require.NotNil(t, sub.CanceledAt)
	require.WithinDuration(t, canceledAt, *sub.CanceledAt, time.Second)
}

func TestUnknownPlanRollsBackEverything(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	body := eventJSON(t, "evt_mystery_1", "customer.subscription.created",
		subscriptionObject("sub_mystery", user.ID, "mystery_plan", "active", time.Now().Add(30*24*time.Hour)))

	err := deliver(t, svc, body)
	require.ErrorIs(t, err, ErrUnknownPlan)

	// The subscription upsert and the event claim roll back with the failed
	// mint, so redelivery retries the whole event.
	require.Zero(t, countRows(t, db, &model.Subscription{}))
	require.Zero(t, countRows(t, db, &model.VIPToken{}))
	require.Zero(t, countRows(t, db, &model.WebhookEvent{}))
}

func TestInvoicePaymentFailedIsRecordOnly(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	user := seedUser(t, db, false)
	require.NoError(t, deliver(t, svc, eventJSON(t, "evt_created_7", "customer.subscription.created",
		subscriptionObject("sub_fail", user.ID, PlanStarter, "active", time.Now().Add(30*24*time.Hour)))))

	failed := eventJSON(t, "evt_failed_1", "invoice.payment_failed", map[string]interface{}{
		"id":           "in_4",
		"object":       "invoice",
		"subscription": "sub_fail",
	})
	require.NoError(t, deliver(t, svc, failed))

	var sub model.Subscription
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_fail").First(&sub).Error)
	require.Equal(t, model.SubscriptionStatusActive, sub.Status)

	var analytics []model.AnalyticsEvent
	require.NoError(t, db.Where("name = ?", "invoice_payment_failed").Find(&analytics).Error)
	require.Len(t, analytics, 1)
}

func TestUnhandledEventTypeAcked(t *testing.T) {
	db := setupDB(t)
	svc := newReconciler(db)

	body := eventJSON(t, "evt_other_1", "charge.succeeded", map[string]interface{}{
		"id":     "ch_1",
		"object": "charge",
	})
	require.NoError(t, deliver(t, svc, body))
	require.Zero(t, countRows(t, db, &model.WebhookEvent{}))
}
