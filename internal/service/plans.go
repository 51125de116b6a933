package service

import (
	"fmt"
	"time"

	"viptips-platform/internal/model"
)

const (
	PlanStarter = "starter"
	PlanPro     = "pro"
	PlanTrial   = "trial"
)

// tokenValidity is the expiry horizon stamped on every minted token.
const tokenValidity = 365 * 24 * time.Hour

type PlanGrant struct {
	TokenType model.TokenType
	Count     int
}

// planGrants is the exhaustive plan-to-grant table. A plan missing here is a
// hard error, not a silent fallthrough.
var planGrants = map[string]PlanGrant{
	PlanStarter: {TokenType: model.TokenTypeGeneral, Count: 5},
	PlanPro:     {TokenType: model.TokenTypeGeneral, Count: 20},
	PlanTrial:   {TokenType: model.TokenTypeTrial, Count: 2},
}

func GrantForPlan(planID string) (PlanGrant, error) {
	grant, ok := planGrants[planID]
	if !ok {
		return PlanGrant{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	return grant, nil
}
