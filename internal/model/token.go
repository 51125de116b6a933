package model

type TokenType = string

const (
	TokenTypeGeneral TokenType = "general"
	TokenTypeTrial   TokenType = "trial"
	TokenTypeTip     TokenType = "tip"
)

const (
	TokenSourceSubscription = "subscription"
	TokenSourceRenewal      = "renewal"
	TokenSourceAdmin        = "admin"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)
