package db_models

// SubscriptionStatus mirrors the payment provider's subscription states.
type SubscriptionStatus string

const (
	SubStatusNone              SubscriptionStatus = ""
	SubStatusTrialing          SubscriptionStatus = "trialing"
	SubStatusActive            SubscriptionStatus = "active"
	SubStatusPastDue           SubscriptionStatus = "past_due"
	SubStatusUnpaid            SubscriptionStatus = "unpaid"
	SubStatusIncomplete        SubscriptionStatus = "incomplete"
	SubStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubStatusPaused            SubscriptionStatus = "paused"
	SubStatusCanceled          SubscriptionStatus = "canceled"
)

var knownSubscriptionStatuses = map[SubscriptionStatus]struct{}{
	SubStatusTrialing:          {},
	SubStatusActive:            {},
	SubStatusPastDue:           {},
	SubStatusUnpaid:            {},
	SubStatusIncomplete:        {},
	SubStatusPaused:            {},
	SubStatusCanceled:          {},
	SubStatusIncompleteExpired: {},
}

func (s SubscriptionStatus) Valid() bool {
	_, ok := knownSubscriptionStatuses[s]
	return ok
}
