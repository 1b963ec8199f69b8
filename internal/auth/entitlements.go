package auth

import (
	"time"

	"github.com/lemaitremot/maitremot/internal/model"
)

// Entitlements is what a caller may do, derived once per request from the
// Subscriber row and the clock. It is never cached across requests: a lapsed
// subscription downgrades on the very next call even while the session
// itself remains structurally valid.
type Entitlements struct {
	Pro              bool
	UnlimitedExports bool
	Personalization  bool
	SubscriptionType string
	ExpiresAt        *time.Time
}

// DeriveEntitlements computes the caller's entitlements. A nil subscriber or
// one whose expiry has passed yields the free tier.
func DeriveEntitlements(sub *model.Subscriber, now time.Time) Entitlements {
	if sub == nil || sub.SubscriptionExpires == nil || !sub.SubscriptionExpires.After(now) {
		return Entitlements{SubscriptionType: model.SubscriptionNone}
	}
	return Entitlements{
		Pro:              true,
		UnlimitedExports: true,
		Personalization:  true,
		SubscriptionType: sub.SubscriptionType,
		ExpiresAt:        sub.SubscriptionExpires,
	}
}
