package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/shared"
)

// Plan is a billing plan. Free plans are capped per calendar month; pro plans are unlimited.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// Unlimited reports whether the plan has no monthly cap.
func (p Plan) Unlimited() bool {
	return p == PlanPro
}

// ParsePlan parses "free" or "pro".
func ParsePlan(s string) (Plan, error) {
	p := Plan(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown plan %q (want free or pro)", shared.ErrInvalidArgument, s)
	}
	return p, nil
}

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// Subscription links a user to a plan.
type Subscription struct {
	UserID    string             `json:"user_id"`
	Plan      Plan               `json:"plan"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"start_date"`
	EndDate   *time.Time         `json:"end_date,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// NewFreeSubscription returns the default subscription for a user without one.
func NewFreeSubscription(userID string) *Subscription {
	now := time.Now().UTC()
	return &Subscription{UserID: userID, Plan: PlanFree, Status: StatusActive, StartDate: now, CreatedAt: now, UpdatedAt: now}
}

// EffectivePlan returns the plan in force at t. Inactive or ended subscriptions fall back to free.
func (s *Subscription) EffectivePlan(t time.Time) Plan {
	if s == nil || s.Status != StatusActive {
		return PlanFree
	}
	if s.EndDate != nil && !t.Before(*s.EndDate) {
		return PlanFree
	}
	return s.Plan
}

func (s *Subscription) Validate() error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("%w: user id is required", shared.ErrInvalidInput)
	case !s.Plan.Valid():
		return fmt.Errorf("%w: invalid plan %q", shared.ErrInvalidInput, s.Plan)
	case s.Status != StatusActive && s.Status != StatusCancelled && s.Status != StatusExpired:
		return fmt.Errorf("%w: invalid status %q", shared.ErrInvalidInput, s.Status)
	}
	return nil
}
