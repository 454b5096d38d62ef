package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
)

// SubscriptionRepository stores each user's plan.
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new [SubscriptionRepository] with the given database connection
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Get returns the user's subscription, creating an active free one when none exists.
func (r *SubscriptionRepository) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	sub, err := r.find(ctx, userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query subscription: %w", err)
	}

	sub = models.NewFreeSubscription(userID)
	if err := r.Upsert(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// PlanFor resolves the plan in force for userID at t.
func (r *SubscriptionRepository) PlanFor(ctx context.Context, userID string, t time.Time) (models.Plan, error) {
	sub, err := r.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return sub.EffectivePlan(t), nil
}

// Upsert inserts or replaces the user's subscription.
func (r *SubscriptionRepository) Upsert(ctx context.Context, sub *models.Subscription) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	if sub.StartDate.IsZero() {
		sub.StartDate = now
	}
	sub.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, plan, status, start_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			plan = excluded.plan,
			status = excluded.status,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at
	`, sub.UserID, string(sub.Plan), string(sub.Status), sub.StartDate.UTC(), nullTime(sub.EndDate), sub.CreatedAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) find(ctx context.Context, userID string) (*models.Subscription, error) {
	var (
		sub          models.Subscription
		plan, status string
		endDate      sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, plan, status, start_date, end_date, created_at, updated_at
		FROM subscriptions WHERE user_id = ?
	`, userID).Scan(&sub.UserID, &plan, &status, &sub.StartDate, &endDate, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Plan = models.Plan(plan)
	sub.Status = models.SubscriptionStatus(status)
	sub.EndDate = timePtr(endDate)
	return &sub, nil
}
