package guardian

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hostguard/guardian-backend/internal/data/repos"
	types "github.com/hostguard/guardian-backend/internal/domain"
	"github.com/hostguard/guardian-backend/internal/pkg/dbctx"
)

// SubscriptionChecker reports whether a host may use Guardian.
type SubscriptionChecker interface {
	IsActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

type userSubscriptionChecker struct {
	users repos.UserRepo
	now   func() time.Time
}

// NewUserSubscriptionChecker reads subscription_status and
// subscription_ends_at from the user row.
func NewUserSubscriptionChecker(users repos.UserRepo) SubscriptionChecker {
	return &userSubscriptionChecker{users: users, now: time.Now}
}

func (c *userSubscriptionChecker) IsActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	u, err := c.users.GetByID(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return false, err
	}
	return SubscriptionActive(u, c.now()), nil
}

func SubscriptionActive(u *types.User, now time.Time) bool {
	if u == nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(u.SubscriptionStatus)) {
	case "active", "trialing":
	default:
		return false
	}
	if u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now) {
		return false
	}
	return true
}
