// Package service holds the application use cases that sit between the HTTP
// handlers and the repositories.
package service

import (
	"context"
	"errors"
	"log/slog"

	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/observability"
	"shopagg/internal/repository"
	"shopagg/internal/session"
)

// Identity is who a request acts for. UserID is zero for anonymous callers,
// whose state lives in Session.
type Identity struct {
	UserID  uint
	Session *session.Session
}

// Authenticated reports whether the identity is a logged-in user.
func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

func (i Identity) kind() string {
	if i.Authenticated() {
		return "user"
	}
	return "anonymous"
}

// LikeLedger is the like set of one identity.
type LikeLedger interface {
	Toggle(ctx context.Context, productID uint) (models.LikeState, error)
	Contains(ctx context.Context, productID uint) (bool, error)
	AllIDs(ctx context.Context) ([]uint, error)
	// MergeInto persists pending likes for userID and returns how many were
	// added. Ledgers that are already persistent return 0.
	MergeInto(ctx context.Context, userID uint) (int, error)
}

type userLedger struct {
	userID   uint
	likes    repository.LikeRepository
	products repository.ProductRepository
}

func (l *userLedger) Toggle(ctx context.Context, productID uint) (models.LikeState, error) {
	if _, err := l.products.GetByID(ctx, productID); err != nil {
		return "", err
	}

	err := l.likes.Insert(ctx, l.userID, productID)
	if err == nil {
		return models.LikeStateLiked, nil
	}
	if !errors.Is(err, models.ErrLikeConflict) {
		return "", err
	}

	observability.LikeConflicts.Inc()
	if _, err := l.likes.Delete(ctx, l.userID, productID); err != nil {
		return "", err
	}
	return models.LikeStateUnliked, nil
}

func (l *userLedger) Contains(ctx context.Context, productID uint) (bool, error) {
	return l.likes.Exists(ctx, l.userID, productID)
}

func (l *userLedger) AllIDs(ctx context.Context) ([]uint, error) {
	return l.likes.ProductIDs(ctx, l.userID)
}

func (l *userLedger) MergeInto(context.Context, uint) (int, error) {
	return 0, nil
}

type sessionLedger struct {
	sess     *session.Session
	likes    repository.LikeRepository
	products repository.ProductRepository
}

func (l *sessionLedger) Toggle(ctx context.Context, productID uint) (models.LikeState, error) {
	if _, err := l.products.GetByID(ctx, productID); err != nil {
		return "", err
	}
	if l.sess.RemoveLike(productID) {
		return models.LikeStateUnliked, nil
	}
	l.sess.AddLike(productID)
	return models.LikeStateLiked, nil
}

func (l *sessionLedger) Contains(_ context.Context, productID uint) (bool, error) {
	return l.sess.HasLike(productID), nil
}

func (l *sessionLedger) AllIDs(context.Context) ([]uint, error) {
	return l.sess.LikedProductIDs(), nil
}

// MergeInto inserts the pending likes that still point at live products and
// empties the session list. Pairs the user already likes count as merged.
func (l *sessionLedger) MergeInto(ctx context.Context, userID uint) (int, error) {
	pending := l.sess.LikedProductIDs()
	if len(pending) == 0 {
		return 0, nil
	}

	live, err := l.products.ExistingIDs(ctx, pending)
	if err != nil {
		return 0, err
	}
	added, err := l.likes.InsertMissing(ctx, userID, live)
	if err != nil {
		return 0, err
	}
	l.sess.ClearLikes()

	observability.LikeMerges.WithLabelValues("added").Add(float64(added))
	observability.LikeMerges.WithLabelValues("existing").Add(float64(int64(len(live)) - added))
	observability.LikeMerges.WithLabelValues("skipped").Add(float64(len(pending) - len(live)))

	middleware.Logger.InfoContext(ctx, "Merged anonymous likes",
		slog.Uint64("user_id", uint64(userID)),
		slog.Int("pending", len(pending)),
		slog.Int64("added", added),
	)
	return int(added), nil
}
