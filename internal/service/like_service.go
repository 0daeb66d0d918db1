package service

import (
	"context"

	"shopagg/internal/models"
	"shopagg/internal/observability"
	"shopagg/internal/repository"
	"shopagg/internal/session"
)

type LikeService struct {
	likeRepo    repository.LikeRepository
	productRepo repository.ProductRepository
}

func NewLikeService(likeRepo repository.LikeRepository, productRepo repository.ProductRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo, productRepo: productRepo}
}

// Ledger returns the like set for id: persisted likes for a user, the session
// list otherwise.
func (s *LikeService) Ledger(id Identity) LikeLedger {
	if id.Authenticated() {
		return &userLedger{userID: id.UserID, likes: s.likeRepo, products: s.productRepo}
	}
	sess := id.Session
	if sess == nil {
		sess = session.New()
	}
	return &sessionLedger{sess: sess, likes: s.likeRepo, products: s.productRepo}
}

func (s *LikeService) Toggle(ctx context.Context, id Identity, productID uint) (models.LikeState, error) {
	state, err := s.Ledger(id).Toggle(ctx, productID)
	if err != nil {
		return "", err
	}
	observability.LikeToggles.WithLabelValues(id.kind(), string(state)).Inc()
	return state, nil
}

// MergeOnLogin moves the anonymous likes held in sess onto userID.
func (s *LikeService) MergeOnLogin(ctx context.Context, sess *session.Session, userID uint) (int, error) {
	if sess == nil {
		return 0, nil
	}
	ctx, span := observability.StartSpan(ctx, "likes.MergeOnLogin")
	merged, err := s.Ledger(Identity{Session: sess}).MergeInto(ctx, userID)
	observability.EndSpan(span, err)
	return merged, err
}

// LikedProducts lists the products id likes. Deleted products drop out.
func (s *LikeService) LikedProducts(ctx context.Context, id Identity) ([]models.ProductCard, error) {
	var products []models.Product
	var err error
	if id.Authenticated() {
		products, err = s.likeRepo.ListProducts(ctx, id.UserID)
	} else {
		var ids []uint
		ids, err = s.Ledger(id).AllIDs(ctx)
		if err == nil {
			products, err = s.productRepo.ListByIDs(ctx, ids)
		}
	}
	if err != nil {
		return nil, err
	}

	cards := make([]models.ProductCard, len(products))
	for i, p := range products {
		cards[i] = models.ProductCard{Product: p, IsLiked: true}
	}
	return cards, nil
}

// Annotate marks which of products id likes.
func (s *LikeService) Annotate(ctx context.Context, id Identity, products []models.Product) ([]models.ProductCard, error) {
	liked := make(map[uint]bool, len(products))
	if id.Authenticated() {
		ids := make([]uint, len(products))
		for i, p := range products {
			ids[i] = p.ID
		}
		var err error
		if liked, err = s.likeRepo.LikedAmong(ctx, id.UserID, ids); err != nil {
			return nil, err
		}
	} else if id.Session != nil {
		for _, p := range products {
			liked[p.ID] = id.Session.HasLike(p.ID)
		}
	}

	cards := make([]models.ProductCard, len(products))
	for i, p := range products {
		cards[i] = models.ProductCard{Product: p, IsLiked: liked[p.ID]}
	}
	return cards, nil
}
