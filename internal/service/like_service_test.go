package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"shopagg/internal/models"
	"shopagg/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeService_ToggleParity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.cat.NewProduct(t, "Mug")
	shopper := f.cat.NewUser(t, "shopper")

	identities := map[string]Identity{
		"user":      {UserID: shopper.ID, Session: session.New()},
		"anonymous": {Session: session.New()},
	}
	for name, id := range identities {
		t.Run(name, func(t *testing.T) {
			ledger := f.likes.Ledger(id)
			for i := 1; i <= 5; i++ {
				state, err := f.likes.Toggle(ctx, id, p.ID)
				require.NoError(t, err)

				liked, err := ledger.Contains(ctx, p.ID)
				require.NoError(t, err)
				assert.Equal(t, i%2 == 1, liked, "toggle %d", i)
				if i%2 == 1 {
					assert.Equal(t, models.LikeStateLiked, state)
				} else {
					assert.Equal(t, models.LikeStateUnliked, state)
				}
			}
		})
	}
}

func TestLikeService_ToggleMissingProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone := f.cat.NewProduct(t, "Gone")
	f.softDelete(t, gone)
	shopper := f.cat.NewUser(t, "shopper")

	for _, id := range []Identity{{UserID: shopper.ID}, {Session: session.New()}} {
		_, err := f.likes.Toggle(ctx, id, 9999)
		assertCode(t, err, models.CodeNotFound)

		_, err = f.likes.Toggle(ctx, id, gone.ID)
		assertCode(t, err, models.CodeNotFound)
	}
}

func TestLikeService_MergeOnLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.cat.NewProduct(t, "A")
	b := f.cat.NewProduct(t, "B")
	c := f.cat.NewProduct(t, "C")
	shopper := f.cat.NewUser(t, "shopper")

	user := Identity{UserID: shopper.ID}
	for _, p := range []models.Product{b, c} {
		_, err := f.likes.Toggle(ctx, user, p.ID)
		require.NoError(t, err)
	}

	sess := session.New()
	sess.AddLike(a.ID)
	sess.AddLike(b.ID)

	added, err := f.likes.MergeOnLogin(ctx, sess, shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Empty(t, sess.LikedProductIDs())

	ids, err := f.likes.Ledger(user).AllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{a.ID, b.ID, c.ID}, ids)

	again, err := f.likes.MergeOnLogin(ctx, sess, shopper.ID)
	require.NoError(t, err)
	assert.Zero(t, again)

	var rows int64
	require.NoError(t, f.db.Model(&models.Like{}).Where("user_id = ?", shopper.ID).Count(&rows).Error)
	assert.Equal(t, int64(3), rows)
}

func TestLikeService_MergeSkipsVanishedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.cat.NewProduct(t, "A")
	gone := f.cat.NewProduct(t, "Gone")
	f.softDelete(t, gone)
	shopper := f.cat.NewUser(t, "shopper")

	sess := session.New()
	sess.AddLike(a.ID)
	sess.AddLike(gone.ID)
	sess.AddLike(4242)

	added, err := f.likes.MergeOnLogin(ctx, sess, shopper.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Empty(t, sess.LikedProductIDs())
}

func TestLikeService_MergeEdgeCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	added, err := f.likes.MergeOnLogin(ctx, nil, 1)
	require.NoError(t, err)
	assert.Zero(t, added)

	added, err = f.likes.Ledger(Identity{UserID: 1}).MergeInto(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, added)

	sess := session.New()
	added, err = f.likes.MergeOnLogin(ctx, sess, 1)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.False(t, sess.Dirty())
}

func TestLikeService_ConcurrentTogglesKeepOneRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.cat.NewProduct(t, "Hot item")
	shopper := f.cat.NewUser(t, "shopper")
	id := Identity{UserID: shopper.ID}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.likes.Toggle(ctx, id, p.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var rows int64
	require.NoError(t, f.db.Model(&models.Like{}).
		Where("user_id = ? AND product_id = ?", shopper.ID, p.ID).Count(&rows).Error)
	assert.LessOrEqual(t, rows, int64(1))
}

func TestLikeService_AnnotateAndLikedProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.cat.NewProduct(t, "A")
	b := f.cat.NewProduct(t, "B")
	c := f.cat.NewProduct(t, "C")
	shopper := f.cat.NewUser(t, "shopper")

	anon := Identity{Session: session.New()}
	anon.Session.AddLike(c.ID)
	anon.Session.AddLike(a.ID)
	user := Identity{UserID: shopper.ID}
	_, err := f.likes.Toggle(ctx, user, b.ID)
	require.NoError(t, err)

	all := []models.Product{a, b, c}
	for name, tc := range map[string]struct {
		id    Identity
		liked []uint
	}{
		"anonymous": {anon, []uint{a.ID, c.ID}},
		"user":      {user, []uint{b.ID}},
	} {
		t.Run(name, func(t *testing.T) {
			cards, err := f.likes.Annotate(ctx, tc.id, all)
			require.NoError(t, err)
			require.Len(t, cards, 3)
			for _, card := range cards {
				assert.Equal(t, slices.Contains(tc.liked, card.ID), card.IsLiked, "product %d", card.ID)
			}

			liked, err := f.likes.LikedProducts(ctx, tc.id)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.liked, cardIDs(liked))
			for _, card := range liked {
				assert.True(t, card.IsLiked)
			}
		})
	}
}

func TestUserLedger_ConflictThenDeleteFailure(t *testing.T) {
	deleteErr := errors.New("connection reset")
	ledger := &userLedger{
		userID: 1,
		likes: &likeRepoStub{
			insertFn: func(context.Context, uint, uint) error { return models.ErrLikeConflict },
			deleteFn: func(context.Context, uint, uint) (bool, error) { return false, deleteErr },
		},
		products: &productRepoStub{getByIDFn: func(_ context.Context, id uint) (*models.Product, error) {
			return &models.Product{ID: id}, nil
		}},
	}

	_, err := ledger.Toggle(context.Background(), 7)
	assert.ErrorIs(t, err, deleteErr)
}

func TestUserLedger_InsertErrorPropagates(t *testing.T) {
	insertErr := models.NewInternalError(errors.New("disk full"))
	ledger := &userLedger{
		userID: 1,
		likes: &likeRepoStub{
			insertFn: func(context.Context, uint, uint) error { return insertErr },
			deleteFn: func(context.Context, uint, uint) (bool, error) {
				t.Fatal("delete must not run when insert fails for another reason")
				return false, nil
			},
		},
		products: &productRepoStub{getByIDFn: func(_ context.Context, id uint) (*models.Product, error) {
			return &models.Product{ID: id}, nil
		}},
	}

	_, err := ledger.Toggle(context.Background(), 7)
	assert.ErrorIs(t, err, insertErr)
}
