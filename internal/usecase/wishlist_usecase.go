package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cartengine/internal/domain/model"
	"cartengine/internal/domain/variant"
	"cartengine/internal/metrics"
	repo "cartengine/internal/repository"
)

type WishlistUsecase struct {
	wishlist  repo.WishlistRepository
	products  repo.ProductRepository
	snapshots repo.ProductSnapshotReader
	cart      *CartUsecase
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewWishlistUsecase(
	wishlist repo.WishlistRepository,
	products repo.ProductRepository,
	snapshots repo.ProductSnapshotReader,
	cart *CartUsecase,
	m *metrics.Metrics,
	logger *slog.Logger,
) *WishlistUsecase {
	return &WishlistUsecase{
		wishlist:  wishlist,
		products:  products,
		snapshots: snapshots,
		cart:      cart,
		metrics:   m,
		logger:    logger,
	}
}

type WishlistInput struct {
	ProductID   int64
	ProductType string
}

type MoveToCartInput struct {
	ProductID   int64
	ProductType string
	// nil なら各軸の先頭を選ぶ
	Selection *variant.Selection
}

type WishlistEntryView struct {
	ProductID   int64                 `json:"product_id"`
	ProductType model.Category        `json:"product_type"`
	Product     model.ProductSnapshot `json:"product"`
}

type MoveFailure struct {
	ProductID   int64          `json:"product_id"`
	ProductType model.Category `json:"product_type"`
	Reason      string         `json:"reason"`
}

type MoveAllResult struct {
	Moved     int           `json:"moved"`
	Total     int           `json:"total"`
	Succeeded []int64       `json:"succeeded"`
	Failed    []MoveFailure `json:"failed"`
}

// 既にあっても成功
func (u *WishlistUsecase) AddToWishlist(ctx context.Context, userID int64, in WishlistInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	category, err := u.checkProduct(ctx, in)
	if err != nil {
		return toHTTPError(err)
	}

	created, err := u.wishlist.Add(ctx, model.WishlistItem{
		UserID:      userID,
		ProductID:   in.ProductID,
		ProductType: category,
	})
	if err != nil {
		return toHTTPError(err)
	}
	if created {
		u.metrics.CartMutation("wishlist_add", "ok")
	} else {
		u.metrics.CartMutation("wishlist_add", "noop")
	}
	return nil
}

// 無くても成功
func (u *WishlistUsecase) RemoveFromWishlist(ctx context.Context, userID int64, in WishlistInput) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	category, err := variant.ParseCategory(in.ProductType)
	if err != nil {
		return toHTTPError(err)
	}
	if err := u.wishlist.Remove(ctx, userID, in.ProductID, category); err != nil {
		return toHTTPError(err)
	}
	u.metrics.CartMutation("wishlist_remove", "ok")
	return nil
}

func (u *WishlistUsecase) GetWishlist(ctx context.Context, userID int64) ([]WishlistEntryView, error) {
	if userID <= 0 {
		return []WishlistEntryView{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	entries, err := u.wishlist.ListByUserID(ctx, userID)
	if err != nil {
		return []WishlistEntryView{}, toHTTPError(err)
	}

	out := make([]WishlistEntryView, 0, len(entries))
	for _, e := range entries {
		snap, err := u.snapshots.Snapshot(ctx, e.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			u.logger.Warn("wishlist entry references missing product", "user_id", userID, "product_id", e.ProductID)
			continue
		}
		if err != nil {
			return []WishlistEntryView{}, toHTTPError(err)
		}
		out = append(out, WishlistEntryView{ProductID: e.ProductID, ProductType: e.ProductType, Product: snap})
	}
	return out, nil
}

// MoveToCart はカートに1個追加してからウィッシュリストから外す。
// 追加に失敗したらエントリは残す。外すのに失敗しても追加済みなので成功扱い。
func (u *WishlistUsecase) MoveToCart(ctx context.Context, userID int64, in MoveToCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	sel := in.Selection
	if sel == nil {
		p, err := u.products.FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return CartOutput{}, toHTTPError(model.ErrProductNotFound)
		}
		if err != nil {
			return CartOutput{}, toHTTPError(err)
		}
		d := variant.DefaultSelection(p.Variants())
		sel = &d
	}

	out, err := u.cart.AddToCart(ctx, userID, AddCartInput{
		ProductID:   in.ProductID,
		ProductType: in.ProductType,
		Quantity:    1,
		Selection:   *sel,
	})
	if err != nil {
		return CartOutput{}, err
	}

	category, _ := variant.ParseCategory(in.ProductType)
	if err := u.wishlist.Remove(ctx, userID, in.ProductID, category); err != nil {
		u.logger.Warn("wishlist remove after move failed", "user_id", userID, "product_id", in.ProductID, "error", err)
	}
	u.metrics.CartMutation("wishlist_move", "ok")
	return out, nil
}

// MoveAllToCart は1件ずつ順に移す。1件の失敗で全体を失敗にしない。
func (u *WishlistUsecase) MoveAllToCart(ctx context.Context, userID int64) (MoveAllResult, error) {
	res := MoveAllResult{Succeeded: []int64{}, Failed: []MoveFailure{}}
	if userID <= 0 {
		return res, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	entries, err := u.wishlist.ListByUserID(ctx, userID)
	if err != nil {
		return res, toHTTPError(err)
	}
	res.Total = len(entries)

	for _, e := range entries {
		_, err := u.MoveToCart(ctx, userID, MoveToCartInput{
			ProductID:   e.ProductID,
			ProductType: string(e.ProductType),
		})
		if err != nil {
			res.Failed = append(res.Failed, MoveFailure{
				ProductID:   e.ProductID,
				ProductType: e.ProductType,
				Reason:      failureReason(err),
			})
			continue
		}
		res.Succeeded = append(res.Succeeded, e.ProductID)
		res.Moved++
	}

	if len(res.Failed) > 0 {
		u.logger.Info("wishlist move-all partially failed", "user_id", userID, "moved", res.Moved, "failed", len(res.Failed))
	}
	return res, nil
}

func (u *WishlistUsecase) checkProduct(ctx context.Context, in WishlistInput) (model.Category, error) {
	category, err := variant.ParseCategory(in.ProductType)
	if err != nil {
		return "", err
	}
	p, err := u.products.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", model.ErrProductNotFound
	}
	if err != nil {
		return "", err
	}
	if p.Category != category {
		return "", fmt.Errorf("%w: product type mismatch", model.ErrInvalidSelection)
	}
	return category, nil
}

// 利用者に見せてよい理由だけを返す
func failureReason(err error) string {
	if he, ok := AsHTTPError(err); ok && he.Status < http.StatusInternalServerError {
		return he.Message
	}
	return "internal error"
}
