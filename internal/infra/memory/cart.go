package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

type CartItemRepository struct{ v view }

func (r *CartItemRepository) find(userID int64, ref model.LineRef) (model.CartItem, bool) {
	for _, it := range r.v.s.st.cart {
		if it.UserID == userID && it.ProductID == ref.ProductID && it.VariantKey == ref.VariantKey {
			return it, true
		}
	}
	return model.CartItem{}, false
}

func (r *CartItemRepository) ListByUserID(_ context.Context, userID int64) ([]model.CartItem, error) {
	defer r.v.lock()()
	out := []model.CartItem{}
	for _, it := range r.v.s.st.cart {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b model.CartItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *CartItemRepository) FindLine(_ context.Context, userID int64, ref model.LineRef) (model.CartItem, error) {
	defer r.v.lock()()
	it, ok := r.find(userID, ref)
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

func (r *CartItemRepository) IncrementLine(_ context.Context, item model.CartItem) (bool, error) {
	defer r.v.lock()()
	p, ok := r.v.s.st.products[item.ProductID]
	if !ok {
		return false, nil
	}

	now := time.Now()
	cur, exists := r.find(item.UserID, model.LineRef{ProductID: item.ProductID, VariantKey: item.VariantKey})
	if !exists {
		if item.Quantity > p.InStock {
			return false, nil
		}
		item.ID = r.v.s.st.nextID()
		item.CreatedAt, item.UpdatedAt = now, now
		r.v.s.st.cart[item.ID] = item
		return true, nil
	}

	if cur.Quantity+item.Quantity > p.InStock {
		return false, nil
	}
	cur.Quantity += item.Quantity
	cur.UpdatedAt = now
	r.v.s.st.cart[cur.ID] = cur
	return true, nil
}

func (r *CartItemRepository) SetQuantity(_ context.Context, userID int64, ref model.LineRef, qty int64) (bool, error) {
	defer r.v.lock()()
	cur, ok := r.find(userID, ref)
	if !ok {
		return false, repo.ErrNotFound
	}
	if p, ok := r.v.s.st.products[ref.ProductID]; !ok || qty > p.InStock {
		return false, nil
	}
	cur.Quantity = qty
	cur.UpdatedAt = time.Now()
	r.v.s.st.cart[cur.ID] = cur
	return true, nil
}

func (r *CartItemRepository) DeleteLine(_ context.Context, userID int64, ref model.LineRef) error {
	defer r.v.lock()()
	if cur, ok := r.find(userID, ref); ok {
		delete(r.v.s.st.cart, cur.ID)
	}
	return nil
}

type WishlistRepository struct{ v view }

func (r *WishlistRepository) Add(_ context.Context, item model.WishlistItem) (bool, error) {
	defer r.v.lock()()
	for _, w := range r.v.s.st.wishlist {
		if w.UserID == item.UserID && w.ProductID == item.ProductID && w.ProductType == item.ProductType {
			return false, nil
		}
	}
	item.ID = r.v.s.st.nextID()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	r.v.s.st.wishlist[item.ID] = item
	return true, nil
}

func (r *WishlistRepository) Remove(_ context.Context, userID int64, productID int64, productType model.Category) error {
	defer r.v.lock()()
	for id, w := range r.v.s.st.wishlist {
		if w.UserID == userID && w.ProductID == productID && w.ProductType == productType {
			delete(r.v.s.st.wishlist, id)
		}
	}
	return nil
}

func (r *WishlistRepository) ListByUserID(_ context.Context, userID int64) ([]model.WishlistItem, error) {
	defer r.v.lock()()
	out := []model.WishlistItem{}
	for _, w := range r.v.s.st.wishlist {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	slices.SortFunc(out, func(a, b model.WishlistItem) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}
