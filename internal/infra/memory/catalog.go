package memory

import (
	"cmp"
	"context"
	"slices"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

type ProductRepository struct{ v view }

func (r *ProductRepository) FindByID(_ context.Context, id int64) (model.Product, error) {
	defer r.v.lock()()
	p, ok := r.v.s.st.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r *ProductRepository) ListByIDs(_ context.Context, ids []int64) ([]model.Product, error) {
	defer r.v.lock()()
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := r.v.s.st.products[id]; ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b model.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *ProductRepository) Snapshot(ctx context.Context, id int64) (model.ProductSnapshot, error) {
	p, err := r.FindByID(ctx, id)
	if err != nil {
		return model.ProductSnapshot{}, err
	}
	return p.Snapshot(), nil
}

type InventoryRepository struct{ v view }

func (r *InventoryRepository) DecreaseStockIfEnough(_ context.Context, productID int64, qty int64) (bool, error) {
	defer r.v.lock()()
	p, ok := r.v.s.st.products[productID]
	if !ok || p.InStock < qty {
		return false, nil
	}
	p.InStock -= qty
	r.v.s.st.products[productID] = p
	return true, nil
}

func (r *InventoryRepository) IncreaseStock(_ context.Context, productID int64, qty int64) error {
	defer r.v.lock()()
	p, ok := r.v.s.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.InStock += qty
	r.v.s.st.products[productID] = p
	return nil
}

func (r *InventoryRepository) GetStock(_ context.Context, productID int64) (int64, error) {
	defer r.v.lock()()
	p, ok := r.v.s.st.products[productID]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return p.InStock, nil
}
