package usecase

import (
	"context"
	"errors"
	"log/slog"

	"cartengine/internal/domain/model"
	"cartengine/internal/metrics"
	repo "cartengine/internal/repository"
)

// Reservation は商品単位の確保量（在庫はバリアント単位ではない）
type Reservation struct {
	ProductID int64
	Quantity  int64
}

// StockGuard は在庫の確保と戻しを行う。
// 減算は1文の条件付き UPDATE なので、同時実行でも在庫が負にならない。
type StockGuard struct {
	inventory repo.InventoryRepository
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewStockGuard(inventory repo.InventoryRepository, m *metrics.Metrics, logger *slog.Logger) *StockGuard {
	return &StockGuard{inventory: inventory, metrics: m, logger: logger}
}

// WithInventory はトランザクション内の在庫リポジトリを使う複製を返す
func (g *StockGuard) WithInventory(inventory repo.InventoryRepository) *StockGuard {
	return &StockGuard{inventory: inventory, metrics: g.metrics, logger: g.logger}
}

// CanReserve は書き込まずに在庫を確認する（表示用のヒント）
func (g *StockGuard) CanReserve(p model.Product, qty int64) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	if qty > p.InStock {
		return &model.InsufficientStockError{ProductID: p.ID, Requested: qty, Available: p.InStock}
	}
	return nil
}

// Available は現在の在庫。読めなければ -1。
func (g *StockGuard) Available(ctx context.Context, productID int64) int64 {
	n, err := g.inventory.GetStock(ctx, productID)
	if err != nil {
		return -1
	}
	return n
}

func (g *StockGuard) CheckAndReserve(ctx context.Context, productID int64, qty int64) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}

	ok, err := g.inventory.DecreaseStockIfEnough(ctx, productID, qty)
	if err != nil {
		g.metrics.Reservation("error")
		return err
	}
	if ok {
		g.metrics.Reservation("reserved")
		return nil
	}

	g.metrics.Reservation("insufficient")
	available, err := g.inventory.GetStock(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.ErrProductNotFound
	}
	if err != nil {
		available = -1
	}
	return &model.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

func (g *StockGuard) Release(ctx context.Context, productID int64, qty int64) error {
	if qty < 1 {
		return model.ErrInvalidQuantity
	}
	if err := g.inventory.IncreaseStock(ctx, productID, qty); err != nil {
		return err
	}
	g.metrics.Reservation("released")
	return nil
}

// ReserveAll は商品ごとに数量をまとめてから順に確保し、
// 途中で失敗したら確保済みを逆順で戻してから失敗を返す。
// 在庫は商品単位なので、同じ商品の別バリアントは1回の確保になる。
func (g *StockGuard) ReserveAll(ctx context.Context, lines []Reservation) error {
	merged := mergeByProduct(lines)
	done := make([]Reservation, 0, len(merged))
	for _, l := range merged {
		if err := g.CheckAndReserve(ctx, l.ProductID, l.Quantity); err != nil {
			g.compensate(ctx, done)
			return err
		}
		done = append(done, l)
	}
	return nil
}

// 初出順を保ったまま商品ごとに合算する
func mergeByProduct(lines []Reservation) []Reservation {
	out := make([]Reservation, 0, len(lines))
	pos := make(map[int64]int, len(lines))
	for _, l := range lines {
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// ReleaseAll はキャンセル時の戻し。最初のエラーで止める（呼び出し側でロールバック）。
func (g *StockGuard) ReleaseAll(ctx context.Context, lines []Reservation) error {
	for _, l := range lines {
		if err := g.Release(ctx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (g *StockGuard) compensate(ctx context.Context, done []Reservation) {
	for i := len(done) - 1; i >= 0; i-- {
		l := done[i]
		if err := g.Release(ctx, l.ProductID, l.Quantity); err != nil {
			g.logger.Error("stock compensation failed", "product_id", l.ProductID, "quantity", l.Quantity, "error", err)
		}
	}
}
