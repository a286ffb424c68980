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

// CartUsecase は /cart の業務ロジック。カートはユーザーごとにサーバ側で持つ。
type CartUsecase struct {
	cartItems repo.CartItemRepository
	products  repo.ProductRepository
	snapshots repo.ProductSnapshotReader
	guard     *StockGuard
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewCartUsecase(
	cartItems repo.CartItemRepository,
	products repo.ProductRepository,
	snapshots repo.ProductSnapshotReader,
	guard *StockGuard,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CartUsecase {
	return &CartUsecase{
		cartItems: cartItems,
		products:  products,
		snapshots: snapshots,
		guard:     guard,
		metrics:   m,
		logger:    logger,
	}
}

type AddCartInput struct {
	ProductID   int64
	ProductType string
	Quantity    int64
	variant.Selection
}

type UpdateCartInput struct {
	ProductID   int64
	ProductType string
	VariantKey  string
	Quantity    int64
}

type RemoveCartInput struct {
	ProductID   int64
	ProductType string
	VariantKey  string
}

type CartLineOutput struct {
	ID         int64             `json:"id"`
	VariantKey string            `json:"variant_key"`
	Variant    map[string]string `json:"variant"`
	Quantity   int64             `json:"quantity"`
	Subtotal   int64             `json:"subtotal"`
}

// CartGroup は商品ごとのまとまり
type CartGroup struct {
	Product  model.ProductSnapshot `json:"product"`
	Lines    []CartLineOutput      `json:"lines"`
	Subtotal int64                 `json:"subtotal"`
}

type CartOutput struct {
	Groups        []CartGroup `json:"groups"`
	TotalQuantity int64       `json:"total_quantity"`
	TotalAmount   int64       `json:"total_amount"`
}

type LineFailure struct {
	Line   model.LineRef `json:"line"`
	Reason string        `json:"reason"`
}

// LineResult は一部失敗しうる一括削除の結果
type LineResult struct {
	Succeeded []model.LineRef `json:"succeeded"`
	Failed    []LineFailure   `json:"failed"`
}

// AddToCart は同一明細なら数量を加算する。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartOutput{}, toHTTPError(model.ErrInvalidQuantity)
	}

	p, key, err := u.resolveLine(ctx, in.ProductID, in.ProductType, in.Selection)
	if err != nil {
		u.metrics.CartMutation("add", "rejected")
		return CartOutput{}, toHTTPError(err)
	}

	//事前チェック（表示用。最終判定は下の1文）
	if err := u.guard.CanReserve(p, in.Quantity); err != nil {
		u.metrics.CartMutation("add", "insufficient")
		return CartOutput{}, toHTTPError(err)
	}

	ok, err := u.cartItems.IncrementLine(ctx, model.CartItem{
		UserID:      userID,
		ProductID:   p.ID,
		VariantKey:  key.String(),
		ProductType: p.Category,
		Quantity:    in.Quantity,
	})
	if err != nil {
		u.logger.Error("cart increment failed", "user_id", userID, "product_id", p.ID, "error", err)
		return CartOutput{}, toHTTPError(err)
	}
	if !ok {
		u.metrics.CartMutation("add", "insufficient")
		return CartOutput{}, toHTTPError(u.insufficient(ctx, userID, p.ID, key, in.Quantity))
	}

	u.metrics.CartMutation("add", "ok")
	return u.GetCart(ctx, userID)
}

// UpdateQuantity は数量を絶対値で設定する。0 は削除ではなくエラー。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, userID int64, in UpdateCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.Quantity < 1 {
		return CartOutput{}, toHTTPError(model.ErrInvalidQuantity)
	}
	ref, err := u.lineRef(ctx, in.ProductID, in.ProductType, in.VariantKey, false)
	if err != nil {
		return CartOutput{}, toHTTPError(err)
	}

	ok, err := u.cartItems.SetQuantity(ctx, userID, ref, in.Quantity)
	if errors.Is(err, repo.ErrNotFound) {
		return CartOutput{}, toHTTPError(model.ErrCartLineNotFound)
	}
	if err != nil {
		u.logger.Error("cart set quantity failed", "user_id", userID, "product_id", ref.ProductID, "error", err)
		return CartOutput{}, toHTTPError(err)
	}
	if !ok {
		u.metrics.CartMutation("update", "insufficient")
		return CartOutput{}, toHTTPError(&model.InsufficientStockError{
			ProductID: ref.ProductID, Requested: in.Quantity, Available: u.guard.Available(ctx, ref.ProductID),
		})
	}

	u.metrics.CartMutation("update", "ok")
	return u.GetCart(ctx, userID)
}

// RemoveFromCart は無くてもエラーにしない
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, in RemoveCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	ref, err := u.lineRef(ctx, in.ProductID, in.ProductType, in.VariantKey, true)
	if err != nil {
		return CartOutput{}, toHTTPError(err)
	}

	if err := u.cartItems.DeleteLine(ctx, userID, ref); err != nil {
		u.logger.Error("cart delete failed", "user_id", userID, "product_id", ref.ProductID, "error", err)
		return CartOutput{}, toHTTPError(err)
	}

	u.metrics.CartMutation("remove", "ok")
	return u.GetCart(ctx, userID)
}

// GetCart は明細を商品ごとにまとめ、現在の価格で小計を出す。
// 価格と在庫はDBの現在値、名前や画像はスナップショット（キャッシュ可）から取る。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	lines, err := u.cartItems.ListByUserID(ctx, userID)
	if err != nil {
		return CartOutput{}, toHTTPError(err)
	}

	live, err := u.liveProducts(ctx, lines)
	if err != nil {
		return CartOutput{}, toHTTPError(err)
	}

	out := CartOutput{Groups: []CartGroup{}}
	index := map[int64]int{}

	for _, l := range lines {
		p, ok := live[l.ProductID]
		if !ok {
			// 商品が消えた明細は表示しない（注文時にも対象外）
			u.logger.Warn("cart line references missing product", "user_id", userID, "product_id", l.ProductID)
			continue
		}
		gi, ok := index[l.ProductID]
		if !ok {
			out.Groups = append(out.Groups, CartGroup{Product: u.displaySnapshot(ctx, p), Lines: []CartLineOutput{}})
			gi = len(out.Groups) - 1
			index[l.ProductID] = gi
		}

		g := &out.Groups[gi]
		decoded, err := variant.Decode(l.ProductType, variant.Key(l.VariantKey))
		if err != nil {
			u.logger.Warn("undecodable variant key", "user_id", userID, "variant_key", l.VariantKey)
			decoded = map[string]string{}
		}
		sub := p.UnitPrice() * l.Quantity
		g.Lines = append(g.Lines, CartLineOutput{
			ID:         l.ID,
			VariantKey: l.VariantKey,
			Variant:    decoded,
			Quantity:   l.Quantity,
			Subtotal:   sub,
		})
		g.Subtotal += sub
		out.TotalQuantity += l.Quantity
		out.TotalAmount += sub
	}

	return out, nil
}

// ClearLines は購入済み明細をベストエフォートで消す。途中で止めない。
func (u *CartUsecase) ClearLines(ctx context.Context, userID int64, refs []model.LineRef) LineResult {
	res := LineResult{Succeeded: []model.LineRef{}, Failed: []LineFailure{}}
	for _, ref := range refs {
		if err := u.cartItems.DeleteLine(ctx, userID, ref); err != nil {
			u.logger.Warn("cart line clear failed", "user_id", userID, "product_id", ref.ProductID, "variant_key", ref.VariantKey, "error", err)
			res.Failed = append(res.Failed, LineFailure{Line: ref, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, ref)
	}
	return res
}

// 商品を取得し、カテゴリと選択を検証してキーを作る
func (u *CartUsecase) resolveLine(ctx context.Context, productID int64, productType string, sel variant.Selection) (model.Product, variant.Key, error) {
	category, err := variant.ParseCategory(productType)
	if err != nil {
		return model.Product{}, "", err
	}

	p, err := u.products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, "", model.ErrProductNotFound
	}
	if err != nil {
		return model.Product{}, "", err
	}
	if p.Category != category {
		return model.Product{}, "", fmt.Errorf("%w: product type mismatch", model.ErrInvalidSelection)
	}

	key, err := variant.Encode(p.Variants(), sel)
	if err != nil {
		return model.Product{}, "", err
	}
	return p, key, nil
}

// 加算できなかったときの詳細。既存数量を含めた要求量と現在の在庫を返す。
func (u *CartUsecase) insufficient(ctx context.Context, userID, productID int64, key variant.Key, delta int64) error {
	requested := delta
	if cur, err := u.cartItems.FindLine(ctx, userID, model.LineRef{ProductID: productID, VariantKey: key.String()}); err == nil {
		requested += cur.Quantity
	}
	return &model.InsufficientStockError{ProductID: productID, Requested: requested, Available: u.guard.Available(ctx, productID)}
}

// 明細の参照を作る。キーはその商品の正規形でなければならない。
// 商品が消えている場合、削除（allowMissing）だけは形式チェックのみで通す。
func (u *CartUsecase) lineRef(ctx context.Context, productID int64, productType, variantKey string, allowMissing bool) (model.LineRef, error) {
	if productID <= 0 {
		return model.LineRef{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	category, err := variant.ParseCategory(productType)
	if err != nil {
		return model.LineRef{}, err
	}
	if variantKey == "" {
		variantKey = variant.DefaultKey.String()
	}
	key := variant.Key(variantKey)

	p, err := u.products.FindByID(ctx, productID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if !allowMissing {
			return model.LineRef{}, model.ErrProductNotFound
		}
		if _, err := variant.Decode(category, key); err != nil {
			return model.LineRef{}, err
		}
	case err != nil:
		return model.LineRef{}, err
	default:
		if p.Category != category {
			return model.LineRef{}, fmt.Errorf("%w: product type mismatch", model.ErrInvalidSelection)
		}
		if err := variant.Validate(p.Variants(), key); err != nil {
			return model.LineRef{}, err
		}
	}
	return model.LineRef{ProductID: productID, VariantKey: variantKey}, nil
}

// 明細に出てくる商品を1回で読む。消えた商品はマップに入らない。
func (u *CartUsecase) liveProducts(ctx context.Context, lines []model.CartItem) (map[int64]model.Product, error) {
	out := map[int64]model.Product{}
	if len(lines) == 0 {
		return out, nil
	}
	ids := make([]int64, 0, len(lines))
	seen := map[int64]bool{}
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	products, err := u.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// 表示項目はスナップショットから、価格と在庫は現在値で上書きする
func (u *CartUsecase) displaySnapshot(ctx context.Context, p model.Product) model.ProductSnapshot {
	live := p.Snapshot()
	snap, err := u.snapshots.Snapshot(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			u.logger.Warn("product snapshot read failed", "product_id", p.ID, "error", err)
		}
		return live
	}
	snap.OriginalPrice = live.OriginalPrice
	snap.DiscountedPrice = live.DiscountedPrice
	snap.UnitPrice = live.UnitPrice
	snap.InStock = live.InStock
	return snap
}
