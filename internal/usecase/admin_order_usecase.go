package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

// AdminOrderUsecase は販売者向けの注文操作と、放置注文の照合
type AdminOrderUsecase struct {
	OrderDeps
	lifecycle *orderLifecycle
}

func NewAdminOrderUsecase(deps OrderDeps) *AdminOrderUsecase {
	return &AdminOrderUsecase{OrderDeps: deps, lifecycle: deps.newLifecycle()}
}

type ExpireResult struct {
	Checked int      `json:"checked"`
	Expired []string `json:"expired"`
	Failed  []string `json:"failed"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		st := model.OrderStatus(strings.ToLower(f.Status))
		if !st.Valid() {
			return OrderListOutput{}, toHTTPError(model.ErrInvalidStatus)
		}
		f.Status = string(st)
	}

	orders, total, err := u.Orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, toHTTPError(err)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.Items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, toHTTPError(err)
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return OrderListOutput{Items: outs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// UpdateStatus は販売者による出荷・配達・返品処理・キャンセル
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, vendorID int64, displayID string, in UpdateStatusInput) (OrderOutput, error) {
	if vendorID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	o, err := u.lifecycle.updateStatus(ctx, model.Actor{UserID: vendorID, Role: model.RoleVendor}, displayID, in)
	if err != nil {
		return OrderOutput{}, err
	}
	items, err := u.Items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, toHTTPError(err)
	}
	return toOrderOutput(o, items), nil
}

// ExpireAbandoned は olderThan より前に作られ、決済されないままの gateway 注文をキャンセルして在庫を戻す。
// 1件の失敗で止めない。
func (u *AdminOrderUsecase) ExpireAbandoned(ctx context.Context, olderThan time.Duration, limit int) (ExpireResult, error) {
	res := ExpireResult{Expired: []string{}, Failed: []string{}}

	orders, err := u.Orders.ListAbandoned(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return res, toHTTPError(err)
	}
	res.Checked = len(orders)

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := u.lifecycle.cancelUnpaid(ctx, o, "reservation expired"); err != nil {
			u.Logger.Warn("expire abandoned order failed", "order_id", o.DisplayID, "error", err)
			res.Failed = append(res.Failed, o.DisplayID)
			continue
		}
		res.Expired = append(res.Expired, o.DisplayID)
	}

	u.Logger.Info("abandoned orders reconciled", "checked", res.Checked, "expired", len(res.Expired), "failed", len(res.Failed))
	return res, nil
}
