// Package memory は repository の各インタフェースをメモリ上で実装する。
// ユースケースのテストで使う。トランザクションは直列化し、エラー時は丸ごと巻き戻す。
package memory

import (
	"context"
	"maps"
	"sync"

	"cartengine/internal/domain/model"
	repo "cartengine/internal/repository"
)

type state struct {
	products map[int64]model.Product
	cart     map[int64]model.CartItem
	wishlist map[int64]model.WishlistItem
	orders   map[int64]model.Order
	items    map[int64]model.OrderItem
	history  map[int64]model.OrderStatusHistory
	seq      int64
}

func (s *state) clone() *state {
	return &state{
		products: maps.Clone(s.products),
		cart:     maps.Clone(s.cart),
		wishlist: maps.Clone(s.wishlist),
		orders:   maps.Clone(s.orders),
		items:    maps.Clone(s.items),
		history:  maps.Clone(s.history),
		seq:      s.seq,
	}
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

type Store struct {
	// トランザクション同士、およびトランザクション外の操作との直列化
	txMu sync.Mutex
	mu   sync.Mutex
	st   *state
}

func NewStore() *Store {
	return &Store{st: &state{
		products: map[int64]model.Product{},
		cart:     map[int64]model.CartItem{},
		wishlist: map[int64]model.WishlistItem{},
		orders:   map[int64]model.Order{},
		items:    map[int64]model.OrderItem{},
		history:  map[int64]model.OrderStatusHistory{},
	}}
}

// view はトランザクション内外で共通のリポジトリ実装
type view struct {
	s  *Store
	tx bool
}

func (v view) lock() func() {
	if !v.tx {
		v.s.txMu.Lock()
	}
	v.s.mu.Lock()
	return func() {
		v.s.mu.Unlock()
		if !v.tx {
			v.s.txMu.Unlock()
		}
	}
}

func (s *Store) root() view { return view{s: s} }

func (s *Store) Products() *ProductRepository     { return &ProductRepository{s.root()} }
func (s *Store) Inventory() *InventoryRepository  { return &InventoryRepository{s.root()} }
func (s *Store) CartItems() *CartItemRepository   { return &CartItemRepository{s.root()} }
func (s *Store) Wishlist() *WishlistRepository    { return &WishlistRepository{s.root()} }
func (s *Store) Orders() *OrderRepository         { return &OrderRepository{s.root()} }
func (s *Store) OrderItems() *OrderItemRepository { return &OrderItemRepository{s.root()} }
func (s *Store) OrderHistory() *OrderHistoryRepository {
	return &OrderHistoryRepository{s.root()}
}

// DeleteProduct はカタログから商品を消す。カート明細はそのまま残る。
func (s *Store) DeleteProduct(id int64) {
	unlock := s.root().lock()
	defer unlock()
	delete(s.st.products, id)
}

// PutProduct は商品を登録（IDが0なら採番）して返す。
func (s *Store) PutProduct(p model.Product) model.Product {
	unlock := s.root().lock()
	defer unlock()
	if p.ID == 0 {
		p.ID = s.st.nextID()
	}
	s.st.products[p.ID] = p
	return p
}

type txRepos struct{ v view }

func (r txRepos) Orders() repo.OrderRepository              { return &OrderRepository{r.v} }
func (r txRepos) OrderItems() repo.OrderItemRepository      { return &OrderItemRepository{r.v} }
func (r txRepos) OrderHistory() repo.OrderHistoryRepository { return &OrderHistoryRepository{r.v} }
func (r txRepos) CartItems() repo.CartItemRepository        { return &CartItemRepository{r.v} }
func (r txRepos) Inventory() repo.InventoryRepository       { return &InventoryRepository{r.v} }
func (r txRepos) Products() repo.ProductRepository          { return &ProductRepository{r.v} }

// TxManager を返す
func (s *Store) TxManager() repo.TransactionManager { return txManager{s} }

type txManager struct{ s *Store }

func (m txManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	m.s.mu.Lock()
	saved := m.s.st.clone()
	m.s.mu.Unlock()

	if err := fn(txRepos{v: view{s: m.s, tx: true}}); err != nil {
		m.s.mu.Lock()
		m.s.st = saved
		m.s.mu.Unlock()
		return err
	}
	return nil
}
