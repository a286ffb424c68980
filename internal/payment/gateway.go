package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type GatewayOrderRequest struct {
	Amount   int64  `json:"amount"`   // 最小単位（paise）
	Currency string `json:"currency"` // INR
	Receipt  string `json:"receipt"`  // 表示用注文ID
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway はホスト型チェックアウトの注文を作る。
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error)
	// クライアントに返す公開キー
	KeyID() string
}

// HTTPGateway は Razorpay 形式の REST API を呼ぶ。
type HTTPGateway struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, keyID, secret string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyID:   keyID,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPGateway) KeyID() string { return g.keyID }

func (g *HTTPGateway) CreateOrder(ctx context.Context, in GatewayOrderRequest) (GatewayOrder, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return GatewayOrder{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.secret)

	resp, err := g.client.Do(req)
	if err != nil {
		return GatewayOrder{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return GatewayOrder{}, err
	}
	if resp.StatusCode/100 != 2 {
		return GatewayOrder{}, fmt.Errorf("gateway create order: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out GatewayOrder
	if err := json.Unmarshal(raw, &out); err != nil {
		return GatewayOrder{}, err
	}
	if out.ID == "" {
		return GatewayOrder{}, fmt.Errorf("gateway create order: empty id")
	}
	return out, nil
}

// LocalGateway は開発・テスト用。外部を呼ばずにIDだけ発行する。
type LocalGateway struct {
	keyID string
}

func NewLocalGateway(keyID string) *LocalGateway {
	if keyID == "" {
		keyID = "local_key"
	}
	return &LocalGateway{keyID: keyID}
}

func (g *LocalGateway) KeyID() string { return g.keyID }

func (g *LocalGateway) CreateOrder(_ context.Context, in GatewayOrderRequest) (GatewayOrder, error) {
	return GatewayOrder{
		ID:       "order_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Amount:   in.Amount,
		Currency: in.Currency,
		Receipt:  in.Receipt,
		Status:   "created",
	}, nil
}
