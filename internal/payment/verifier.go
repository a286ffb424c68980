// Package payment は決済ゲートウェイとのやり取り（注文作成と署名検証）をまとめる。
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cartengine/internal/domain/model"
)

// Verifier はゲートウェイのコールバック署名を検証する。
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign は "gatewayOrderID|gatewayPaymentID" の HMAC-SHA256（hex）。
func (v *Verifier) Sign(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify は一致しなければ ErrInvalidSignature。比較は定数時間。
func (v *Verifier) Verify(gatewayOrderID, gatewayPaymentID, signature string) error {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return fmt.Errorf("%w: missing fields", model.ErrInvalidSignature)
	}
	expected := v.Sign(gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return model.ErrInvalidSignature
	}
	return nil
}
