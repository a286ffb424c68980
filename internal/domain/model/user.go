package model

import "strings"

// 操作者のロール。JWT の role クレームと一致させる。
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleVendor Role = "VENDOR"
	// 照合バッチや決済失敗処理など内部からの操作。JWT では発行しない。
	RoleSystem Role = "SYSTEM"
)

// 操作したのは誰か
type Actor struct {
	UserID int64
	Role   Role
}

// ParseRole は外部（JWT）から来たロールを解釈する。SYSTEM は受け付けない。
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleVendor:
		return RoleVendor, true
	}
	return "", false
}
