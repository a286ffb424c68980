// Package variant は商品の選択肢（サイズ / RAM+ストレージ）を
// 比較可能な文字列キーに正規化する。副作用なし。
package variant

import (
	"fmt"
	"strings"

	"cartengine/internal/domain/model"
)

// Key はカート明細・注文明細でバリアントを識別する正規化済み文字列。
type Key string

// 選択軸のない商品に使う固定キー
const DefaultKey Key = "default"

const (
	axisSize    = "size"
	axisRam     = "ram"
	axisStorage = "storage"

	pairSep = "|"
	kvSep   = ":"
)

// 利用者が選んだ値。未指定は空文字。
type Selection struct {
	Size    string `json:"size,omitempty"`
	Ram     string `json:"ram,omitempty"`
	Storage string `json:"storage,omitempty"`
}

func (k Key) String() string { return string(k) }

// ParseCategory は productType を大文字小文字を無視して解釈する。
func ParseCategory(s string) (model.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fashion":
		return model.CategoryFashion, nil
	case "electronics":
		return model.CategoryElectronics, nil
	}
	return "", fmt.Errorf("%w: unknown product type %q", model.ErrInvalidSelection, s)
}

// RequiresSelection は選択が必須かどうか。
// 軸を1つも持たない商品は DefaultKey で扱う。
func RequiresSelection(axes model.VariantAxes) bool {
	switch a := axes.(type) {
	case model.FashionAxes:
		return len(a.Sizes) > 0
	case model.ElectronicsAxes:
		return len(a.Rams) > 0 || len(a.Storages) > 0
	}
	return false
}

// Encode は選択を正規化キーにする。
// 同じ選択なら必ず同じキー、違う選択なら違うキーになる。
func Encode(axes model.VariantAxes, sel Selection) (Key, error) {
	switch a := axes.(type) {
	case model.FashionAxes:
		if len(a.Sizes) == 0 {
			return DefaultKey, nil
		}
		size, err := pick(axisSize, sel.Size, a.Sizes)
		if err != nil {
			return "", err
		}
		return Key(axisSize + kvSep + size), nil

	case model.ElectronicsAxes:
		if len(a.Rams) == 0 && len(a.Storages) == 0 {
			return DefaultKey, nil
		}
		// ram → storage の順で固定
		parts := make([]string, 0, 2)
		if len(a.Rams) > 0 {
			ram, err := pick(axisRam, sel.Ram, a.Rams)
			if err != nil {
				return "", err
			}
			parts = append(parts, axisRam+kvSep+ram)
		}
		if len(a.Storages) > 0 {
			storage, err := pick(axisStorage, sel.Storage, a.Storages)
			if err != nil {
				return "", err
			}
			parts = append(parts, axisStorage+kvSep+storage)
		}
		return Key(strings.Join(parts, pairSep)), nil
	}

	return "", fmt.Errorf("%w: unsupported product category", model.ErrInvalidSelection)
}

// Decode はキーを軸名→値に戻す（表示用）。
func Decode(category model.Category, key Key) (map[string]string, error) {
	out := map[string]string{}
	if key == DefaultKey || key == "" {
		return out, nil
	}

	allowed := map[string]bool{}
	switch category {
	case model.CategoryFashion:
		allowed[axisSize] = true
	case model.CategoryElectronics:
		allowed[axisRam] = true
		allowed[axisStorage] = true
	default:
		return nil, fmt.Errorf("%w: unsupported product category", model.ErrInvalidSelection)
	}

	for _, pair := range strings.Split(string(key), pairSep) {
		name, value, ok := strings.Cut(pair, kvSep)
		if !ok || value == "" || !allowed[name] {
			return nil, fmt.Errorf("%w: malformed variant key %q", model.ErrInvalidSelection, key)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("%w: malformed variant key %q", model.ErrInvalidSelection, key)
		}
		out[name] = value
	}
	return out, nil
}

// Validate はキーがこの商品に対する正規形かを確認する。
// 軸の順序違い・軸の欠け・余分な軸は別キー扱いになるので拒否する。
func Validate(axes model.VariantAxes, key Key) error {
	if axes == nil {
		return fmt.Errorf("%w: unsupported product category", model.ErrInvalidSelection)
	}
	values, err := Decode(axes.Category(), key)
	if err != nil {
		return err
	}
	want, err := Encode(axes, Selection{
		Size:    values[axisSize],
		Ram:     values[axisRam],
		Storage: values[axisStorage],
	})
	if err != nil {
		return err
	}
	if want != key {
		return fmt.Errorf("%w: non-canonical variant key %q", model.ErrInvalidSelection, key)
	}
	return nil
}

// DefaultSelection は各軸の先頭を選ぶ（ウィッシュリスト一括移動用）。
func DefaultSelection(axes model.VariantAxes) Selection {
	var sel Selection
	switch a := axes.(type) {
	case model.FashionAxes:
		if len(a.Sizes) > 0 {
			sel.Size = a.Sizes[0]
		}
	case model.ElectronicsAxes:
		if len(a.Rams) > 0 {
			sel.Ram = a.Rams[0]
		}
		if len(a.Storages) > 0 {
			sel.Storage = a.Storages[0]
		}
	}
	return sel
}

// 指定値が軸に含まれるか確認する。区切り文字を含む値は単射性が壊れるので拒否。
func pick(axis, value string, options []string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", model.ErrInvalidSelection, axis)
	}
	if strings.Contains(v, pairSep) || strings.Contains(v, kvSep) {
		return "", fmt.Errorf("%w: %s contains a reserved character", model.ErrInvalidSelection, axis)
	}
	for _, o := range options {
		if strings.TrimSpace(o) == v {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %s %q is not offered", model.ErrInvalidSelection, axis, v)
}
