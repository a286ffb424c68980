package variant_test

import (
	"errors"
	"testing"

	"cartengine/internal/domain/model"
	"cartengine/internal/domain/variant"

	"github.com/stretchr/testify/assert"
)

var (
	shirt = model.FashionAxes{Sizes: []string{"S", "M", "L"}}
	phone = model.ElectronicsAxes{Rams: []string{"8GB", "12GB"}, Storages: []string{"128GB", "256GB"}}
)

// =====================
// Encode
// =====================

func TestEncode_Fashion(t *testing.T) {
	key, err := variant.Encode(shirt, variant.Selection{Size: "M"})
	assert.NoError(t, err)
	assert.Equal(t, variant.Key("size:M"), key)
}

func TestEncode_Electronics_FixedOrder(t *testing.T) {
	key, err := variant.Encode(phone, variant.Selection{Storage: "256GB", Ram: "8GB"})
	assert.NoError(t, err)
	assert.Equal(t, variant.Key("ram:8GB|storage:256GB"), key)
}

func TestEncode_SameSelectionSameKey(t *testing.T) {
	a, err := variant.Encode(phone, variant.Selection{Ram: "12GB", Storage: "128GB"})
	assert.NoError(t, err)
	b, err := variant.Encode(phone, variant.Selection{Ram: " 12GB ", Storage: "128GB"})
	assert.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncode_DifferentSelectionsDifferentKeys(t *testing.T) {
	seen := map[variant.Key]variant.Selection{}
	for _, ram := range phone.Rams {
		for _, storage := range phone.Storages {
			sel := variant.Selection{Ram: ram, Storage: storage}
			key, err := variant.Encode(phone, sel)
			assert.NoError(t, err)
			prev, dup := seen[key]
			assert.False(t, dup, "key %q for %+v already used by %+v", key, sel, prev)
			seen[key] = sel
		}
	}
	assert.Equal(t, 4, len(seen))
}

func TestEncode_NoAxes_DefaultKey(t *testing.T) {
	key, err := variant.Encode(model.FashionAxes{}, variant.Selection{Size: "M"})
	assert.NoError(t, err)
	assert.Equal(t, variant.DefaultKey, key)

	key, err = variant.Encode(model.ElectronicsAxes{}, variant.Selection{})
	assert.NoError(t, err)
	assert.Equal(t, variant.DefaultKey, key)
}

func TestEncode_Errors(t *testing.T) {
	cases := []struct {
		name string
		axes model.VariantAxes
		sel  variant.Selection
	}{
		{"missing size", shirt, variant.Selection{}},
		{"size not offered", shirt, variant.Selection{Size: "XXL"}},
		{"missing storage", phone, variant.Selection{Ram: "8GB"}},
		{"ram not offered", phone, variant.Selection{Ram: "4GB", Storage: "128GB"}},
		{"reserved pipe", model.FashionAxes{Sizes: []string{"S|M"}}, variant.Selection{Size: "S|M"}},
		{"reserved colon", model.FashionAxes{Sizes: []string{"EU:40"}}, variant.Selection{Size: "EU:40"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := variant.Encode(tc.axes, tc.sel)
			assert.True(t, errors.Is(err, model.ErrInvalidSelection), "err=%v", err)
		})
	}
}

// =====================
// Decode
// =====================

func TestDecode_RoundTrip(t *testing.T) {
	key, err := variant.Encode(phone, variant.Selection{Ram: "8GB", Storage: "128GB"})
	assert.NoError(t, err)

	got, err := variant.Decode(model.CategoryElectronics, key)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"ram": "8GB", "storage": "128GB"}, got)
}

func TestDecode_Default(t *testing.T) {
	got, err := variant.Decode(model.CategoryFashion, variant.DefaultKey)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_Malformed(t *testing.T) {
	for _, k := range []variant.Key{"size", "size:", "ram:8GB", "size:M|size:L"} {
		_, err := variant.Decode(model.CategoryFashion, k)
		assert.True(t, errors.Is(err, model.ErrInvalidSelection), "key=%q", k)
	}
}

// =====================
// 補助
// =====================

func TestParseCategory(t *testing.T) {
	c, err := variant.ParseCategory("fashion")
	assert.NoError(t, err)
	assert.Equal(t, model.CategoryFashion, c)

	c, err = variant.ParseCategory(" ELECTRONICS ")
	assert.NoError(t, err)
	assert.Equal(t, model.CategoryElectronics, c)

	_, err = variant.ParseCategory("books")
	assert.True(t, errors.Is(err, model.ErrInvalidSelection))
}

func TestRequiresSelection(t *testing.T) {
	assert.True(t, variant.RequiresSelection(shirt))
	assert.True(t, variant.RequiresSelection(model.ElectronicsAxes{Storages: []string{"64GB"}}))
	assert.False(t, variant.RequiresSelection(model.FashionAxes{}))
}

func TestDefaultSelection(t *testing.T) {
	sel := variant.DefaultSelection(phone)
	assert.Equal(t, variant.Selection{Ram: "8GB", Storage: "128GB"}, sel)

	key, err := variant.Encode(phone, sel)
	assert.NoError(t, err)
	assert.Equal(t, variant.Key("ram:8GB|storage:128GB"), key)
}

// =====================
// Validate
// =====================

func TestValidate(t *testing.T) {
	ramOnly := model.ElectronicsAxes{Rams: []string{"8GB"}}
	bare := model.FashionAxes{}

	ok := []struct {
		name string
		axes model.VariantAxes
		key  variant.Key
	}{
		{"fashion", shirt, "size:M"},
		{"electronics", phone, "ram:8GB|storage:128GB"},
		{"single axis", ramOnly, "ram:8GB"},
		{"no axes", bare, variant.DefaultKey},
	}
	for _, tc := range ok {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, variant.Validate(tc.axes, tc.key))
		})
	}

	bad := []struct {
		name string
		axes model.VariantAxes
		key  variant.Key
	}{
		{"reversed axes", phone, "storage:128GB|ram:8GB"},
		{"missing storage", phone, "ram:8GB"},
		{"extra storage", ramOnly, "ram:8GB|storage:128GB"},
		{"default on product with sizes", shirt, variant.DefaultKey},
		{"value not offered", shirt, "size:XL"},
		{"padded value", shirt, "size: M"},
		{"wrong category", shirt, "ram:8GB"},
		{"nil axes", nil, "size:M"},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			err := variant.Validate(tc.axes, tc.key)
			assert.True(t, errors.Is(err, model.ErrInvalidSelection), "got %v", err)
		})
	}
}
