package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Variant Generation
// ============================================================

func TestGenerateVariants_CartesianProduct(t *testing.T) {
	p := &Product{
		SKU:         "TEE",
		HasVariants: true,
		Options: []Option{
			{Name: "Color", Values: []string{"Red", "Blue"}},
			{Name: "Size", Values: []string{"S", "M"}},
		},
	}

	result, err := GenerateVariants(p, nil)
	require.NoError(t, err)

	assert.Len(t, result.Variants, 4)
	assert.Len(t, result.Created, 4)
	assert.Empty(t, result.Removed)

	keys := make(map[string]bool)
	for _, v := range result.Variants {
		assert.Equal(t, "TEE", v.ProductSKU)
		assert.NotEmpty(t, v.ID)
		keys[v.CombinationKey()] = true
	}
	assert.True(t, keys["Color=Red|Size=S"])
	assert.True(t, keys["Color=Red|Size=M"])
	assert.True(t, keys["Color=Blue|Size=S"])
	assert.True(t, keys["Color=Blue|Size=M"])
}

func TestGenerateVariants_PreservesExistingIDs(t *testing.T) {
	p := &Product{
		SKU:         "TEE",
		HasVariants: true,
		Options: []Option{
			{Name: "Color", Values: []string{"Red", "Blue"}},
		},
	}

	existing := []Variant{
		{ID: "keep-me", ProductSKU: "TEE", Selections: map[string]string{"Color": "Red"}},
	}

	result, err := GenerateVariants(p, existing)
	require.NoError(t, err)

	assert.Len(t, result.Variants, 2)
	assert.Len(t, result.Created, 1)
	assert.Empty(t, result.Removed)

	byKey := make(map[string]Variant)
	for _, v := range result.Variants {
		byKey[v.CombinationKey()] = v
	}
	assert.Equal(t, "keep-me", byKey["Color=Red"].ID)
	assert.NotEqual(t, "keep-me", byKey["Color=Blue"].ID)
	assert.Equal(t, byKey["Color=Blue"].ID, result.Created[0].ID)
}

func TestGenerateVariants_FlagsRemovedCombinations(t *testing.T) {
	p := &Product{
		SKU:         "TEE",
		HasVariants: true,
		Options: []Option{
			{Name: "Color", Values: []string{"Red"}},
		},
	}

	existing := []Variant{
		{ID: "v-red", ProductSKU: "TEE", Selections: map[string]string{"Color": "Red"}},
		{ID: "v-green", ProductSKU: "TEE", Selections: map[string]string{"Color": "Green"}},
	}

	result, err := GenerateVariants(p, existing)
	require.NoError(t, err)

	// The stale combination is flagged, never dropped from existence.
	require.Len(t, result.Removed, 1)
	assert.Equal(t, "v-green", result.Removed[0].ID)

	require.Len(t, result.Variants, 1)
	assert.Equal(t, "v-red", result.Variants[0].ID)
	assert.Empty(t, result.Created)
}

func TestGenerateVariants_ImplicitDefaultVariant(t *testing.T) {
	p := &Product{SKU: "GIFT-CARD", HasVariants: false}

	result, err := GenerateVariants(p, nil)
	require.NoError(t, err)

	require.Len(t, result.Variants, 1)
	assert.Empty(t, result.Variants[0].Selections)
	assert.Equal(t, "", result.Variants[0].CombinationKey())
}

func TestGenerateVariants_ImplicitDefaultIsStable(t *testing.T) {
	p := &Product{SKU: "GIFT-CARD", HasVariants: false}

	first, err := GenerateVariants(p, nil)
	require.NoError(t, err)

	second, err := GenerateVariants(p, first.Variants)
	require.NoError(t, err)

	require.Len(t, second.Variants, 1)
	assert.Equal(t, first.Variants[0].ID, second.Variants[0].ID)
	assert.Empty(t, second.Created)
}

// ============================================================
// Validation
// ============================================================

func TestGenerateVariants_VariantsWithoutOptions(t *testing.T) {
	p := &Product{SKU: "TEE", HasVariants: true}

	_, err := GenerateVariants(p, nil)
	assert.ErrorIs(t, err, ErrVariantsWithoutOptions)
}

func TestGenerateVariants_OptionWithoutValues(t *testing.T) {
	p := &Product{
		SKU:         "TEE",
		HasVariants: true,
		Options: []Option{
			{Name: "Color", Values: []string{"Red"}},
			{Name: "Size", Values: nil},
		},
	}

	_, err := GenerateVariants(p, nil)
	assert.ErrorIs(t, err, ErrOptionWithoutValues)
}

// ============================================================
// Combination Keys
// ============================================================

func TestCombinationKey_OrderIndependent(t *testing.T) {
	a := Variant{Selections: map[string]string{"Size": "M", "Color": "Red"}}
	b := Variant{Selections: map[string]string{"Color": "Red", "Size": "M"}}

	assert.Equal(t, "Color=Red|Size=M", a.CombinationKey())
	assert.Equal(t, a.CombinationKey(), b.CombinationKey())
}

func TestUnitCost(t *testing.T) {
	p := &Product{BasePrice: 1500}
	override := int64(1200)

	assert.Equal(t, int64(1500), UnitCost(p, &Variant{}))
	assert.Equal(t, int64(1200), UnitCost(p, &Variant{PriceOverride: &override}))
	assert.Equal(t, int64(1500), UnitCost(p, nil))
}
