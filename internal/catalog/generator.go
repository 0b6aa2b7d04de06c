package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrVariantsWithoutOptions = errors.New("product has variants enabled but no options configured")
	ErrOptionWithoutValues    = errors.New("option has no values")
)

// GenerationResult is the outcome of expanding a product's options.
type GenerationResult struct {
	// Variants holds every variant for the current option set: pre-existing
	// ones with their IDs preserved, plus newly minted ones.
	Variants []Variant `json:"variants"`

	// Created are the variants minted by this run, a subset of Variants.
	Created []Variant `json:"created"`

	// Removed are existing variants whose combination no longer exists.
	// They are flagged for manual deactivation, never deleted, so their
	// ledger history stays intact.
	Removed []Variant `json:"removed"`
}

// GenerateVariants expands the product's options into the full Cartesian
// product of option values, diffed against the existing variants.
//
// A product with no options and HasVariants false yields a single implicit
// default variant representing the product itself.
func GenerateVariants(p *Product, existing []Variant) (*GenerationResult, error) {
	if p.HasVariants && len(p.Options) == 0 {
		return nil, ErrVariantsWithoutOptions
	}
	for _, opt := range p.Options {
		if len(opt.Values) == 0 {
			return nil, ErrOptionWithoutValues
		}
	}

	byKey := make(map[string]Variant, len(existing))
	for _, v := range existing {
		byKey[v.CombinationKey()] = v
	}

	combinations := expandOptions(p.Options)

	result := &GenerationResult{}
	seen := make(map[string]bool, len(combinations))
	for _, selections := range combinations {
		candidate := Variant{
			ProductSKU: p.SKU,
			Selections: selections,
		}
		key := candidate.CombinationKey()
		seen[key] = true

		if kept, ok := byKey[key]; ok {
			result.Variants = append(result.Variants, kept)
			continue
		}

		candidate.ID = uuid.New().String()
		candidate.CreatedAt = time.Now()
		result.Variants = append(result.Variants, candidate)
		result.Created = append(result.Created, candidate)
	}

	for _, v := range existing {
		if !seen[v.CombinationKey()] {
			result.Removed = append(result.Removed, v)
		}
	}

	return result, nil
}

// expandOptions builds the Cartesian product of option values in option
// order. With no options it yields a single empty selection, the implicit
// default variant.
func expandOptions(options []Option) []map[string]string {
	combinations := []map[string]string{{}}

	for _, opt := range options {
		next := make([]map[string]string, 0, len(combinations)*len(opt.Values))
		for _, base := range combinations {
			for _, value := range opt.Values {
				selections := make(map[string]string, len(base)+1)
				for k, v := range base {
					selections[k] = v
				}
				selections[opt.Name] = value
				next = append(next, selections)
			}
		}
		combinations = next
	}

	return combinations
}
