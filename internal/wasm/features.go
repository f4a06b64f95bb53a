package wasm

import (
	"fmt"
	"sort"
	"strings"
)

// Features is a bitset of the post-MVP proposals this core accepts. Zero
// is deliberately not a valid flag value -- each flag is 1 << iota, so the
// first is 1 -- so that an unset Features(0) reliably means "no Require
// ever reports 0 as enabled".
type Features uint64

const (
	FeatureMutableGlobal Features = 1 << iota
	FeatureSignExtensionOps
	FeatureMultiValue
	FeatureNonTrappingFloatToIntConversion
	FeatureBulkMemoryOperations
	FeatureReferenceTypes
	FeatureSIMD
)

var featureNames = []struct {
	f    Features
	name string
}{
	{FeatureBulkMemoryOperations, "bulk-memory-operations"},
	{FeatureMultiValue, "multi-value"},
	{FeatureMutableGlobal, "mutable-global"},
	{FeatureNonTrappingFloatToIntConversion, "nontrapping-float-to-int-conversion"},
	{FeatureReferenceTypes, "reference-types"},
	{FeatureSignExtensionOps, "sign-extension-ops"},
	{FeatureSIMD, "simd"},
}

// Features20220419 bundles every proposal finalized into the Core 2.0
// snapshot. Callers that don't care about feature gating can pass this
// as their enabled set and get every 2.0 proposal on by default.
const Features20220419 = FeatureMutableGlobal | FeatureSignExtensionOps | FeatureMultiValue |
	FeatureNonTrappingFloatToIntConversion | FeatureBulkMemoryOperations | FeatureReferenceTypes | FeatureSIMD

// Get reports whether a single feature flag is set.
func (f Features) Get(flag Features) bool {
	return f&flag != 0
}

// Set returns a copy of f with flag set to the given value.
func (f Features) Set(flag Features, val bool) Features {
	if val {
		return f | flag
	}
	return f &^ flag
}

// String renders the set flags as a '|'-joined, alphabetically sorted list
// of their text-format names; unknown bits are silently omitted.
func (f Features) String() string {
	var names []string
	for _, fn := range featureNames {
		if f.Get(fn.f) {
			names = append(names, fn.name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// Require returns an error unless every bit in required is set in f.
func (f Features) Require(required Features) error {
	for _, fn := range featureNames {
		if required.Get(fn.f) && !f.Get(fn.f) {
			return fmt.Errorf("feature %q is disabled", fn.name)
		}
	}
	return nil
}
