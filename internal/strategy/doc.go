// Package strategy defines how the fleet's load is redistributed after a
// sampling pass.
//
// The tiered strategy favours healthy endpoints: they split 80% of the total
// load evenly, warning endpoints split the remaining 20%, and endpoints in the
// error tier receive nothing. A pass with no healthy endpoint leaves every
// load as sampled.
package strategy
