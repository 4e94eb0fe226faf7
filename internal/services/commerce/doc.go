// Package commerce adapts the product catalog HTTP service. The scoring
// stage uses it to decide monetization eligibility: an extracted product
// name that resolves to a purchasable listing keeps its record eligible,
// a catalog miss routes the record to the not-monetizable filter.
//
// A miss is an ordinary result, not an error. Calls are metered against
// the daily commerce budget.
package commerce
