// Package scoring turns extracted endorsement details into routing
// decisions. It computes the 0..100 attractiveness score from the
// extraction sub-scores, blends disclosure language, commercial phrasing,
// and a model judgment into the paid-placement probability, checks the
// commerce catalog for monetization eligibility, and picks each record's
// initial workflow state.
package scoring
