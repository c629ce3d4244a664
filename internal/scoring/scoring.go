// Package scoring computes the deterministic compliance score and grade
// for a violation set. Pure domain logic - no I/O, no randomness - so
// identical inputs always produce identical scores.
package scoring

import "facade/internal/domain"

// Severity penalties deducted per OPEN violation.
const (
	penaltyLow      = 2
	penaltyMedium   = 4
	penaltyHigh     = 8
	penaltyCritical = 15

	// penaltyDefault is deducted on top of the severity penalty for every
	// DEFAULTED violation: ignoring a hearing is worse than the underlying
	// condition.
	penaltyDefault = 20
)

var severityPenalties = map[domain.Severity]int{
	domain.SeverityLow:      penaltyLow,
	domain.SeverityMedium:   penaltyMedium,
	domain.SeverityHigh:     penaltyHigh,
	domain.SeverityCritical: penaltyCritical,
}

// gradeBand is one row of the banding table.
type gradeBand struct {
	minScore int
	grade    domain.Grade
}

// gradeBands is the fixed, monotonic banding table, highest band first. A
// table rather than nested conditionals so each threshold is independently
// testable.
var gradeBands = []gradeBand{
	{95, domain.GradeAPlus},
	{90, domain.GradeA},
	{85, domain.GradeAMinus},
	{80, domain.GradeBPlus},
	{75, domain.GradeB},
	{70, domain.GradeBMinus},
	{65, domain.GradeCPlus},
	{60, domain.GradeC},
	{50, domain.GradeD},
	{0, domain.GradeF},
}

// Engine scores violation sets.
type Engine struct{}

// New constructs a scoring engine.
func New() *Engine {
	return &Engine{}
}

// Score starts at 100, deducts a severity-scaled penalty per OPEN
// violation and an additional fixed penalty per DEFAULTED violation, and
// floors at 0. PENDING and CLOSED violations do not deduct.
func (e *Engine) Score(violations []domain.ViolationRecord) (int, domain.Grade) {
	score := 100
	for _, v := range violations {
		switch v.Status {
		case domain.StatusOpen:
			score -= severityPenalties[v.Severity]
		case domain.StatusDefaulted:
			score -= severityPenalties[v.Severity] + penaltyDefault
		}
	}
	if score < 0 {
		score = 0
	}
	return score, GradeFor(score)
}

// GradeFor maps a score onto its letter band.
func GradeFor(score int) domain.Grade {
	for _, band := range gradeBands {
		if score >= band.minScore {
			return band.grade
		}
	}
	return domain.GradeF
}

// OutstandingBalance sums balances due across all violations. Reported
// alongside the score, never folded into it: a building can score high
// with one expensive unpaid fine, and the two numbers must stay distinct.
func (e *Engine) OutstandingBalance(violations []domain.ViolationRecord) domain.Cents {
	var total domain.Cents
	for _, v := range violations {
		total += v.BalanceDue
	}
	return total
}
