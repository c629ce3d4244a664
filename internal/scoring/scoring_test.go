package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facade/internal/domain"
)

func violation(status domain.ViolationStatus, severity domain.Severity, balance domain.Cents) domain.ViolationRecord {
	return domain.ViolationRecord{
		SourceSystem: domain.SourceSanitation,
		ExternalID:   "x",
		Status:       status,
		Severity:     severity,
		FineAmount:   balance,
		BalanceDue:   balance,
	}
}

func TestScoreEmptySetIsPerfect(t *testing.T) {
	e := New()
	score, grade := e.Score(nil)
	assert.Equal(t, 100, score)
	assert.Equal(t, domain.GradeAPlus, grade)
}

func TestScoreDeductsBySeverity(t *testing.T) {
	e := New()
	tests := []struct {
		severity domain.Severity
		want     int
	}{
		{domain.SeverityLow, 98},
		{domain.SeverityMedium, 96},
		{domain.SeverityHigh, 92},
		{domain.SeverityCritical, 85},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			score, _ := e.Score([]domain.ViolationRecord{
				violation(domain.StatusOpen, tt.severity, 0),
			})
			assert.Equal(t, tt.want, score)
		})
	}
}

func TestScoreDefaultedCarriesExtraPenalty(t *testing.T) {
	e := New()
	open, _ := e.Score([]domain.ViolationRecord{violation(domain.StatusOpen, domain.SeverityHigh, 0)})
	defaulted, _ := e.Score([]domain.ViolationRecord{violation(domain.StatusDefaulted, domain.SeverityHigh, 0)})
	assert.Equal(t, open-20, defaulted)
}

func TestScoreClosedAndPendingDoNotDeduct(t *testing.T) {
	e := New()
	score, grade := e.Score([]domain.ViolationRecord{
		violation(domain.StatusClosed, domain.SeverityCritical, 0),
		violation(domain.StatusPending, domain.SeverityCritical, 0),
	})
	assert.Equal(t, 100, score)
	assert.Equal(t, domain.GradeAPlus, grade)
}

func TestScoreFloorsAtZero(t *testing.T) {
	e := New()
	vs := make([]domain.ViolationRecord, 20)
	for i := range vs {
		vs[i] = violation(domain.StatusDefaulted, domain.SeverityCritical, 0)
	}
	score, grade := e.Score(vs)
	assert.Equal(t, 0, score)
	assert.Equal(t, domain.GradeF, grade)
}

func TestScoreDeterministic(t *testing.T) {
	e := New()
	vs := []domain.ViolationRecord{
		violation(domain.StatusOpen, domain.SeverityHigh, 30000),
		violation(domain.StatusDefaulted, domain.SeverityLow, 5000),
		violation(domain.StatusClosed, domain.SeverityMedium, 0),
	}
	first, firstGrade := e.Score(vs)
	for range 50 {
		score, grade := e.Score(vs)
		require.Equal(t, first, score)
		require.Equal(t, firstGrade, grade)
	}
}

// Every threshold in the banding table, both sides of each boundary.
func TestGradeBands(t *testing.T) {
	tests := []struct {
		score int
		want  domain.Grade
	}{
		{100, domain.GradeAPlus},
		{95, domain.GradeAPlus},
		{94, domain.GradeA},
		{90, domain.GradeA},
		{89, domain.GradeAMinus},
		{85, domain.GradeAMinus},
		{84, domain.GradeBPlus},
		{80, domain.GradeBPlus},
		{79, domain.GradeB},
		{75, domain.GradeB},
		{74, domain.GradeBMinus},
		{70, domain.GradeBMinus},
		{69, domain.GradeCPlus},
		{65, domain.GradeCPlus},
		{64, domain.GradeC},
		{60, domain.GradeC},
		{59, domain.GradeD},
		{50, domain.GradeD},
		{49, domain.GradeF},
		{0, domain.GradeF},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score), "score %d", tt.score)
	}
}

func TestOutstandingBalanceSeparateFromScore(t *testing.T) {
	e := New()
	// One closed but unpaid expensive fine: perfect score, nonzero balance.
	vs := []domain.ViolationRecord{
		violation(domain.StatusPending, domain.SeverityCritical, 500000),
	}
	score, _ := e.Score(vs)
	assert.Equal(t, 100, score)
	assert.Equal(t, domain.Cents(500000), e.OutstandingBalance(vs))
}
