package odds

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheck_ToleranceBoundary(t *testing.T) {
	tol := d(DefaultTolerance)

	tests := []struct {
		requested, current string
		ok                 bool
	}{
		{"2.00", "2.00", true},
		{"2.10", "2.00", true}, // exatamente 5%: inclusivo
		{"1.90", "2.00", true},
		{"2.11", "2.00", false},
		{"1.89", "2.00", false},
		{"1.85", "1.85", true},
	}

	for _, tt := range tests {
		t.Run(tt.requested+"_vs_"+tt.current, func(t *testing.T) {
			err := Check(d(tt.requested), d(tt.current), tol)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrOddsChanged)
			}
		})
	}
}

func TestCheck_FailsClosedOnInvalidCurrent(t *testing.T) {
	tol := d(DefaultTolerance)

	assert.ErrorIs(t, Check(d("2.00"), decimal.Zero, tol), ErrOddsChanged)
	assert.ErrorIs(t, Check(d("2.00"), d("-1.5"), tol), ErrOddsChanged)
	assert.ErrorIs(t, Check(decimal.Zero, d("2.00"), tol), ErrOddsChanged)
}

func TestNewValidator_DefaultsTolerance(t *testing.T) {
	v := NewValidator(decimal.Zero)
	assert.True(t, v.Tolerance.Equal(d("0.05")))

	v = NewValidator(d("0.10"))
	assert.NoError(t, v.Validate(d("2.20"), d("2.00")))
	assert.ErrorIs(t, v.Validate(d("2.21"), d("2.00")), ErrOddsChanged)
}
