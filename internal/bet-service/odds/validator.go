package odds

import (
	"errors"

	"github.com/shopspring/decimal"
)

// DefaultTolerance é a variação relativa máxima aceita entre a odd vista pelo
// cliente e a odd corrente. Única fonte do valor: se um dia variar por
// mercado, muda aqui.
const DefaultTolerance = "0.05"

// ErrOddsChanged indica odd desatualizada (ou odd corrente inválida)
var ErrOddsChanged = errors.New("odds have changed")

var defaultTolerance = decimal.RequireFromString(DefaultTolerance)

// Validator compara a odd aceita pelo cliente com a odd em vigor
type Validator struct {
	Tolerance decimal.Decimal
}

// NewValidator usa DefaultTolerance quando tolerance não é positiva
func NewValidator(tolerance decimal.Decimal) *Validator {
	if !tolerance.IsPositive() {
		tolerance = defaultTolerance
	}
	return &Validator{Tolerance: tolerance}
}

// Validate aplica Check com a tolerância configurada
func (v *Validator) Validate(requested, current decimal.Decimal) error {
	return Check(requested, current, v.Tolerance)
}

// Check calcula |requested - current| / current e rejeita se passar da
// tolerância. O limite é inclusivo. Odd corrente ausente ou <= 0 falha fechado.
func Check(requested, current, tolerance decimal.Decimal) error {
	if !current.IsPositive() || !requested.IsPositive() {
		return ErrOddsChanged
	}
	drift := requested.Sub(current).Abs().Div(current)
	if drift.GreaterThan(tolerance) {
		return ErrOddsChanged
	}
	return nil
}
