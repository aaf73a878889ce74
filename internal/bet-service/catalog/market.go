package catalog

import (
	"errors"
	"strings"
)

// Market é o tipo de mercado aceito pelo ledger
type Market string

// Selection é o lado escolhido dentro do mercado
type Selection string

const (
	Moneyline Market = "MONEYLINE"
	Spread    Market = "SPREAD"
	Total     Market = "TOTAL"
)

const (
	Home  Selection = "HOME"
	Away  Selection = "AWAY"
	Over  Selection = "OVER"
	Under Selection = "UNDER"
)

// ErrInvalidSelection indica combinação mercado/seleção fora da tabela
var ErrInvalidSelection = errors.New("invalid market/selection")

// validSelections é a tabela completa mercado -> seleções permitidas
var validSelections = map[Market][]Selection{
	Moneyline: {Home, Away},
	Spread:    {Home, Away},
	Total:     {Over, Under},
}

// Markets lista os mercados conhecidos em ordem estável
func Markets() []Market { return []Market{Moneyline, Spread, Total} }

// Selections devolve as seleções válidas de um mercado
func (m Market) Selections() []Selection {
	return append([]Selection(nil), validSelections[m]...)
}

// Allows diz se a seleção é válida para o mercado
func (m Market) Allows(s Selection) bool {
	for _, v := range validSelections[m] {
		if v == s {
			return true
		}
	}
	return false
}

// Normalize converte os identificadores para a forma canônica e valida a combinação
func Normalize(market, selection string) (Market, Selection, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(market)))
	s := Selection(strings.ToUpper(strings.TrimSpace(selection)))
	if !m.Allows(s) {
		return "", "", ErrInvalidSelection
	}
	return m, s, nil
}
