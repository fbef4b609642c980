package domain

import "errors"

// ErrDataUnavailable indica que a janela consultada não tem vendas.
// Não é uma falha: significa apenas que não há nada para analisar.
var ErrDataUnavailable = errors.New("no sales data for the requested window")
