package domain

import "math"

// RoundMoney округляет сумму до 2 знаков (round-half-up).
// Используется кумулятивно: subtotal корзины округляется после каждого
// добавления товара, а не один раз в конце — это осознанная числовая
// семантика, воспроизводимая для совпадения итогов.
func RoundMoney(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// RoundTo округляет до заданного числа десятичных знаков (round-half-up).
func RoundTo(v float64, places int) float64 {
	shift := math.Pow(10, float64(places))
	return math.Floor(v*shift+0.5) / shift
}
