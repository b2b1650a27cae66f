package agent

import (
	"errors"
	"fmt"
)

// ErrSelectionTimeout: стадия выбора корзины не имеет fallback'а —
// таймаут всплывает наружу явной ошибкой, а не пустой корзиной.
var ErrSelectionTimeout = errors.New("selection timed out")

// ValidationError — некорректное поле запроса, транслируется в 4xx.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}
