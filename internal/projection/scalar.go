package projection

import (
	"math"
	"strconv"
	"strings"
)

const nullReply = "(null)"

// Bool трактует целое как признак (не ноль = true), иначе сравнивает с "true".
func Bool(raw string) bool {
	t := strings.TrimSpace(raw)
	if n, err := strconv.Atoi(t); err == nil {
		return n != 0
	}
	return strings.EqualFold(t, "true")
}

// Int разбирает целочисленный ответ.
func Int(raw string) (int, error) {
	t := strings.TrimSpace(raw)
	n, err := strconv.Atoi(t)
	if err != nil {
		return 0, &NumericDecodingError{Raw: t}
	}
	return n, nil
}

// Text возвращает ответ без крайних пробелов.
func Text(raw string) string {
	return strings.TrimSpace(raw)
}

// Tokens возвращает очищенный список значений без проекции.
func Tokens(raw string) []string {
	tokens := Split(raw)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Progress переводит долю выполнения ("0.42") в проценты.
// Пустой ответ или "(null)" означает, что процесс оборвался.
// Ноль отдается как 1, чтобы вызывающий видел, что процесс жив.
func Progress(raw string) (int, error) {
	t := strings.TrimSpace(raw)
	if t == "" || t == nullReply {
		return 0, &NumericDecodingError{Raw: t}
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return 0, &NumericDecodingError{Raw: t}
	}
	pct := int(math.Round(f * 100))
	if pct == 0 {
		return 1, nil
	}
	return pct, nil
}
