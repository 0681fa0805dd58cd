// Package script строит тексты команд для приложения и доставляет их через osascript.
package script

import (
	"fmt"
	"strings"
)

// Template шаблон команды с позиционными подстановками `{}`.
// `{{` и `}}` означают литеральные фигурные скобки.
type Template struct {
	format string
	parts  []string
}

// Parse разбирает шаблон; одиночная скобка считается ошибкой.
func Parse(format string) (Template, error) {
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				cur.WriteByte('{')
				i++
				continue
			}
			if i+1 < len(format) && format[i+1] == '}' {
				parts = append(parts, cur.String())
				cur.Reset()
				i++
				continue
			}
			return Template{}, fmt.Errorf("%w: unmatched '{' at %d in %q", ErrMalformedTemplate, i, format)
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				cur.WriteByte('}')
				i++
				continue
			}
			return Template{}, fmt.Errorf("%w: unmatched '}' at %d in %q", ErrMalformedTemplate, i, format)
		default:
			cur.WriteByte(c)
		}
	}
	parts = append(parts, cur.String())
	return Template{format: format, parts: parts}, nil
}

// MustParse как Parse, но паникует; для шаблонов уровня пакета.
func MustParse(format string) Template {
	t, err := Parse(format)
	if err != nil {
		panic(err)
	}
	return t
}

// Placeholders число позиционных подстановок.
func (t Template) Placeholders() int {
	if len(t.parts) == 0 {
		return 0
	}
	return len(t.parts) - 1
}

func (t Template) String() string { return t.format }

// Format подставляет аргументы по порядку.
// Строковый аргумент с двойной кавычкой отклоняется: он разорвал бы литерал команды.
func (t Template) Format(args ...any) (string, error) {
	if t.parts == nil {
		return "", fmt.Errorf("%w: zero template", ErrMalformedTemplate)
	}
	if len(args) != t.Placeholders() {
		return "", fmt.Errorf("%w: %q wants %d, got %d", ErrArgumentCount, t.format, t.Placeholders(), len(args))
	}
	var b strings.Builder
	b.WriteString(t.parts[0])
	for i, arg := range args {
		s := fmt.Sprint(arg)
		if strings.ContainsRune(s, '"') {
			return "", fmt.Errorf("%w: argument %d contains a double quote", ErrUnsafeArgument, i)
		}
		b.WriteString(s)
		b.WriteString(t.parts[i+1])
	}
	return b.String(), nil
}
