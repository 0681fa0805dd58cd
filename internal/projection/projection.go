// Package projection переводит список полей в текстовый запрос приложения и обратно.
//
// Ответ приложения плоский: значения через запятую, без разметки записей.
// Для нескольких записей приложение отдает значения по полям (field-major):
// сначала поле 1 всех записей, затем поле 2 и т.д.
package projection

import "strings"

// Field описывает одно поле проекции.
type Field struct {
	Name     string
	Included bool
}

// Projection задает упорядоченный список полей запроса и ответа.
// Один и тот же экземпляр должен использоваться для Encode и Decode.
type Projection []Field

// Of строит проекцию, где все поля включены.
func Of(names ...string) Projection {
	p := make(Projection, 0, len(names))
	for _, name := range names {
		p = append(p, Field{Name: name, Included: true})
	}
	return p
}

// With возвращает копию проекции с измененным флагом поля.
func (p Projection) With(name string, included bool) Projection {
	out := make(Projection, len(p))
	copy(out, p)
	for i := range out {
		if out[i].Name == name {
			out[i].Included = included
		}
	}
	return out
}

// Included возвращает имена включенных полей в порядке проекции.
func (p Projection) Included() []string {
	names := make([]string, 0, len(p))
	for _, f := range p {
		if f.Included {
			names = append(names, f.Name)
		}
	}
	return names
}

// Encode рендерит включенные поля в форме `{a, b, c}`.
func Encode(p Projection) string {
	return "{" + strings.Join(p.Included(), ", ") + "}"
}
