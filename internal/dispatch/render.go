package dispatch

import (
	"strings"

	"notification-dispatcher/internal/models"
)

// Rendered is the filled-in content of one template.
type Rendered struct {
	Subject *string
	Title   *string
	Body    string
}

// Render fills a template's subject, title and body from data. Subject and
// title are only produced when the template defines them.
func Render(t *models.NotificationTemplate, data models.Data) Rendered {
	out := Rendered{Body: Substitute(t.BodyTemplate, data)}
	if t.SubjectTemplate != nil {
		s := Substitute(*t.SubjectTemplate, data)
		out.Subject = &s
	}
	if t.TitleTemplate != nil {
		s := Substitute(*t.TitleTemplate, data)
		out.Title = &s
	}
	return out
}

// Substitute replaces every {key} whose key exists in data with the value's
// canonical text. Unknown placeholders are left as-is and substituted text
// is never scanned again.
func Substitute(tmpl string, data models.Data) string {
	if data.Len() == 0 || !strings.Contains(tmpl, "{") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl))

	i := 0
	for i < len(tmpl) {
		if tmpl[i] != '{' {
			b.WriteByte(tmpl[i])
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		key := tmpl[i+1 : i+1+end]
		if v, ok := data.Get(key); ok {
			b.WriteString(v.String())
			i += end + 2
			continue
		}
		b.WriteByte('{')
		i++
	}
	return b.String()
}
