package email

import (
	"bytes"
	"html/template"

	"notification-dispatcher/internal/models"
)

type dataItem struct {
	Key   string
	Value string
}

type layoutData struct {
	Title string
	Body  template.HTML
	Items []dataItem
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 20px; border: 1px solid #ddd; }
        .footer { background-color: #333; color: white; padding: 10px; text-align: center; font-size: 12px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; padding: 10px 20px; margin: 10px 0; background-color: #4CAF50; color: white; text-decoration: none; border-radius: 5px; }
        .data-item { margin: 10px 0; padding: 10px; background-color: white; border-left: 3px solid #4CAF50; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
    </div>
    <div class="content">
        <p>{{.Body}}</p>
{{- if .Items}}
        <div class="data-section">
{{- range .Items}}
            <div class="data-item"><strong>{{.Key}}:</strong> {{.Value}}</div>
{{- end}}
        </div>
{{- end}}
    </div>
    <div class="footer">
        <p>&copy; 2025 Parking System. Todos los derechos reservados.</p>
        <p>Este es un correo automático, por favor no responder.</p>
    </div>
</body>
</html>
`))

// RenderHTML wraps a rendered body in the standard email layout. The body
// is template output and is inserted as-is; title and data items are escaped.
func RenderHTML(title, body string, data models.Data) (string, error) {
	ld := layoutData{
		Title: title,
		Body:  template.HTML(body),
	}
	for _, k := range data.Keys() {
		v, _ := data.Get(k)
		ld.Items = append(ld.Items, dataItem{Key: k, Value: v.String()})
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, ld); err != nil {
		return "", err
	}
	return buf.String(), nil
}
