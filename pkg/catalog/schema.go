// pkg/catalog/schema.go
package catalog

type TemplateCatalog struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Templates   []TemplateEntry `json:"templates"`
}

type TemplateEntry struct {
	EventType        string  `json:"event_type"`
	NotificationType string  `json:"notification_type"`
	SubjectTemplate  *string `json:"subject_template,omitempty"`
	TitleTemplate    *string `json:"title_template,omitempty"`
	BodyTemplate     string  `json:"body_template"`
	Priority         string  `json:"priority,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
}
