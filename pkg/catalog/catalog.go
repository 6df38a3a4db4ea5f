// pkg/catalog/catalog.go
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"
)

//go:embed default_templates.json
var defaultTemplates []byte

// Default returns the built-in catalog: the authentication emails plus the
// reservation, payment and spot templates.
func Default() (*TemplateCatalog, error) {
	return Parse(defaultTemplates)
}

func Load(path string) (*TemplateCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*TemplateCatalog, error) {
	var cat TemplateCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &cat, nil
}

// Validate checks every entry against the template schema and rejects a
// repeated (event_type, notification_type) pair.
func (c *TemplateCatalog) Validate() error {
	if len(c.Templates) == 0 {
		return fmt.Errorf("catalog contains no templates")
	}
	v, err := validation.NewValidator(validation.TemplateSchema)
	if err != nil {
		return err
	}

	var problems []string
	seen := make(map[string]bool)
	for i, entry := range c.Templates {
		result, err := v.Validate(entry)
		if err != nil {
			return err
		}
		if !result.Valid {
			problems = append(problems, fmt.Sprintf("templates[%d] (%s/%s): %s",
				i, entry.EventType, entry.NotificationType, result.Error()))
		}
		key := entry.EventType + "/" + entry.NotificationType
		if seen[key] {
			problems = append(problems, fmt.Sprintf("templates[%d]: duplicate pair %s", i, key))
		}
		seen[key] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid catalog:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// Models converts the entries for storage. Entries default to active with
// normal priority.
func (c *TemplateCatalog) Models() []*models.NotificationTemplate {
	out := make([]*models.NotificationTemplate, 0, len(c.Templates))
	for _, e := range c.Templates {
		priority := models.Priority(e.Priority)
		if !priority.Valid() {
			priority = models.PriorityNormal
		}
		active := true
		if e.IsActive != nil {
			active = *e.IsActive
		}
		out = append(out, &models.NotificationTemplate{
			EventType:       e.EventType,
			Channel:         models.Channel(e.NotificationType),
			SubjectTemplate: e.SubjectTemplate,
			TitleTemplate:   e.TitleTemplate,
			BodyTemplate:    e.BodyTemplate,
			Priority:        priority,
			Active:          active,
		})
	}
	return out
}
