package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/common/validation"
	"notification-dispatcher/internal/models"

	"github.com/google/uuid"
)

const DefaultFrontendURL = "http://localhost:3000"

// Normalizer turns raw queue payloads into canonical events.
type Normalizer struct {
	frontendURL string
	validator   *validation.Validator
}

func NewNormalizer(frontendURL string) *Normalizer {
	if frontendURL == "" {
		frontendURL = DefaultFrontendURL
	}
	return &Normalizer{frontendURL: frontendURL, validator: validation.Event()}
}

// Normalize decodes body, reshapes authentication events and validates the
// result. Every error it returns is a non-retryable StandardError.
func (n *Normalizer) Normalize(routingKey string, body []byte) (*models.NotificationEvent, error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, errors.NewEventDecodeError(err)
	}
	if msg == nil {
		return nil, errors.NewEventDecodeError(fmt.Errorf("event body must be a JSON object"))
	}

	eventType := EventTypeForRoutingKey(routingKey)

	var canonical map[string]json.RawMessage
	if isAuthRoutingKey(routingKey) {
		c, err := n.fromAuthEvent(msg, eventType)
		if err != nil {
			return nil, err
		}
		canonical = c
	} else {
		canonical = msg
		if isAbsent(canonical["event_type"]) {
			canonical["event_type"] = mustRaw(eventType)
		}
	}

	doc, err := json.Marshal(canonical)
	if err != nil {
		return nil, errors.NewEventDecodeError(err)
	}

	result, err := n.validator.ValidateBytes(doc)
	if err != nil {
		return nil, errors.NewEventValidationError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewEventValidationError(result.Error())
	}

	var event models.NotificationEvent
	if err := json.Unmarshal(doc, &event); err != nil {
		return nil, errors.NewEventValidationError(err.Error())
	}
	if event.Priority == "" {
		event.Priority = models.PriorityNormal
	}
	if event.UserEmail != nil && *event.UserEmail == "" {
		event.UserEmail = nil
	}
	return &event, nil
}

// fromAuthEvent reshapes the authentication service's payload: integer
// user ids, tokens instead of links, and the address in "email".
func (n *Normalizer) fromAuthEvent(msg map[string]json.RawMessage, eventType string) (map[string]json.RawMessage, error) {
	userID := msg["user_id"]
	if num, ok := decodeScalar(userID).(json.Number); ok {
		if id, err := num.Int64(); err == nil {
			userID = mustRaw(SyntheticUserID(id).String())
		}
	}

	frontendURL := n.frontendURL
	if s, ok := scalarString(msg["frontend_url"]); ok && s != "" {
		frontendURL = s
	}

	data := models.NewData()
	if token, ok := scalarString(msg["verification_token"]); ok {
		data.SetString("verification_link", frontendURL+"/verify-email?token="+token)
		data.SetString("verification_token", token)
	}
	if token, ok := scalarString(msg["reset_token"]); ok {
		data.SetString("reset_link", frontendURL+"/reset-password?token="+token)
		data.SetString("reset_token", token)
	}
	name, _ := scalarString(msg["name"])
	email, hasEmail := scalarString(msg["email"])
	data.SetString("name", name)
	data.SetString("email", email)
	data.SetString("frontend_url", frontendURL)

	dataRaw, err := json.Marshal(data)
	if err != nil {
		return nil, errors.NewEventDecodeError(err)
	}

	out := map[string]json.RawMessage{
		"user_id":    userID,
		"event_type": mustRaw(eventType),
		"data":       dataRaw,
		"priority":   mustRaw(string(models.PriorityNormal)),
	}
	if hasEmail {
		out["user_email"] = mustRaw(email)
	}
	if isAbsent(userID) {
		delete(out, "user_id")
	}
	return out, nil
}

// SyntheticUserID maps an integer account id to a stable UUID (version 5,
// DNS namespace, name "user-<id>").
func SyntheticUserID(id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("user-"+strconv.FormatInt(id, 10)))
}

func decodeScalar(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// scalarString renders a JSON scalar as text; objects, arrays, null and
// missing members report false.
func scalarString(raw json.RawMessage) (string, bool) {
	switch v := decodeScalar(raw).(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}

func mustRaw(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}
