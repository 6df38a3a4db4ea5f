package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultIndex = "notifications"

// Indexer mirrors notification state into Elasticsearch, one document per
// notification id, and serves the admin full-text search.
type Indexer struct {
	client *elasticsearch.Client
	index  string
}

func NewIndexer(client *elasticsearch.Client, index string) *Indexer {
	if index == "" {
		index = DefaultIndex
	}
	return &Indexer{client: client, index: index}
}

func (i *Indexer) IndexNotification(ctx context.Context, n *models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: n.ID.String(),
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return errors.NewExternalServiceError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewExternalServiceError("elasticsearch", fmt.Errorf("index %s: %s", n.ID, res.Status()))
	}
	return nil
}

// SearchResult is one page of matching notifications.
type SearchResult struct {
	Total         int                    `json:"total"`
	Notifications []*models.Notification `json:"notifications"`
}

func buildSearchQuery(q string) map[string]interface{} {
	if q == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"sort":  []interface{}{map[string]interface{}{"created_at": map[string]interface{}{"order": "desc"}}},
		}
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"fields": []string{"event_type^2", "status", "body", "error_message", "subject", "title"},
			},
		},
	}
}

// Search runs a full-text query over event type, status, body and error message.
func (i *Indexer) Search(ctx context.Context, q string, page Page) (*SearchResult, error) {
	page = page.normalize(20)
	body, _ := json.Marshal(buildSearchQuery(q))

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		From:  &page.Skip,
		Size:  &page.Limit,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("%s: %s", res.Status(), raw))
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Notification `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}

	out := &SearchResult{Total: parsed.Hits.Total.Value, Notifications: make([]*models.Notification, 0, len(parsed.Hits.Hits))}
	for _, h := range parsed.Hits.Hits {
		n := h.Source
		out.Notifications = append(out.Notifications, &n)
	}
	return out, nil
}
