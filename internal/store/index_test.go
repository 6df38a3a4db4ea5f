package store

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	apperrors "notification-dispatcher/internal/common/errors"
	"notification-dispatcher/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func esResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}, "Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestIndexer(t *testing.T, rt roundTripFunc) *Indexer {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: rt,
	})
	require.NoError(t, err)
	return NewIndexer(client, "")
}

// ==========================
// Indexing
// ==========================

func TestIndexer_IndexNotification(t *testing.T) {
	n := &models.Notification{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Channel:   models.ChannelPush,
		Status:    models.StatusSent,
		Body:      "Pago recibido",
		Data:      models.NewData(),
		EventType: "PAYMENT_SUCCESS",
	}

	var gotPath, gotMethod string
	var gotDoc map[string]interface{}
	idx := newTestIndexer(t, func(req *http.Request) *http.Response {
		gotPath, gotMethod = req.URL.Path, req.Method
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotDoc))
		return esResponse(http.StatusCreated, `{"result":"created"}`)
	})

	require.NoError(t, idx.IndexNotification(context.Background(), n))
	assert.Equal(t, "/notifications/_doc/"+n.ID.String(), gotPath)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "PAYMENT_SUCCESS", gotDoc["event_type"])
	assert.Equal(t, "sent", gotDoc["status"])
	assert.Equal(t, "push", gotDoc["notification_type"])
}

func TestIndexer_IndexNotification_ErrorStatus(t *testing.T) {
	idx := newTestIndexer(t, func(*http.Request) *http.Response {
		return esResponse(http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`)
	})

	err := idx.IndexNotification(context.Background(), &models.Notification{ID: uuid.New(), Data: models.NewData()})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeExternalService))
}

// ==========================
// Search
// ==========================

func TestIndexer_Search(t *testing.T) {
	id := uuid.New()
	var gotQuery map[string]interface{}
	idx := newTestIndexer(t, func(req *http.Request) *http.Response {
		assert.Equal(t, "/notifications/_search", req.URL.Path)
		assert.Equal(t, "5", req.URL.Query().Get("from"))
		assert.Equal(t, "20", req.URL.Query().Get("size"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&gotQuery))
		return esResponse(http.StatusOK, `{
			"hits": {
				"total": {"value": 1},
				"hits": [{"_source": {"id": "`+id.String()+`", "status": "failed", "notification_type": "email",
					"body": "x", "data": {"a": "b"}, "event_type": "PAYMENT_FAILED", "error_message": "smtp timeout"}}]
			}
		}`)
	})

	res, err := idx.Search(context.Background(), "smtp", Page{Skip: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, id, res.Notifications[0].ID)
	assert.Equal(t, models.StatusFailed, res.Notifications[0].Status)
	assert.Equal(t, "b", res.Notifications[0].Data.StringMap()["a"])

	mm := gotQuery["query"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "smtp", mm["query"])
}

func TestIndexer_Search_Failure(t *testing.T) {
	idx := newTestIndexer(t, func(*http.Request) *http.Response {
		return esResponse(http.StatusNotFound, `{"error":"index_not_found_exception"}`)
	})

	_, err := idx.Search(context.Background(), "", Page{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed))
}

func TestBuildSearchQuery_Empty(t *testing.T) {
	q := buildSearchQuery("")
	_, ok := q["query"].(map[string]interface{})["match_all"]
	assert.True(t, ok)
	assert.NotNil(t, q["sort"])
}
