package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clipstream/pkg/logger"

	"go.uber.org/zap"
)

// Every searchable field carries a wildcard subfield so a term matches as a
// case-insensitive substring, the same way the database ILIKE fallback does.
const videosMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"author_id": {"type": "long"},
			"author_name": {"type": "text", "fields": {"sub": {"type": "wildcard"}}},
			"author_slug": {"type": "text", "fields": {"sub": {"type": "wildcard"}}},
			"name": {"type": "text", "fields": {"sub": {"type": "wildcard"}}},
			"description": {"type": "text", "fields": {"sub": {"type": "wildcard"}}},
			"status": {"type": "keyword"},
			"created_at": {"type": "date", "format": "strict_date_optional_time||epoch_millis"}
		}
	}
}`

var searchFields = []string{"name.sub", "description.sub", "author_name.sub", "author_slug.sub"}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// substringPattern turns a term into a wildcard pattern matching it anywhere.
func substringPattern(term string) string {
	return "*" + wildcardEscaper.Replace(term) + "*"
}

func buildSearchQuery(term string, limit int) map[string]interface{} {
	pattern := substringPattern(term)
	should := make([]interface{}, 0, len(searchFields))
	for _, field := range searchFields {
		should = append(should, map[string]interface{}{
			"wildcard": map[string]interface{}{
				field: map[string]interface{}{
					"value":            pattern,
					"case_insensitive": true,
				},
			},
		})
	}
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"_source": []string{"id"},
		"size":    limit,
	}
}

// VideoDoc is the searchable projection of a video.
type VideoDoc struct {
	ID          string `json:"id"`
	AuthorID    int64  `json:"author_id"`
	AuthorName  string `json:"author_name"`
	AuthorSlug  string `json:"author_slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// EnsureVideosIndex creates the index when missing.
func (c *Client) EnsureVideosIndex(ctx context.Context) error {
	resp, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	resp, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(videosMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("create index failed: %s", resp.String())
	}

	logger.Info("Elasticsearch videos index created", zap.String("index", c.index))
	return nil
}

func (c *Client) IndexVideo(ctx context.Context, doc *VideoDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	resp, err := c.es.Index(
		c.index,
		bytes.NewReader(body),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("index document failed: %s", resp.String())
	}
	return nil
}

// DeleteVideo removes a document; a missing document is not an error.
func (c *Client) DeleteVideo(ctx context.Context, videoID string) error {
	resp, err := c.es.Delete(c.index, videoID, c.es.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document failed: %s", resp.String())
	}
	return nil
}

// SearchVideoIDs returns up to limit ids whose name, description or author
// fields contain term.
func (c *Client) SearchVideoIDs(ctx context.Context, term string, limit int) ([]string, error) {
	query := buildSearchQuery(term, limit)
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, fmt.Errorf("search failed: %s", resp.String())
	}

	var esResp struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&esResp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

// BulkIndexVideos indexes docs in one request and reports per-item outcomes.
func (c *Client) BulkIndexVideos(ctx context.Context, docs []VideoDoc) (success, failed int, err error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		meta := map[string]interface{}{"index": map[string]string{"_index": c.index, "_id": docs[i].ID}}
		if err := enc.Encode(meta); err != nil {
			return 0, len(docs), err
		}
		if err := enc.Encode(&docs[i]); err != nil {
			return 0, len(docs), err
		}
	}

	resp, err := c.es.Bulk(&buf, c.es.Bulk.WithContext(ctx))
	if err != nil {
		return 0, len(docs), err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return 0, len(docs), fmt.Errorf("bulk failed: %s", resp.String())
	}

	var bulkResp struct {
		Items []struct {
			Index struct {
				Status int `json:"status"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return 0, len(docs), fmt.Errorf("decode bulk response: %w", err)
	}

	for _, item := range bulkResp.Items {
		if item.Index.Status >= 200 && item.Index.Status < 300 {
			success++
		} else {
			failed++
		}
	}
	return success, failed, nil
}
