package search

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog/log"
)

const idxGuidelines = "guidance_guidelines"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the guideline index.
// The caller keeps running without it if the server is unreachable; a
// background loop picks it up when it comes back.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("search: meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxGuidelines,
		PrimaryKey: "id",
	}); err != nil {
		log.Warn().Err(err).Msg("search: create index (may already exist)")
	}

	index := m.client.Index(idxGuidelines)
	searchable := []string{"title", "longTitle", "id"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Warn().Err(err).Msg("search: update searchable attrs")
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Info().Msg("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	resp, err := m.client.Index(idxGuidelines).Search(q.Text, &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			ID:        decodeString(hit, "id"),
			Title:     decodeString(hit, "title"),
			LongTitle: decodeString(hit, "longTitle"),
			Slug:      decodeString(hit, "slug"),
			Type:      decodeString(hit, "type"),
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
}

// IndexGuideline adds or updates a guideline in the search index.
func (m *Meili) IndexGuideline(rec GuidelineRecord) error {
	_, err := m.client.Index(idxGuidelines).AddDocuments([]GuidelineRecord{rec}, nil)
	return err
}

// IndexGuidelines bulk-indexes guidelines.
func (m *Meili) IndexGuidelines(records []GuidelineRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxGuidelines).AddDocuments(records, nil)
	return err
}

// DeleteGuideline removes a guideline from the search index.
func (m *Meili) DeleteGuideline(id string) error {
	_, err := m.client.Index(idxGuidelines).DeleteDocument(id, nil)
	return err
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
