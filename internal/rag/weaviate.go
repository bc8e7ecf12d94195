package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.uber.org/zap"
)

// WeaviateRetriever runs nearText searches against a single Weaviate class.
// Objects are expected to carry a "content" text property and a "source"
// property holding the originating document URI.
type WeaviateRetriever struct {
	client *weaviate.Client
	class  string
	limit  int
	log    *zap.Logger
}

// NewWeaviateRetriever connects to a Weaviate instance. limit bounds the
// number of passages folded into one retrieval result.
func NewWeaviateRetriever(host, scheme, class string, limit int, log *zap.Logger) (*WeaviateRetriever, error) {
	if host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	if limit <= 0 {
		limit = 5
	}

	client, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateRetriever{
		client: client,
		class:  class,
		limit:  limit,
		log:    log,
	}, nil
}

// Retrieve performs a semantic search and folds the hits into one Result.
func (r *WeaviateRetriever) Retrieve(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	nearText := r.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional { certainty }"},
	}

	resp, err := r.client.GraphQL().Get().
		WithClassName(r.class).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(r.limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("knowledge base search: %s", resp.Errors[0].Message)
	}

	result := &Result{}
	var passages []string

	data, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return result, nil
	}
	objects, ok := data[r.class].([]interface{})
	if !ok {
		return result, nil
	}

	for _, raw := range objects {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := obj["content"].(string)
		source, _ := obj["source"].(string)
		if content == "" {
			continue
		}
		passages = append(passages, content)
		result.References = append(result.References, Reference{
			SourceURI: source,
			Text:      content,
		})
	}

	result.Text = strings.Join(passages, "\n\n")
	r.log.Debug("knowledge base search complete",
		zap.String("class", r.class),
		zap.Int("references", len(result.References)))
	return result, nil
}
