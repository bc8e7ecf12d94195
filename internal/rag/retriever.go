// Package rag abstracts the retrieval backend consumed by the specialists.
package rag

import "context"

// Reference is one retrieved passage with its originating document URI.
type Reference struct {
	SourceURI string
	Text      string
}

// Result is the outcome of one retrieval call: the grounding text handed to
// the specialist model plus the references behind it.
type Result struct {
	Text       string
	References []Reference
}

// Retriever answers a query against the knowledge base. Implementations must
// be safe for concurrent use.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*Result, error)
}
