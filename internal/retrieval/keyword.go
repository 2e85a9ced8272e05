package retrieval

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/xiaot623/roundtable/internal/domain"
	"gopkg.in/yaml.v3"
)

// Document is one entry of a knowledge corpus.
type Document struct {
	ID      string `yaml:"id"`
	Content string `yaml:"content"`
	Source  string `yaml:"source"`
}

// DefaultCorpus returns the built-in sample knowledge base.
func DefaultCorpus() []Document {
	return []Document{
		{ID: "doc1", Content: "Agent-to-Agent (A2A) protocol enables seamless communication between AI agents.", Source: "A2A Documentation"},
		{ID: "doc2", Content: "Model Context Protocol (MCP) standardizes how agents access external data sources.", Source: "MCP Documentation"},
		{ID: "doc3", Content: "Retrieval-Augmented Generation (RAG) enhances AI responses with external knowledge.", Source: "RAG Documentation"},
		{ID: "doc4", Content: "Multi-agent systems allow for collaborative problem-solving and diverse perspectives.", Source: "Multi-Agent Systems Overview"},
		{ID: "doc5", Content: "Threaded conversations help organize complex discussions into manageable topics.", Source: "Conversation Design Principles"},
	}
}

// LoadCorpus reads a YAML list of documents:
//
//	documents:
//	  - id: doc1
//	    content: ...
//	    source: ...
func LoadCorpus(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	var f struct {
		Documents []Document `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge file: %w", err)
	}
	for i, d := range f.Documents {
		if d.ID == "" {
			f.Documents[i].ID = fmt.Sprintf("doc%d", i+1)
		}
	}
	return f.Documents, nil
}

// KeywordIndex scores documents by the share of query terms they contain.
type KeywordIndex struct {
	docs  []Document
	terms []map[string]struct{}
}

// NewKeywordIndex indexes docs.
func NewKeywordIndex(docs []Document) *KeywordIndex {
	idx := &KeywordIndex{docs: docs, terms: make([]map[string]struct{}, len(docs))}
	for i, d := range docs {
		set := make(map[string]struct{})
		for _, t := range tokenize(d.Content) {
			set[t] = struct{}{}
		}
		idx.terms[i] = set
	}
	return idx
}

// Retrieve returns documents sharing at least one term with query, best first.
func (k *KeywordIndex) Retrieve(ctx context.Context, query string, limit int) ([]domain.ContextDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	queryTerms := unique(tokenize(query))
	if len(queryTerms) == 0 {
		return []domain.ContextDocument{}, nil
	}

	results := []domain.ContextDocument{}
	for i, d := range k.docs {
		hits := 0
		for _, t := range queryTerms {
			if _, ok := k.terms[i][t]; ok {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		results = append(results, domain.ContextDocument{
			DocumentID: d.ID,
			Text:       d.Content,
			Source:     d.Source,
			Score:      float64(hits) / float64(len(queryTerms)),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "for": {}, "how": {}, "in": {}, "is": {},
	"of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "what": {}, "with": {},
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop || len(f) < 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func unique(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
