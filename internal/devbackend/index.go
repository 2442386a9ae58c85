package devbackend

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

const (
	chunkMaxRunes = 1200
	chunkOverlap  = 120
)

// stopWords are dropped from questions and chunks before matching.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "what": {}, "which": {}, "our": {},
	"with": {}, "that": {}, "this": {}, "from": {}, "how": {}, "does": {}, "who": {},
	"when": {}, "where": {}, "why": {}, "can": {}, "any": {}, "all": {}, "was": {},
	"were": {}, "has": {}, "have": {}, "its": {}, "into": {}, "must": {}, "should": {},
}

type chunk struct {
	doc   string
	index int
	text  string
	terms map[string]int
}

// Hit is one retrieved chunk.
type Hit struct {
	Doc   string
	Text  string
	Score int
}

// Index is an in-memory keyword index over document chunks. Re-adding a
// document replaces its chunks.
type Index struct {
	mu     sync.RWMutex
	chunks map[string][]chunk
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{chunks: map[string][]chunk{}}
}

// Add replaces the chunks of doc with the chunked blocks.
func (ix *Index) Add(doc string, blocks []string) int {
	parts := chunkBlocks(blocks)
	chunks := make([]chunk, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, chunk{doc: doc, index: i, text: text, terms: termCounts(text)})
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(chunks) == 0 {
		delete(ix.chunks, doc)
		return 0
	}
	ix.chunks[doc] = chunks
	return len(chunks)
}

// Remove forgets doc.
func (ix *Index) Remove(doc string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.chunks, doc)
}

// Documents reports how many documents have at least one chunk.
func (ix *Index) Documents() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Search returns up to top chunks ranked by how many distinct question terms
// they contain, then by total term frequency. Chunks matching nothing are
// never returned.
func (ix *Index) Search(question string, top int) []Hit {
	query := termCounts(question)
	if len(query) == 0 || top <= 0 {
		return nil
	}
	type scored struct {
		c        chunk
		distinct int
		total    int
	}
	var matches []scored
	ix.mu.RLock()
	for _, chunks := range ix.chunks {
		for _, c := range chunks {
			distinct, total := 0, 0
			for term := range query {
				if n := c.terms[term]; n > 0 {
					distinct++
					total += n
				}
			}
			if distinct > 0 {
				matches = append(matches, scored{c: c, distinct: distinct, total: total})
			}
		}
	}
	ix.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.distinct != b.distinct {
			return a.distinct > b.distinct
		}
		if a.total != b.total {
			return a.total > b.total
		}
		if a.c.doc != b.c.doc {
			return a.c.doc < b.c.doc
		}
		return a.c.index < b.c.index
	})
	if len(matches) > top {
		matches = matches[:top]
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{Doc: m.c.doc, Text: m.c.text, Score: m.distinct}
	}
	return hits
}

func chunkBlocks(blocks []string) []string {
	var out []string
	step := chunkMaxRunes - chunkOverlap
	for _, b := range blocks {
		runes := []rune(strings.TrimSpace(b))
		for i := 0; i < len(runes); i += step {
			end := i + chunkMaxRunes
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, string(runes[i:end]))
			if end == len(runes) {
				break
			}
		}
	}
	return out
}

func termCounts(text string) map[string]int {
	counts := map[string]int{}
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(word)) < 3 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		counts[word]++
	}
	return counts
}
