package devbackend

import (
	"fmt"
	"strings"
)

// NoDocumentsAnswer is returned when retrieval finds nothing.
const NoDocumentsAnswer = "No relevant documents found to answer your question."

const excerptMaxRunes = 400

// composeAnswer builds an extractive answer from retrieved chunks. It quotes
// the best matching sentence of each chunk and names its source.
func composeAnswer(question string, hits []Hit) string {
	if len(hits) == 0 {
		return NoDocumentsAnswer
	}
	query := termCounts(question)
	var b strings.Builder
	b.WriteString("Based on the uploaded documents:\n")
	seen := map[string]struct{}{}
	for _, hit := range hits {
		excerpt := bestSentence(hit.Text, query)
		key := hit.Doc + "\x00" + excerpt
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		fmt.Fprintf(&b, "\n• %s (%s)", excerpt, hit.Doc)
	}
	return b.String()
}

func bestSentence(text string, query map[string]int) string {
	sentences := splitSentences(text)
	best, bestScore := "", -1
	for _, s := range sentences {
		terms := termCounts(s)
		score := 0
		for term := range query {
			if terms[term] > 0 {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = s, score
		}
	}
	return truncateRunes(strings.Join(strings.Fields(best), " "), excerptMaxRunes)
}

func splitSentences(text string) []string {
	var (
		out     []string
		current strings.Builder
	)
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '?' || r == '!' || r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
