package devbackend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchRanksByDistinctTerms(t *testing.T) {
	ix := NewIndex()
	ix.Add("a.txt", []string{"Encryption keys rotate yearly."})
	ix.Add("b.txt", []string{"Encryption keys rotate quarterly for payment systems."})
	ix.Add("c.txt", []string{"Unrelated cafeteria menu."})

	hits := ix.Search("How often do payment encryption keys rotate?", 5)
	require.Len(t, hits, 2)
	require.Equal(t, "b.txt", hits[0].Doc)
	require.Equal(t, "a.txt", hits[1].Doc)
}

func TestSearchHonorsTopAndReplacement(t *testing.T) {
	ix := NewIndex()
	for _, name := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		ix.Add(name, []string{"audit logging policy " + name})
	}
	require.Len(t, ix.Search("audit", 5), 5)

	ix.Add("1", []string{"nothing relevant"})
	for _, hit := range ix.Search("audit", 10) {
		require.NotEqual(t, "1", hit.Doc)
	}
	ix.Add("2", nil)
	require.Equal(t, 6, ix.Documents())
}

func TestSearchIgnoresStopWords(t *testing.T) {
	ix := NewIndex()
	ix.Add("a.txt", []string{"what are the and for"})
	require.Empty(t, ix.Search("What are the rules?", 5))
}

func TestChunkBlocksOverlap(t *testing.T) {
	text := strings.Repeat("x", chunkMaxRunes+500)
	chunks := chunkBlocks([]string{text})
	require.Len(t, chunks, 2)
	require.Len(t, []rune(chunks[0]), chunkMaxRunes)
	require.Len(t, []rune(chunks[1]), 500+chunkOverlap)
}

func TestComposeAnswer(t *testing.T) {
	require.Equal(t, NoDocumentsAnswer, composeAnswer("anything", nil))
	answer := composeAnswer("retention period", []Hit{{
		Doc:  "policy.txt",
		Text: "Scope covers all staff. The retention period is seven years. Review annually.",
	}})
	require.Contains(t, answer, "The retention period is seven years. (policy.txt)")
	require.NotContains(t, answer, "Scope covers")
}

func TestExtractTextByExtension(t *testing.T) {
	blocks, err := extractText("notes.TXT", []byte("plain text"))
	require.NoError(t, err)
	require.Equal(t, []string{"plain text"}, blocks)

	_, err = extractText("legacy.doc", []byte{0xd0, 0xcf})
	require.ErrorIs(t, err, errNotIndexable)

	_, err = extractText("broken.pdf", []byte("not a pdf"))
	require.Error(t, err)

	_, err = extractText("broken.docx", []byte("not a zip"))
	require.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	name, err := sanitizeName("../../etc/passwd")
	require.NoError(t, err)
	require.Equal(t, "passwd", name)

	name, err = sanitizeName(`C:\docs\policy.pdf`)
	require.NoError(t, err)
	require.Equal(t, "policy.pdf", name)

	for _, bad := range []string{"", "..", ".hidden", "/"} {
		_, err := sanitizeName(bad)
		require.Errorf(t, err, "expected %q to be rejected", bad)
	}
}
