package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docent/internal/core/domain"
)

// wordText builds a text of n single-token words "w0 w1 w2 ...".
func wordText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "w%d", i)
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c, err := New()
		require.NoError(t, err)
		assert.Equal(t, DefaultChunkSize, c.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, c.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		c, err := New(WithChunkSize(500), WithOverlap(100))
		require.NoError(t, err)
		assert.Equal(t, 500, c.ChunkSize())
		assert.Equal(t, 100, c.Overlap())
	})

	t.Run("overlap equals size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(100))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("overlap exceeds size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(100), WithOverlap(150))
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("non-positive size rejected", func(t *testing.T) {
		_, err := New(WithChunkSize(0))
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("non-positive overlap rejected", func(t *testing.T) {
		_, err := New(WithOverlap(-1))
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace only", text: "  \n\t ", want: 0},
		{name: "plain words", text: "one two three", want: 3},
		{name: "punctuation counts", text: "hello, world!", want: 4},
		{name: "digits and underscores join words", text: "chunk_id v2 x9y", want: 3},
		{name: "unicode words", text: "café naïve", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Tokenize(tt.text), tt.want)
			assert.Equal(t, tt.want, CountTokens(tt.text))
		})
	}
}

func TestChunk_EmptyContent(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	chunks, err := c.Chunk(&domain.Document{ID: "doc-1", Content: ""})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunk_NilDocument(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	_, err = c.Chunk(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunk_SingleWindowWhenShort(t *testing.T) {
	c, err := New(WithChunkSize(100), WithOverlap(20))
	require.NoError(t, err)

	doc := &domain.Document{ID: "doc-1", URI: "a.txt", Content: wordText(100)}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 100, chunks[0].TokenCount)
	assert.Equal(t, 0, chunks[0].SequenceIndex)
	assert.Equal(t, doc.Content, chunks[0].Text)
	assert.Equal(t, "doc-1", chunks[0].DocumentID)
}

func TestChunk_ThreeThousandTokens(t *testing.T) {
	c, err := New(WithChunkSize(1000), WithOverlap(120))
	require.NoError(t, err)

	doc := &domain.Document{ID: "doc-1", URI: "big.txt", Content: wordText(3000)}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)

	// Stride 880: windows [0,1000) [880,1880) [1760,2760) [2640,3000).
	require.Len(t, chunks, 4)

	wantCounts := []int{1000, 1000, 1000, 360}
	wantFirstWord := []string{"w0", "w880", "w1760", "w2640"}
	for i, chunk := range chunks {
		assert.Equal(t, wantCounts[i], chunk.TokenCount, "chunk %d token count", i)
		assert.Equal(t, i, chunk.SequenceIndex)
		firstWord := strings.Fields(chunk.Text)[0]
		assert.Equal(t, wantFirstWord[i], firstWord, "chunk %d start", i)
	}

	lastWords := strings.Fields(chunks[3].Text)
	assert.Equal(t, "w2999", lastWords[len(lastWords)-1])
}

func TestChunk_OverlapInvariant(t *testing.T) {
	c, err := New(WithChunkSize(50), WithOverlap(10))
	require.NoError(t, err)

	doc := &domain.Document{ID: "doc-1", URI: "mid.txt", Content: wordText(140)}
	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 0; i < len(chunks)-1; i++ {
		assert.Equal(t, 50, chunks[i].TokenCount, "non-final chunk %d must be full", i)

		// The last `overlap` tokens of chunk i are the first of chunk i+1.
		prev := strings.Fields(chunks[i].Text)
		next := strings.Fields(chunks[i+1].Text)
		assert.Equal(t, prev[len(prev)-10:], next[:10], "overlap between chunks %d and %d", i, i+1)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	c, err := New(WithChunkSize(200), WithOverlap(40))
	require.NoError(t, err)

	doc := &domain.Document{ID: "doc-1", URI: "repeat.txt", Content: wordText(900)}

	first, err := c.Chunk(doc)
	require.NoError(t, err)
	second, err := c.Chunk(doc)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].TokenCount, second[i].TokenCount)
	}
}

func TestChunk_IDsUniquePerIndex(t *testing.T) {
	c, err := New(WithChunkSize(50), WithOverlap(10))
	require.NoError(t, err)

	// Identical repeated content: IDs must still differ by index.
	content := strings.Repeat("same words again ", 60)
	doc := &domain.Document{ID: "doc-1", URI: "same.txt", Content: content}

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	seen := make(map[string]bool)
	for _, chunk := range chunks {
		assert.False(t, seen[chunk.ID], "duplicate chunk ID %s", chunk.ID)
		seen[chunk.ID] = true
		assert.True(t, strings.HasPrefix(chunk.ID, "chunk_"))
	}
}

func TestChunk_SectionAndRefAssignment(t *testing.T) {
	c, err := New(WithChunkSize(10), WithOverlap(2))
	require.NoError(t, err)

	content := wordText(30)
	midOffset := strings.Index(content, "w15")
	lateOffset := strings.Index(content, "w25")

	doc := &domain.Document{
		ID:      "doc-1",
		URI:     "sec.txt",
		Content: content,
		Sections: []domain.SectionMarker{
			{Title: "Intro", Offset: 0},
			{Title: "Details", Offset: midOffset},
		},
		Links: []domain.LinkRef{
			{Text: "ref", URL: "https://example.com/a", Offset: midOffset},
		},
		Images: []domain.ImageRef{
			{Alt: "diagram", URL: "https://example.com/d.png", Offset: lateOffset},
		},
	}

	chunks, err := c.Chunk(doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, "Intro", chunks[0].Section)

	var linkChunks, imageChunks int
	for _, chunk := range chunks {
		if len(chunk.Links) > 0 {
			linkChunks++
			assert.Contains(t, chunk.Links, "https://example.com/a")
			assert.Equal(t, "Details", chunk.Section)
		}
		if len(chunk.Images) > 0 {
			imageChunks++
			assert.Contains(t, chunk.Images, "https://example.com/d.png")
		}
	}

	// Offsets land in exactly one window unless shared via overlap.
	assert.GreaterOrEqual(t, linkChunks, 1)
	assert.GreaterOrEqual(t, imageChunks, 1)
}
