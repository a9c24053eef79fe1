// Package retrieval provides an in-process lexical retriever. Chunks are
// tokenized into an inverted index and scored with TF-IDF at query time.
package retrieval

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.RetrievalProvider = (*Lexical)(nil)

// Index is the retrieval handle stored on a session. It lives only in
// process memory and is rebuilt from the source when lost.
type Index struct {
	chunks  []string
	lengths []int
	// postings maps a token to per-chunk term counts.
	postings map[string]map[int]int
}

type Lexical struct {
	log *zerolog.Logger
}

func NewLexical(log *zerolog.Logger) *Lexical {
	return &Lexical{log: log}
}

func (l *Lexical) Index(ctx context.Context, chunks []string) (any, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to index")
	}

	idx := &Index{
		chunks:   append([]string(nil), chunks...),
		lengths:  make([]int, len(chunks)),
		postings: make(map[string]map[int]int),
	}
	for i, chunk := range chunks {
		tokens := tokenize(chunk)
		idx.lengths[i] = len(tokens)
		for _, tok := range tokens {
			if idx.postings[tok] == nil {
				idx.postings[tok] = make(map[int]int)
			}
			idx.postings[tok][i]++
		}
	}

	l.log.Debug().Int("chunks", len(chunks)).Int("terms", len(idx.postings)).Msg("lexical index built")
	return idx, nil
}

func (l *Lexical) Search(ctx context.Context, handle any, query string, k int) ([]string, error) {
	idx, ok := handle.(*Index)
	if !ok || idx == nil {
		return nil, errors.New("retrieval handle is not a lexical index")
	}
	if k <= 0 {
		k = 10
	}

	scores := make(map[int]float64)
	for _, tok := range tokenize(query) {
		posting, ok := idx.postings[tok]
		if !ok {
			continue
		}
		idf := math.Log(1 + float64(len(idx.chunks))/float64(len(posting)))
		for chunk, tf := range posting {
			scores[chunk] += idf * float64(tf) / float64(idx.lengths[chunk])
		}
	}

	// No term overlap at all: fall back to the leading chunks so the
	// synthesizer still sees a data sample.
	if len(scores) == 0 {
		n := k
		if n > len(idx.chunks) {
			n = len(idx.chunks)
		}
		return append([]string(nil), idx.chunks[:n]...), nil
	}

	ranked := make([]int, 0, len(scores))
	for chunk := range scores {
		ranked = append(ranked, chunk)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]string, 0, len(ranked))
	for _, chunk := range ranked {
		out = append(out, idx.chunks[chunk])
	}
	return out, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
