package retrieval

import (
	"context"
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func buildIndex(t *testing.T, chunks ...string) (*Lexical, any) {
	t.Helper()
	lex := NewLexical(nopLogger())
	handle, err := lex.Index(context.Background(), chunks)
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	return lex, handle
}

func TestLexical_Index_Empty(t *testing.T) {
	lex := NewLexical(nopLogger())
	if _, err := lex.Index(context.Background(), nil); err == nil {
		t.Fatal("want error for empty corpus")
	}
}

func TestLexical_Search_RanksByRelevance(t *testing.T) {
	lex, handle := buildIndex(t,
		"Rating: 5 | Comments: the venue was excellent",
		"Rating: 2 | Comments: food ran out early",
		"Rating: 4 | Comments: venue parking was hard",
	)

	got, err := lex.Search(context.Background(), handle, "how was the venue", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results", len(got))
	}
	for _, chunk := range got {
		if chunk == "Rating: 2 | Comments: food ran out early" {
			t.Fatalf("irrelevant chunk ranked in top 2: %v", got)
		}
	}
}

func TestLexical_Search_RareTermOutranksCommon(t *testing.T) {
	lex, handle := buildIndex(t,
		"feedback feedback feedback about the session",
		"parking was a nightmare",
		"more feedback about timing",
	)

	got, err := lex.Search(context.Background(), handle, "parking nightmare", 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0] != "parking was a nightmare" {
		t.Fatalf("got %q", got[0])
	}
}

func TestLexical_Search_NoOverlapFallsBackToLeadingChunks(t *testing.T) {
	lex, handle := buildIndex(t, "alpha one", "beta two", "gamma three")

	got, err := lex.Search(context.Background(), handle, "zzz qqq", 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"alpha one", "beta two"}) {
		t.Fatalf("fallback = %v", got)
	}
}

func TestLexical_Search_BadHandle(t *testing.T) {
	lex := NewLexical(nopLogger())
	if _, err := lex.Search(context.Background(), "not an index", "q", 3); err == nil {
		t.Fatal("want error for foreign handle")
	}
	if _, err := lex.Search(context.Background(), nil, "q", 3); err == nil {
		t.Fatal("want error for nil handle")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Rating: 5, Comments: Great!")
	want := []string{"rating", "5", "comments", "great"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("tokenize = %v", got)
	}
}
