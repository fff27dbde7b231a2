package template

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestFillReplacesKnownTokens(t *testing.T) {
	t.Parallel()

	values := map[string]string{"title": "Photosynthesis"}
	filled, missing := Fill(values, "<h1>{{title}}</h1><p>{{unknownField}}</p>")

	if filled != "<h1>Photosynthesis</h1><p>{{unknownField}}</p>" {
		t.Fatalf("unexpected output: %s", filled)
	}
	if len(missing) != 1 || missing[0] != "unknownField" {
		t.Fatalf("unexpected missing report: %v", missing)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(filled))
	if err != nil {
		t.Fatalf("parse filled html: %v", err)
	}
	if got := doc.Find("h1").Text(); got != "Photosynthesis" {
		t.Fatalf("unexpected h1 text: %s", got)
	}
}

func TestFillReportsEachMissingTokenOnce(t *testing.T) {
	t.Parallel()

	filled, missing := Fill(map[string]string{}, "{{a}} {{b}} {{a}}")

	if filled != "{{a}} {{b}} {{a}}" {
		t.Fatalf("tokens should stay verbatim: %s", filled)
	}
	if len(missing) != 2 || missing[0] != "a" || missing[1] != "b" {
		t.Fatalf("unexpected missing report: %v", missing)
	}
}

func TestFillWithoutTokens(t *testing.T) {
	t.Parallel()

	filled, missing := Fill(map[string]string{"x": "1"}, "plain text")
	if filled != "plain text" || len(missing) != 0 {
		t.Fatalf("unexpected result: %q %v", filled, missing)
	}
}
