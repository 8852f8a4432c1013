package lookup

import (
	"errors"
	"testing"
)

func TestIsImageURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://upload.wikimedia.org/a/Cat.JPG", true},
		{"https://upload.wikimedia.org/a/cat.jpeg", true},
		{"https://upload.wikimedia.org/a/cat.png", true},
		{"https://upload.wikimedia.org/a/cat.gif ", true},
		{"https://upload.wikimedia.org/a/cat.svg", false},
		{"https://upload.wikimedia.org/a/cat.png.ogg", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := IsImageURL(tc.url); got != tc.want {
			t.Fatalf("IsImageURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestSummaryConstructors(t *testing.T) {
	if r := Found("text"); r.Kind != SummaryFound || r.Text != "text" {
		t.Fatalf("unexpected found result: %+v", r)
	}
	if r := Ambiguous([]string{"a"}); r.Kind != SummaryAmbiguous || len(r.Options) != 1 {
		t.Fatalf("unexpected ambiguous result: %+v", r)
	}
	if r := NotFound(); r.Kind != SummaryNotFound {
		t.Fatalf("unexpected not found result: %+v", r)
	}
	boom := errors.New("boom")
	if r := Failed(boom); r.Kind != SummaryFailed || !errors.Is(r.Err, boom) {
		t.Fatalf("unexpected failed result: %+v", r)
	}
	if SummaryAmbiguous.String() != "ambiguous" {
		t.Fatalf("unexpected kind name %q", SummaryAmbiguous.String())
	}
}
