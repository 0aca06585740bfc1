package models

import "testing"

func TestFilterCommentsDropsEmptyAndPlaceholder(t *testing.T) {
	comments := []Comment{
		{Username: "alice", Text: "nice shot"},
		{Username: "bob", Text: ""},
		{Username: "carol", Text: "No text"},
		{Username: "dave", Text: "   "},
		{Username: "erin", Text: "keren banget"},
	}

	got := FilterComments(comments)
	if len(got) != 2 {
		t.Fatalf("expected 2 comments after filtering, got %d", len(got))
	}
	if got[0].Username != "alice" || got[1].Username != "erin" {
		t.Errorf("filtering changed comment order: %+v", got)
	}
}

func TestFilterCommentsPreservesOrder(t *testing.T) {
	comments := []Comment{
		{Username: "u1", Text: "first"},
		{Username: "u2", Text: "second"},
		{Username: "u3", Text: "third"},
	}

	got := FilterComments(comments)
	if len(got) != 3 {
		t.Fatalf("expected all 3 comments, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Text != want {
			t.Errorf("comment %d: got %q, want %q", i, got[i].Text, want)
		}
	}
}

func TestFilterCommentsEmptyInput(t *testing.T) {
	if got := FilterComments(nil); len(got) != 0 {
		t.Errorf("expected no comments for nil input, got %d", len(got))
	}
}

func TestPostRowCount(t *testing.T) {
	tests := []struct {
		name     string
		comments []Comment
		want     int
	}{
		{"no comments", nil, 1},
		{"one comment", []Comment{{Username: "a", Text: "x"}}, 1},
		{"three comments", []Comment{
			{Username: "a", Text: "x"},
			{Username: "b", Text: "y"},
			{Username: "c", Text: "z"},
		}, 3},
	}

	for _, tt := range tests {
		p := &Post{URL: "https://www.instagram.com/p/abc/", Comments: tt.comments}
		if got := p.RowCount(); got != tt.want {
			t.Errorf("%s: RowCount() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestFieldConstructors(t *testing.T) {
	if f := OKField("hello"); f.Status != FieldOK || f.Value != "hello" {
		t.Errorf("OKField: got %+v", f)
	}
	if f := MissingField(); f.Status != FieldMissing || f.Value != "" {
		t.Errorf("MissingField: got %+v", f)
	}
	if f := FailedField(); f.Status != FieldFailed || f.Value != "" {
		t.Errorf("FailedField: got %+v", f)
	}
}
