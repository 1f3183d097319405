package record

import (
	"testing"

	"github.com/matzehuels/livegraph/pkg/errors"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantOK       bool
		wantCode     errors.Code
		wantAuthor   string
		wantCategory string
	}{
		{
			name:         "full record",
			line:         `{"message": "I just saw a movie! It was amazing.", "author": "Eve", "category": "movies"}`,
			wantOK:       true,
			wantAuthor:   "Eve",
			wantCategory: "movies",
		},
		{
			name:         "missing fields",
			line:         `{"x": 1}`,
			wantOK:       true,
			wantAuthor:   Unknown,
			wantCategory: Unknown,
		},
		{
			name:         "missing category",
			line:         `{"message": "hi", "author": "Eve"}`,
			wantOK:       true,
			wantAuthor:   "Eve",
			wantCategory: Unknown,
		},
		{
			name:         "null author",
			line:         `{"author": null, "category": "news"}`,
			wantOK:       true,
			wantAuthor:   Unknown,
			wantCategory: "news",
		},
		{
			name:         "numeric author",
			line:         `{"author": 42, "category": true}`,
			wantOK:       true,
			wantAuthor:   "42",
			wantCategory: "true",
		},
		{
			name:         "empty string kept",
			line:         `{"author": "", "category": "news"}`,
			wantOK:       true,
			wantAuthor:   "",
			wantCategory: "news",
		},
		{
			name:         "surrounding whitespace",
			line:         "  {\"author\": \"Bob\", \"category\": \"books\"}\r\n",
			wantOK:       true,
			wantAuthor:   "Bob",
			wantCategory: "books",
		},
		{name: "bare number", line: `42`},
		{name: "list", line: `[1, 2, 3]`},
		{name: "string", line: `"hello"`},
		{name: "null", line: `null`},
		{name: "not JSON", line: `hello world`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "truncated", line: `{"author": "Eve"`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "blank", line: "   ", wantCode: errors.ErrCodeMalformedRecord},
		{name: "trailing data", line: `{"author": "Eve"} {}`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "trailing brace", line: `{"author": "Eve", "category": "movies"}}`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "trailing bracket", line: `{"author": "Eve", "category": "movies"}]`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "trailing word", line: `{"author": "Eve", "category": "movies"} x`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "list then bracket", line: `[1]]`, wantCode: errors.ErrCodeMalformedRecord},
		{name: "object author", line: `{"author": {"name": "Eve"}}`, wantCode: errors.ErrCodeProcessing},
		{name: "list category", line: `{"author": "Eve", "category": ["a"]}`, wantCode: errors.ErrCodeProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok, err := Decode(tt.line)

			if tt.wantCode != "" {
				if !errors.Is(err, tt.wantCode) {
					t.Fatalf("Decode(%q) error = %v, want code %s", tt.line, err, tt.wantCode)
				}
				if ok {
					t.Errorf("Decode(%q) ok = true on error", tt.line)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%q) unexpected error: %v", tt.line, err)
			}
			if ok != tt.wantOK {
				t.Fatalf("Decode(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if rec.Author != tt.wantAuthor {
				t.Errorf("Author = %q, want %q", rec.Author, tt.wantAuthor)
			}
			if rec.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q", rec.Category, tt.wantCategory)
			}
		})
	}
}

func TestDecodeKeepsOtherFields(t *testing.T) {
	rec, ok, err := Decode(`{"message": "hello", "author": "Eve", "category": "movies", "likes": 3}`)
	if err != nil || !ok {
		t.Fatalf("Decode() = %v, %v", ok, err)
	}
	if rec.Fields["message"] != "hello" {
		t.Errorf("Fields[message] = %v, want hello", rec.Fields["message"])
	}
	if _, ok := rec.Fields["likes"]; !ok {
		t.Error("Fields should keep unknown keys")
	}
}
