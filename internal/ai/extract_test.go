package ai

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `  {"skills":["go"]}  `,
			want:  `{"skills":["go"]}`,
		},
		{
			name:  "fenced json block",
			input: "Here you go:\n```json\n{\"match_score\": 72}\n```\nGood luck!",
			want:  `{"match_score": 72}`,
		},
		{
			name:  "fenced block without language",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "object surrounded by prose",
			input: `Sure! {"summary": "solid {backend} profile"} Hope this helps.`,
			want:  `{"summary": "solid {backend} profile"}`,
		},
		{
			name:    "array is not an object",
			input:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "truncated object",
			input:   `{"skills": ["go", "sql"`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON([]byte(tt.input))
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSONObject) {
					t.Errorf("expected ErrNoJSONObject, got %v (%q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func BenchmarkExtractJSON(b *testing.B) {
	input := []byte("The evaluation follows.\n```json\n{\"per_question\":[{\"question_id\":\"code-1\",\"score\":80,\"feedback\":\"ok\"}]}\n```")
	for b.Loop() {
		if _, err := ExtractJSON(input); err != nil {
			b.Fatal(err)
		}
	}
}
