package gateway

import (
	"encoding/json"
	"testing"
)

// jsonUnmarshal is a tiny indirection so gateway_test.go does not import
// encoding/json twice under different names.
func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "bare object",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "json code fence",
			in:   "```json\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "plain code fence",
			in:   "```\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "surrounding commentary",
			in:   "Here you go: {\"matched\": [\"Go\"]} hope that helps!",
			want: `{"matched": ["Go"]}`,
		},
		{
			name: "nested braces",
			in:   `prefix {"outer": {"inner": 2}} suffix`,
			want: `{"outer": {"inner": 2}}`,
		},
		{
			name:    "no object",
			in:      "just words",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			in:      `{"a": `,
			wantErr: true,
		},
		{
			name:    "invalid json between braces",
			in:      "{not json}",
			wantErr: true,
		},
		{
			name:    "empty input",
			in:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractJSON(%q) error = nil, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON(%q) error = %v", tt.in, err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
