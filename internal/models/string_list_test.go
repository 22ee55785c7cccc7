package models

import (
	"encoding/json"
	"testing"
)

func TestStringListAcceptsStringOrArray(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{`{"ids":["a","b"]}`, []string{"a", "b"}},
		{`{"ids":" a "}`, []string{"a"}},
		{`{"ids":""}`, []string{}},
		{`{"ids":null}`, []string{}},
		{`{"ids":[]}`, []string{}},
	}

	for _, tt := range tests {
		var body struct {
			IDs StringList `json:"ids"`
		}
		if err := json.Unmarshal([]byte(tt.input), &body); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.input, err)
		}
		got := []string(body.IDs)
		if len(got) != len(tt.want) {
			t.Fatalf("unmarshal %s: got %v, want %v", tt.input, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("unmarshal %s: got %v, want %v", tt.input, got, tt.want)
			}
		}
	}
}

func TestStringListRejectsOtherTypes(t *testing.T) {
	var body struct {
		IDs StringList `json:"ids"`
	}
	if err := json.Unmarshal([]byte(`{"ids":42}`), &body); err == nil {
		t.Fatal("expected error for number")
	}
}
