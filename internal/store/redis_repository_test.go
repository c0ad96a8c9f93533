package store

import "testing"

func TestRedisRepositoryKeyPrefix(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		parts  []string
		want   string
	}{
		{"default", "", []string{"user", "abc"}, "nestvault:savings:user:abc"},
		{"custom", "staging:savings", []string{"lock", "7"}, "staging:savings:lock:7"},
		{"trailing colon trimmed", "staging:savings:", []string{"lock", "7"}, "staging:savings:lock:7"},
		{"whitespace falls back", "   ", []string{"config"}, "nestvault:savings:config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := NewRedisRepository(nil, tc.prefix, 0)
			got := repo.key(tc.parts...)
			if got != tc.want {
				t.Fatalf("key(%v) = %q, want %q", tc.parts, got, tc.want)
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"3", "1", "42"})
	if err != nil {
		t.Fatalf("parseIDs returned error: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("parsed %d ids, want 3", len(ids))
	}

	if _, err := parseIDs([]string{"7", "not-a-number"}); err == nil {
		t.Fatal("expected error for malformed index entry")
	}
}
