package ini

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func buildTree() *Tree {
	t := NewTree()
	t.Set("db", "db-id", json.RawMessage(`1`))
	t.Set("db", "db-version", json.RawMessage(`"11"`))
	t.Set("backup:current", "20210101-120000F", json.RawMessage(`{"backrest-format":5}`))
	return t
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tree := buildTree()

	encoded, err := Encode(tree)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Verify(encoded)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	for _, section := range tree.Sections() {
		for _, key := range tree.Keys(section) {
			want, _ := tree.Get(section, key)
			got, ok := decoded.Get(section, key)
			if !ok {
				t.Errorf("missing %s/%s after round-trip", section, key)
				continue
			}
			if !bytes.Equal(want, got) {
				t.Errorf("%s/%s = %s, want %s", section, key, got, want)
			}
		}
	}
}

func TestChecksumStableAcrossInsertionPerturbation(t *testing.T) {
	a := NewTree()
	a.Set("db", "x", json.RawMessage(`1`))
	a.Set("db", "a", json.RawMessage(`2`))

	b := NewTree()
	// Same section, keys inserted in a different order - canonical
	// rendering sorts keys within a section, so the checksum must match.
	b.Set("db", "a", json.RawMessage(`2`))
	b.Set("db", "x", json.RawMessage(`1`))

	ca, err := a.Checksum()
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}
	cb, err := b.Checksum()
	if err != nil {
		t.Fatalf("Checksum() error = %v", err)
	}

	if ca != cb {
		t.Errorf("checksums differ across key-insertion order: %s != %s", ca, cb)
	}
}

func TestChecksumDiffersOnSectionOrder(t *testing.T) {
	a := NewTree()
	a.Set("alpha", "k", json.RawMessage(`1`))
	a.Set("beta", "k", json.RawMessage(`2`))

	b := NewTree()
	b.Set("beta", "k", json.RawMessage(`2`))
	b.Set("alpha", "k", json.RawMessage(`1`))

	ca, _ := a.Checksum()
	cb, _ := b.Checksum()

	if ca == cb {
		t.Error("checksums should differ when section insertion order differs")
	}
}

func TestVerifyDetectsCorruption(t *testing.T) {
	tree := buildTree()
	encoded, err := Encode(tree)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	corrupted := strings.Replace(string(encoded), `"11"`, `"99"`, 1)
	if corrupted == string(encoded) {
		t.Fatal("test setup failed to corrupt content")
	}

	if _, err := Verify([]byte(corrupted)); err == nil {
		t.Error("Verify() should fail on corrupted content")
	}
}

func TestDecodeGrammarErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"key before section", "key=1\n"},
		{"unterminated section", "[db\n"},
		{"missing equals", "[db]\nkey1\n"},
		{"zero length key", "[db]\n=1\n"},
		{"invalid json value", "[db]\nkey=not-json\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(strings.NewReader(tt.text), func(string, string, json.RawMessage) error {
				return nil
			})
			if err == nil {
				t.Errorf("Decode(%q) should have failed", tt.text)
			}
		})
	}
}

func TestDecodeIgnoresCommentsAndBlankLines(t *testing.T) {
	text := "# a comment\n\n[db]\n# another comment\nkey=1\n\n"

	var got []string
	err := Decode(strings.NewReader(text), func(section, key string, raw json.RawMessage) error {
		got = append(got, section+"/"+key+"="+string(raw))
		return nil
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if len(got) != 1 || got[0] != "db/key=1" {
		t.Errorf("Decode() entries = %v, want [db/key=1]", got)
	}
}
