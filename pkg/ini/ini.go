// Package ini implements the checksummed-INI envelope used by every
// catalog and manifest file: lines of the form
// "[section]\nkey=<json-value>\n…" with a trailing
// "[backrest]\nbackrest-checksum=\"<sha1>\"" line computed over a
// canonical JSON rendering of the section/key/value tree.
package ini

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/cuemby/pgbackrest-repo/pkg/rerrors"
)

// ChecksumSection is the trailing section name carrying the envelope
// checksum.
const ChecksumSection = "backrest"

const checksumKey = "backrest-checksum"

// Tree is an ordered mapping of section name to an ordered mapping of key
// to raw JSON value. Sections preserve insertion order; within a section,
// Encode emits keys in sorted order.
type Tree struct {
	order []string
	data  map[string]map[string]json.RawMessage
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{data: make(map[string]map[string]json.RawMessage)}
}

// Set stores value under section/key, creating the section if necessary.
// The first Set for a given section fixes its position in insertion order.
func (t *Tree) Set(section, key string, value json.RawMessage) {
	if t.data == nil {
		t.data = make(map[string]map[string]json.RawMessage)
	}
	if _, ok := t.data[section]; !ok {
		t.order = append(t.order, section)
		t.data[section] = make(map[string]json.RawMessage)
	}
	t.data[section][key] = value
}

// Get returns the raw value at section/key.
func (t *Tree) Get(section, key string) (json.RawMessage, bool) {
	m, ok := t.data[section]
	if !ok {
		return nil, false
	}
	v, ok := m[key]
	return v, ok
}

// HasSection reports whether section exists.
func (t *Tree) HasSection(section string) bool {
	_, ok := t.data[section]
	return ok
}

// Sections returns section names in insertion order.
func (t *Tree) Sections() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Keys returns the keys of section, sorted.
func (t *Tree) Keys(section string) []string {
	m := t.data[section]
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Checksum computes the sha1 hex digest of the canonical JSON rendering of
// every section except ChecksumSection.
func (t *Tree) Checksum() (string, error) {
	h := sha1.New()
	if err := writeCanonical(h, t); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeCanonical streams the canonical JSON rendering of every section
// except ChecksumSection to w: sections in insertion order, keys sorted,
// values verbatim, opened with "{" and closed with "}" per section and for
// the outer object — chosen to keep SHA-1 computation streaming for very
// large manifests instead of materializing the whole rendering in memory.
func writeCanonical(w io.Writer, t *Tree) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("{"); err != nil {
		return err
	}

	first := true
	for _, section := range t.order {
		if section == ChecksumSection {
			continue
		}
		if !first {
			if _, err := bw.WriteString(","); err != nil {
				return err
			}
		}
		first = false

		sectionJSON, err := json.Marshal(section)
		if err != nil {
			return err
		}
		if _, err := bw.Write(sectionJSON); err != nil {
			return err
		}
		if _, err := bw.WriteString(":{"); err != nil {
			return err
		}

		keys := t.Keys(section)
		for j, key := range keys {
			if j > 0 {
				if _, err := bw.WriteString(","); err != nil {
					return err
				}
			}
			keyJSON, err := json.Marshal(key)
			if err != nil {
				return err
			}
			if _, err := bw.Write(keyJSON); err != nil {
				return err
			}
			if _, err := bw.WriteString(":"); err != nil {
				return err
			}
			if _, err := bw.Write(t.data[section][key]); err != nil {
				return err
			}
		}

		if _, err := bw.WriteString("}"); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString("}"); err != nil {
		return err
	}

	return bw.Flush()
}

// Encode renders tree as the checksummed-INI envelope: every section in
// insertion order with keys sorted, followed by the trailing
// "[backrest]\nbackrest-checksum=..." line.
func Encode(t *Tree) ([]byte, error) {
	checksum, err := t.Checksum()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, section := range t.order {
		if section == ChecksumSection {
			continue
		}
		fmt.Fprintf(&buf, "[%s]\n", section)
		for _, key := range t.Keys(section) {
			v, _ := t.Get(section, key)
			fmt.Fprintf(&buf, "%s=%s\n", key, string(v))
		}
	}

	checksumJSON, err := json.Marshal(checksum)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(&buf, "[%s]\n%s=%s\n", ChecksumSection, checksumKey, string(checksumJSON))

	return buf.Bytes(), nil
}

// Decode streams (section, key, rawJSON) triples from r in file order,
// invoking cb for each. Comments ("#...") and blank lines are ignored.
// Decode returns *rerrors.Error (KindFormat) for any grammar violation: a
// key-bearing line before any section, an unterminated section header, a
// missing "=", or a zero-length key.
func Decode(r io.Reader, cb func(section, key string, raw json.RawMessage) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var section string
	haveSection := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				return rerrors.NewFormatError(
					fmt.Sprintf("line %d: unterminated section header", lineNo))
			}
			section = trimmed[1 : len(trimmed)-1]
			haveSection = true
			continue
		}

		if !haveSection {
			return rerrors.NewFormatError(
				fmt.Sprintf("line %d: key assignment before any section", lineNo))
		}

		eq := strings.Index(trimmed, "=")
		if eq < 0 {
			return rerrors.NewFormatError(fmt.Sprintf("line %d: missing '='", lineNo))
		}

		key := trimmed[:eq]
		if key == "" {
			return rerrors.NewFormatError(fmt.Sprintf("line %d: zero-length key", lineNo))
		}

		rawValue := trimmed[eq+1:]
		if !json.Valid([]byte(rawValue)) {
			return rerrors.NewFormatError(
				fmt.Sprintf("line %d: value for key %q is not valid JSON", lineNo, key))
		}

		if err := cb(section, key, json.RawMessage(rawValue)); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return rerrors.NewFormatError(err.Error())
	}

	return nil
}

// DecodeTree decodes r fully into a Tree.
func DecodeTree(r io.Reader) (*Tree, error) {
	t := NewTree()
	err := Decode(r, func(section, key string, raw json.RawMessage) error {
		t.Set(section, key, raw)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Verify decodes b and checks the trailing checksum against the canonical
// rendering of everything else, returning ChecksumError on mismatch.
func Verify(b []byte) (*Tree, error) {
	t, err := DecodeTree(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}

	stored, ok := t.Get(ChecksumSection, checksumKey)
	if !ok {
		return nil, rerrors.NewFormatError("missing backrest-checksum entry")
	}

	var storedHex string
	if err := json.Unmarshal(stored, &storedHex); err != nil {
		return nil, rerrors.NewFormatError("backrest-checksum is not a JSON string")
	}

	computed, err := t.Checksum()
	if err != nil {
		return nil, err
	}

	if computed != storedHex {
		return nil, rerrors.NewChecksumError(
			fmt.Sprintf("expected checksum %s, got %s", computed, storedHex))
	}

	return t, nil
}
