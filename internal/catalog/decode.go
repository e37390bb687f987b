package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RawCatalog is the decoded category tree in document order.
type RawCatalog struct {
	Categories []RawCategory
}

// RawCategory is one category key and its undecoded-shape value.
type RawCategory struct {
	Key   string
	Value any
}

// RawKnowledge is the decoded knowledge tree in document order.
type RawKnowledge struct {
	Entries []RawEntry
}

// RawEntry is one knowledge key and its value.
type RawEntry struct {
	Key   string
	Value any
}

const (
	catalogWrapperKey   = "categories"
	knowledgeWrapperKey = "products_knowledge"
)

var errNotObject = errors.New("value is not an object")

// DecodeCatalog decodes a catalog document. Both {"categories": {...}} and a bare
// category mapping are accepted. Category order follows the document.
func DecodeCatalog(data []byte) (RawCatalog, error) {
	fields, err := decodeRoot(data, catalogWrapperKey)
	if err != nil {
		return RawCatalog{}, &IndexBuildError{Reason: "catalog document", Err: err}
	}
	raw := RawCatalog{Categories: make([]RawCategory, 0, len(fields))}
	for _, f := range fields {
		raw.Categories = append(raw.Categories, RawCategory{Key: f.key, Value: f.value})
	}
	return raw, nil
}

// DecodeKnowledge decodes a knowledge document. Both {"products_knowledge": {...}}
// and a bare entry mapping are accepted.
func DecodeKnowledge(data []byte) (RawKnowledge, error) {
	fields, err := decodeRoot(data, knowledgeWrapperKey)
	if err != nil {
		return RawKnowledge{}, &IndexBuildError{Reason: "knowledge document", Err: err}
	}
	raw := RawKnowledge{Entries: make([]RawEntry, 0, len(fields))}
	for _, f := range fields {
		raw.Entries = append(raw.Entries, RawEntry{Key: f.key, Value: f.value})
	}
	return raw, nil
}

type field struct {
	key   string
	value any
}

// decodeRoot reads the top-level object. When wrapperKey is present its object
// value is returned in order, otherwise the root fields themselves are returned.
func decodeRoot(data []byte, wrapperKey string) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if err := expectObject(dec); err != nil {
		return nil, err
	}

	var (
		root    []field
		wrapped []field
		found   bool
	)
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key == wrapperKey && !found {
			wrapped, err = decodeObject(dec)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", wrapperKey, err)
			}
			found = true
			continue
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", key, err)
		}
		root = append(root, field{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of object: %w", err)
	}

	if found {
		return wrapped, nil
	}
	return root, nil
}

// decodeObject reads one object from dec, keeping key order for its direct fields.
func decodeObject(dec *json.Decoder) ([]field, error) {
	if err := expectObject(dec); err != nil {
		return nil, err
	}
	var fields []field
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", key, err)
		}
		fields = append(fields, field{key: key, value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of object: %w", err)
	}
	return fields, nil
}

func expectObject(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v", tok)
	}
	return key, nil
}
