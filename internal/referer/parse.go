package referer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a referer database, choosing YAML for .yml/.yaml names and
// JSON for everything else.
func Parse(name string, data []byte) (Source, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return ParseYAML(data)
	default:
		return ParseJSON(data)
	}
}

// ParseJSON decodes the JSON form of the database. Object keys are read as a
// token stream so medium and referer declaration order survives decoding.
func ParseJSON(data []byte) (Source, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{', "database"); err != nil {
		return Source{}, err
	}
	var src Source
	for dec.More() {
		medium, err := readKey(dec)
		if err != nil {
			return Source{}, err
		}
		if err := expectDelim(dec, '{', "medium "+medium); err != nil {
			return Source{}, err
		}
		for dec.More() {
			name, err := readKey(dec)
			if err != nil {
				return Source{}, err
			}
			var cfg entryConfig
			if err := dec.Decode(&cfg); err != nil {
				return Source{}, fmt.Errorf("%w: %s/%s: %w", ErrMalformedSource, medium, name, err)
			}
			src.Entries = append(src.Entries, cfg.entry(medium, name))
		}
		if err := expectDelim(dec, '}', "medium "+medium); err != nil {
			return Source{}, err
		}
	}
	if err := expectDelim(dec, '}', "database"); err != nil {
		return Source{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Source{}, fmt.Errorf("%w: trailing data after database object", ErrMalformedSource)
	}
	return src, nil
}

func expectDelim(dec *json.Decoder, want json.Delim, what string) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedSource, what, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: %s: expected %q, got %v", ErrMalformedSource, what, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrMalformedSource, tok)
	}
	return key, nil
}

// ParseYAML decodes the YAML form of the database (referers.yml). Mapping
// nodes are walked directly to keep document order.
func ParseYAML(data []byte) (Source, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Source{}, fmt.Errorf("%w: %w", ErrMalformedSource, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Source{}, fmt.Errorf("%w: empty document", ErrMalformedSource)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Source{}, fmt.Errorf("%w: database is not a mapping (line %d)", ErrMalformedSource, root.Line)
	}
	var src Source
	for i := 0; i+1 < len(root.Content); i += 2 {
		medium := root.Content[i].Value
		referers := root.Content[i+1]
		if referers.Kind != yaml.MappingNode {
			return Source{}, fmt.Errorf("%w: medium %s is not a mapping (line %d)", ErrMalformedSource, medium, referers.Line)
		}
		for j := 0; j+1 < len(referers.Content); j += 2 {
			name := referers.Content[j].Value
			var cfg entryConfig
			if err := referers.Content[j+1].Decode(&cfg); err != nil {
				return Source{}, fmt.Errorf("%w: %s/%s: %w", ErrMalformedSource, medium, name, err)
			}
			src.Entries = append(src.Entries, cfg.entry(medium, name))
		}
	}
	return src, nil
}
