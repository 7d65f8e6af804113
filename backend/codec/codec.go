// Package codec encodes whole storage documents for file-like backends.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Borislavv/go-ash-storage/config"
	"github.com/Borislavv/go-ash-storage/internal/tree"
	"gopkg.in/yaml.v3"
)

// Codec converts a document tree to bytes and back. An empty input decodes to an empty document.
type Codec interface {
	Marshal(doc map[string]any) ([]byte, error)
	Unmarshal(data []byte) (map[string]any, error)
	ContentType() string
}

// For returns the codec of format; anything but JSON is YAML.
func For(format config.DocumentFormat) Codec {
	if format == config.FormatJSON {
		return JSON{}
	}
	return YAML{}
}

type YAML struct{}

func (YAML) Marshal(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

func (YAML) Unmarshal(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return normalize(doc), nil
}

func (YAML) ContentType() string { return "application/yaml" }

type JSON struct{}

func (JSON) Marshal(doc map[string]any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

func (JSON) Unmarshal(data []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]any), nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return normalize(doc), nil
}

func (JSON) ContentType() string { return "application/json" }

func normalize(doc map[string]any) map[string]any {
	if doc == nil {
		return make(map[string]any)
	}
	return tree.Normalize(doc).(map[string]any)
}
