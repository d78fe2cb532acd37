// Package docs serves the embedded OpenAPI document.
package docs

import (
	_ "embed"
	"fmt"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openapiYAML []byte

// Document is the parsed OpenAPI document.
type Document struct {
	raw map[string]any
}

// Load parses the embedded document and points its server entry at root.
func Load(root string) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(openapiYAML, &raw); err != nil {
		return nil, fmt.Errorf("docs: parse openapi: %w", err)
	}
	url := root
	if url == "" {
		url = "/"
	}
	raw["servers"] = []any{map[string]any{"url": url}}
	return &Document{raw: raw}, nil
}

// Paths lists the documented paths.
func (d *Document) Paths() []string {
	paths, _ := d.raw["paths"].(map[string]any)
	out := make([]string, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	return out
}

func (d *Document) JSON() ([]byte, error) {
	return json.MarshalIndent(d.raw, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	return yaml.Marshal(d.raw)
}

// Handler serves the document as YAML when the path ends in .yaml and as
// JSON otherwise.
func (d *Document) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			body []byte
			err  error
			ct   = "application/json"
		)
		if strings.HasSuffix(r.URL.Path, ".yaml") {
			body, err = d.YAML()
			ct = "application/yaml"
		} else {
			body, err = d.JSON()
		}
		if err != nil {
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", ct)
		_, _ = w.Write(body)
	}
}
