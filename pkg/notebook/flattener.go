// Package notebook converts structured, cell-based submission payloads into a
// single plain-text blob suitable for prompting. Inputs that are not valid
// notebooks are passed through verbatim; plain-text submissions are a valid
// input class, not an error.
package notebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoContent indicates a submission offers nothing to grade. Callers must
// not proceed to model invocation.
var ErrNoContent = errors.New("submission has no gradable content")

// maxFetchBytes bounds how much of a referenced file gets read.
const maxFetchBytes = 5 << 20

const notebookSchemaJSON = `{
	"type": "object",
	"required": ["cells"],
	"properties": {
		"cells": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["cell_type", "source"],
				"properties": {
					"cell_type": {"type": "string"},
					"source": {
						"anyOf": [
							{"type": "string"},
							{"type": "array", "items": {"type": "string"}}
						]
					},
					"outputs": {"type": "array"}
				}
			}
		}
	}
}`

var notebookSchema = jsonschema.MustCompileString("notebook.json", notebookSchemaJSON)

// Cell is one rendered notebook cell.
type Cell struct {
	Index  int
	Type   string
	Source string
	Output string
}

// Document is the tagged result of parsing a submission payload: either a
// structured sequence of cells or the original text verbatim.
type Document struct {
	Cells []Cell
	Text  string
}

// IsStructured reports whether the payload parsed as a notebook.
func (d Document) IsStructured() bool {
	return d.Cells != nil
}

type rawCell struct {
	CellType string            `json:"cell_type"`
	Source   json.RawMessage   `json:"source"`
	Outputs  []json.RawMessage `json:"outputs"`
}

type rawNotebook struct {
	Cells []rawCell `json:"cells"`
}

// Parse validates the payload against the notebook schema and decodes its
// cells. Anything that is not a valid notebook becomes a plain-text document.
func Parse(raw string) Document {
	var generic interface{}
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return Document{Text: raw}
	}

	if err := notebookSchema.Validate(generic); err != nil {
		return Document{Text: raw}
	}

	var nb rawNotebook
	if err := json.Unmarshal([]byte(raw), &nb); err != nil {
		return Document{Text: raw}
	}

	cells := make([]Cell, 0, len(nb.Cells))
	for i, cell := range nb.Cells {
		cells = append(cells, Cell{
			Index:  i,
			Type:   cell.CellType,
			Source: joinText(cell.Source),
			Output: renderOutputs(cell.Outputs),
		})
	}

	return Document{Cells: cells}
}

// Flatten renders the payload as a single prompt-ready text blob. Structured
// notebooks become labeled cell blocks; everything else passes through
// unchanged. No length limit is applied here; the caller truncates.
func Flatten(raw string) string {
	doc := Parse(raw)
	if !doc.IsStructured() {
		return doc.Text
	}

	blocks := make([]string, 0, len(doc.Cells))
	for _, cell := range doc.Cells {
		builder := strings.Builder{}
		builder.WriteString(fmt.Sprintf("[Cell %d - %s]\n", cell.Index, cell.Type))
		builder.WriteString(cell.Source)
		if cell.Output != "" {
			builder.WriteString("\n[Output]\n")
			builder.WriteString(cell.Output)
		}
		blocks = append(blocks, builder.String())
	}

	return strings.Join(blocks, "\n\n")
}

// Resolve returns the text to grade: inline content when present, otherwise
// the body of the referenced file. Fetch failures are logged and swallowed so
// the caller can still route the submission to manual review.
func Resolve(ctx context.Context, content *string, fileURL string, client *http.Client, logger zerolog.Logger) (string, error) {
	if content != nil && *content != "" {
		return *content, nil
	}

	if fileURL != "" {
		if body, ok := fetchText(ctx, fileURL, client, logger); ok {
			return body, nil
		}
	}

	return "", ErrNoContent
}

func fetchText(ctx context.Context, fileURL string, client *http.Client, logger zerolog.Logger) (string, bool) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		logger.Warn().Err(err).Str("file_url", fileURL).Msg("invalid submission file url")
		return "", false
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("file_url", fileURL).Msg("failed to fetch submission file")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warn().Int("status", resp.StatusCode).Str("file_url", fileURL).Msg("submission file fetch returned non-success status")
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		logger.Warn().Err(err).Str("file_url", fileURL).Msg("failed to read submission file body")
		return "", false
	}

	if len(body) == 0 {
		return "", false
	}

	if !isTextual(mimetype.Detect(body)) {
		logger.Warn().Str("file_url", fileURL).Msg("submission file is not textual, skipping")
		return "", false
	}

	return string(body), true
}

func isTextual(detected *mimetype.MIME) bool {
	for m := detected; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") || m.Is("application/json") {
			return true
		}
	}
	return false
}

// joinText handles notebook sources and outputs that arrive either as a
// single string or a list of lines. Jupyter keeps the trailing newline on
// each line; lists without newlines get them inserted.
func joinText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}

	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return ""
	}

	for _, line := range lines {
		if strings.HasSuffix(line, "\n") {
			return strings.TrimRight(strings.Join(lines, ""), "\n")
		}
	}

	return strings.Join(lines, "\n")
}

func renderOutputs(outputs []json.RawMessage) string {
	parts := make([]string, 0, len(outputs))
	for _, raw := range outputs {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			continue
		}

		text := joinText(fields["text"])
		if text == "" {
			if data, ok := fields["data"]; ok {
				var dataFields map[string]json.RawMessage
				if err := json.Unmarshal(data, &dataFields); err == nil {
					text = joinText(dataFields["text/plain"])
				}
			}
		}
		if text == "" {
			text = joinText(fields["text/plain"])
		}

		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n")
}
