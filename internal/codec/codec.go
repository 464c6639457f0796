// Package codec converts a note to and from its persisted file encoding.
//
// The on-disk form is a single YAML document:
//
//	title: Plan
//	blocks:
//	    - type: body
//	      data: Q1 goals
//	    - type: image
//	      data: pic.jpg
//
// Decode is strict: unknown fields, a missing title, a block without type
// or data, or an unknown block type all fail with apperr.ErrCorruptNote
// rather than silently misparsing. Decode(Encode(n)) == n for every valid
// note, including empty bodies and blocks with empty-string data.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// fileNote mirrors models.Note with pointer fields so a missing key can be
// told apart from an empty value.
type fileNote struct {
	Title  *string     `yaml:"title"`
	Blocks []fileBlock `yaml:"blocks"`
}

type fileBlock struct {
	Type *string `yaml:"type"`
	Data *string `yaml:"data"`
}

// Encode serializes a note to its file representation. The output is
// deterministic for a given note.
func Encode(n models.Note) ([]byte, error) {
	doc := struct {
		Title  string         `yaml:"title"`
		Blocks []models.Block `yaml:"blocks"`
	}{
		Title:  n.Title,
		Blocks: n.Blocks,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return out, nil
}

// Decode parses a persisted note file. Any malformed input fails with
// apperr.ErrCorruptNote; callers surface it as a load error, never a crash.
func Decode(data []byte) (models.Note, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc fileNote
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Note{}, fmt.Errorf("codec: empty document: %w", apperr.ErrCorruptNote)
		}
		return models.Note{}, fmt.Errorf("codec: %v: %w", err, apperr.ErrCorruptNote)
	}
	if doc.Title == nil {
		return models.Note{}, fmt.Errorf("codec: missing title: %w", apperr.ErrCorruptNote)
	}

	n := models.Note{Title: *doc.Title}
	for i, b := range doc.Blocks {
		if b.Type == nil {
			return models.Note{}, fmt.Errorf("codec: block %d: missing type: %w", i, apperr.ErrCorruptNote)
		}
		if b.Data == nil {
			return models.Note{}, fmt.Errorf("codec: block %d: missing data: %w", i, apperr.ErrCorruptNote)
		}
		bt := models.BlockType(*b.Type)
		if !bt.Valid() {
			return models.Note{}, fmt.Errorf("codec: block %d: unknown type %q: %w", i, *b.Type, apperr.ErrCorruptNote)
		}
		n.Blocks = append(n.Blocks, models.Block{Type: bt, Data: *b.Data})
	}
	return n, nil
}
