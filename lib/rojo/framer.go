// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rojo

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// Document is one complete snapshot extracted from the tool's output.
type Document struct {
	// Node is the decoded snapshot root.
	Node *sourcemap.Node

	// Digest identifies the exact bytes of the document.
	Digest sourcemap.Hash
}

// Framer reassembles snapshot documents from a chunked byte stream.
// Chunks are appended to an accumulator; whenever the accumulator
// begins with a complete JSON value, that value is decoded, emitted,
// and removed. Incomplete input is kept until more data arrives, and
// input that never becomes valid stays buffered for the life of the
// Framer. A complete value whose fields have the wrong types is
// dropped with a warning.
//
// Framer implements io.Writer so it can be the target of io.Copy.
// Callbacks run on the writing goroutine after the accumulator has
// been updated.
type Framer struct {
	onLoading  func()
	onDocument func(Document)
	logger     *slog.Logger

	mutex       sync.Mutex
	accumulated []byte
}

// NewFramer returns a Framer that calls onDocument for every complete
// document and onLoading whenever data arrives while the accumulator
// is empty, i.e. when a new document starts. Either callback may be
// nil.
func NewFramer(onLoading func(), onDocument func(Document)) *Framer {
	return &Framer{onLoading: onLoading, onDocument: onDocument, logger: slog.Default()}
}

// SetLogger replaces the logger that receives dropped-document
// warnings.
func (framer *Framer) SetLogger(logger *slog.Logger) {
	framer.mutex.Lock()
	defer framer.mutex.Unlock()
	framer.logger = logger
}

// Write appends chunk and emits every document that is now complete.
// It never fails.
func (framer *Framer) Write(chunk []byte) (int, error) {
	framer.mutex.Lock()
	startingDocument := len(framer.accumulated) == 0 && len(bytes.TrimSpace(chunk)) > 0
	framer.accumulated = append(framer.accumulated, chunk...)
	documents := framer.drainLocked()
	framer.mutex.Unlock()

	if startingDocument && framer.onLoading != nil {
		framer.onLoading()
	}
	if framer.onDocument != nil {
		for _, document := range documents {
			framer.onDocument(document)
		}
	}
	return len(chunk), nil
}

// Pending returns the number of buffered bytes not yet part of a
// complete document.
func (framer *Framer) Pending() int {
	framer.mutex.Lock()
	defer framer.mutex.Unlock()
	return len(framer.accumulated)
}

// Reset discards any buffered partial document.
func (framer *Framer) Reset() {
	framer.mutex.Lock()
	defer framer.mutex.Unlock()
	framer.accumulated = nil
}

// drainLocked decodes complete documents from the front of the
// accumulator. A whitespace-only accumulator counts as empty.
func (framer *Framer) drainLocked() []Document {
	var documents []Document
	for {
		trimmed := bytes.TrimLeft(framer.accumulated, " \t\r\n")
		if len(trimmed) == 0 {
			framer.accumulated = framer.accumulated[:0]
			return documents
		}

		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		var node *sourcemap.Node
		err := decoder.Decode(&node)
		var typeError *json.UnmarshalTypeError
		if errors.As(err, &typeError) {
			// The value is syntactically complete, so the decoder
			// consumed all of it; only its shape is wrong.
			consumed := decoder.InputOffset()
			framer.logger.Warn("dropping malformed sourcemap document",
				"bytes", consumed,
				"field", typeError.Field,
				"error", err,
			)
			framer.accumulated = append([]byte(nil), trimmed[consumed:]...)
			continue
		}
		if err != nil {
			framer.accumulated = trimmed
			return documents
		}

		consumed := trimmed[:decoder.InputOffset()]
		if node != nil {
			documents = append(documents, Document{Node: node, Digest: sourcemap.Digest(consumed)})
		}
		framer.accumulated = append([]byte(nil), trimmed[len(consumed):]...)
	}
}
