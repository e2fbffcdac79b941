// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rojo

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

type framerRecorder struct {
	loading   int
	documents []Document
}

func newRecordingFramer() (*Framer, *framerRecorder) {
	recorder := &framerRecorder{}
	framer := NewFramer(
		func() { recorder.loading++ },
		func(document Document) { recorder.documents = append(recorder.documents, document) },
	)
	return framer, recorder
}

const framerDocument = `{"name":"game","className":"DataModel","children":[{"name":"A","className":"Folder"}]}`

func TestFramerReassemblesChunks(t *testing.T) {
	framer, recorder := newRecordingFramer()

	for index := 0; index < len(framerDocument); index++ {
		if _, err := framer.Write([]byte{framerDocument[index]}); err != nil {
			t.Fatalf("Write: %v", err)
		}
		if index < len(framerDocument)-1 && len(recorder.documents) != 0 {
			t.Fatalf("document emitted after %d of %d bytes", index+1, len(framerDocument))
		}
	}

	if len(recorder.documents) != 1 {
		t.Fatalf("documents = %d, want 1", len(recorder.documents))
	}
	document := recorder.documents[0]
	if document.Node.Name != "game" || len(document.Node.Children) != 1 {
		t.Errorf("node = %+v", document.Node)
	}
	if document.Digest != sourcemap.Digest([]byte(framerDocument)) {
		t.Error("digest does not cover exactly the document bytes")
	}
	if recorder.loading != 1 {
		t.Errorf("loading fired %d times, want 1", recorder.loading)
	}
	if framer.Pending() != 0 {
		t.Errorf("Pending = %d after a complete document", framer.Pending())
	}
}

func TestFramerSplitsCoalescedDocuments(t *testing.T) {
	framer, recorder := newRecordingFramer()

	second := strings.Replace(framerDocument, `"A"`, `"B"`, 1)
	framer.Write([]byte(framerDocument + "\n" + second + "\n" + `{"name":"par`))

	if len(recorder.documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(recorder.documents))
	}
	if recorder.documents[1].Node.Children[0].Name != "B" {
		t.Error("second document decoded out of order")
	}
	if framer.Pending() == 0 {
		t.Error("trailing partial document was dropped")
	}

	framer.Write([]byte(`tial","className":"Folder"}`))
	if len(recorder.documents) != 3 || recorder.documents[2].Node.Name != "partial" {
		t.Fatalf("partial document not completed: %d documents", len(recorder.documents))
	}
	if recorder.loading != 1 {
		t.Errorf("loading fired %d times, want 1 (accumulator never emptied between writes)", recorder.loading)
	}
}

func TestFramerLoadingFiresPerDocumentStart(t *testing.T) {
	framer, recorder := newRecordingFramer()

	framer.Write([]byte(framerDocument))
	framer.Write([]byte(framerDocument[:10]))
	framer.Write([]byte(framerDocument[10:]))

	if len(recorder.documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(recorder.documents))
	}
	if recorder.loading != 2 {
		t.Errorf("loading fired %d times, want 2", recorder.loading)
	}
}

func TestFramerWhitespaceIsEmpty(t *testing.T) {
	framer, recorder := newRecordingFramer()

	framer.Write([]byte("\n  \r\n"))
	if framer.Pending() != 0 {
		t.Errorf("Pending = %d for whitespace", framer.Pending())
	}
	if recorder.loading != 0 {
		t.Error("whitespace fired loading")
	}
	if len(recorder.documents) != 0 {
		t.Error("whitespace produced a document")
	}
}

func TestFramerKeepsMalformedInput(t *testing.T) {
	framer, recorder := newRecordingFramer()

	framer.Write([]byte(`{"name": oops`))
	framer.Write([]byte(`}`))

	if len(recorder.documents) != 0 {
		t.Fatal("malformed input produced a document")
	}
	if framer.Pending() == 0 {
		t.Error("malformed input was discarded")
	}

	framer.Reset()
	framer.Write([]byte(framerDocument))
	if len(recorder.documents) != 1 {
		t.Error("framer did not recover after Reset")
	}
}

func TestFramerIsAWriter(t *testing.T) {
	framer, recorder := newRecordingFramer()
	var writer io.Writer = framer

	if _, err := io.Copy(writer, strings.NewReader(framerDocument+framerDocument)); err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	if len(recorder.documents) != 2 {
		t.Errorf("documents = %d, want 2", len(recorder.documents))
	}
}

func TestFramerNilCallbacks(t *testing.T) {
	framer := NewFramer(nil, nil)
	if _, err := framer.Write([]byte(framerDocument)); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestFramerDropsMistypedDocument(t *testing.T) {
	framer, recorder := newRecordingFramer()
	framer.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	mistyped := `{"name":"game","className":"DataModel","filePaths":"a.lua"}`
	if _, err := framer.Write([]byte(mistyped + "\n" + framerDocument + "\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(recorder.documents) != 1 {
		t.Fatalf("documents = %d, want 1 after a mistyped document", len(recorder.documents))
	}
	if got := recorder.documents[0].Node.Children[0].Name; got != "A" {
		t.Errorf("emitted document child = %q, want A", got)
	}
	if framer.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", framer.Pending())
	}

	// A mistyped document on its own must not block the next one.
	if _, err := framer.Write([]byte(mistyped)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := framer.Write([]byte(framerDocument)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(recorder.documents) != 2 {
		t.Errorf("documents = %d, want 2", len(recorder.documents))
	}
}
