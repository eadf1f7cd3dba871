package manager_test

import (
	"errors"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/manager"
)

func TestOpenApplyRelease(t *testing.T) {
	dm := manager.NewDocumentManager()
	uri := "file:///w/a.d2"
	dm.Open(uri, "a -> b\n", 1)

	got, err := dm.Apply(uri, 2, []any{
		protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 5},
				End:   protocol.Position{Line: 0, Character: 6},
			},
			Text: "c",
		},
		protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 1, Character: 0},
				End:   protocol.Position{Line: 1, Character: 0},
			},
			Text: "c: {shape: circle}",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if want := "a -> c\nc: {shape: circle}"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if v, _ := dm.Version(uri); v != 2 {
		t.Errorf("version = %d, want 2", v)
	}

	if _, err := dm.Apply(uri, 3, []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}}); err != nil {
		t.Fatal(err)
	}
	if text, _ := dm.Get(uri); text != "x" {
		t.Errorf("after full sync = %q", text)
	}

	dm.Release(uri)
	if _, err := dm.Get(uri); !errors.Is(err, manager.ErrNotOpen) {
		t.Errorf("err = %v, want ErrNotOpen", err)
	}
}

func TestUnknownDocument(t *testing.T) {
	dm := manager.NewDocumentManager()
	if _, err := dm.Apply("file:///nope.d2", 1, nil); !errors.Is(err, manager.ErrNotOpen) {
		t.Errorf("err = %v, want ErrNotOpen", err)
	}
}

func TestURIs(t *testing.T) {
	dm := manager.NewDocumentManager()
	dm.Open("file:///b.d2", "", 1)
	dm.Open("file:///a.d2", "", 1)

	uris := dm.URIs()
	if len(uris) != 2 || uris[0] != "file:///a.d2" {
		t.Errorf("URIs = %v", uris)
	}
	dm.CloseAll()
	if len(dm.URIs()) != 0 {
		t.Error("CloseAll left documents behind")
	}
}
