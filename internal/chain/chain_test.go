package chain

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"schemagate/internal/evolution"
	"schemagate/internal/registry"
	"schemagate/internal/schema"
)

func version(t *testing.T, label, doc string) Version {
	t.Helper()
	n, err := schema.ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSON(%s) error = %v", doc, err)
	}
	return Version{Label: label, Node: n}
}

// history where v1 -> v2 drops field "legacy" and v2 -> v3 only adds an
// optional field. v3 is backward compatible with v2 but not with v1.
func history(t *testing.T) []Version {
	return []Version{
		version(t, "v3.0.0", `{"type":"object","properties":{"id":{"type":"string"},"note":{"type":"string"}}}`),
		version(t, "1.0.0", `{"type":"object","properties":{"id":{"type":"string"},"legacy":{"type":"string"}}}`),
		version(t, "v2.0.0", `{"type":"object","properties":{"id":{"type":"string"}}}`),
	}
}

func TestCheck_NonTransitiveComparesPredecessor(t *testing.T) {
	r, err := Check(context.Background(), history(t), evolution.LevelBackward, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Latest != "v3.0.0" {
		t.Errorf("Latest = %s", r.Latest)
	}
	if len(r.Pairs) != 1 || r.Pairs[0].From != "v2.0.0" || r.Pairs[0].To != "v3.0.0" {
		t.Fatalf("Pairs = %+v", r.Pairs)
	}
	if !r.Compatible {
		t.Error("v2 -> v3 should pass BACKWARD")
	}
}

func TestCheck_TransitiveComparesAllEarlier(t *testing.T) {
	r, err := Check(context.Background(), history(t), evolution.LevelBackwardTransitive, Options{Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Pairs) != 2 {
		t.Fatalf("Pairs = %+v", r.Pairs)
	}
	if r.Pairs[0].From != "1.0.0" || r.Pairs[1].From != "v2.0.0" {
		t.Errorf("pairs not in version order: %s, %s", r.Pairs[0].From, r.Pairs[1].From)
	}
	if r.Compatible {
		t.Error("v1 -> v3 drops a field and must fail BACKWARD_TRANSITIVE")
	}
	failed := r.Failed()
	if len(failed) != 1 || failed[0].From != "1.0.0" {
		t.Errorf("Failed() = %+v", failed)
	}
	if len(failed[0].Violations) == 0 || failed[0].Violations[0].Field != "legacy" {
		t.Errorf("Violations = %+v", failed[0].Violations)
	}
}

func TestCheck_ForwardTransitive(t *testing.T) {
	r, err := Check(context.Background(), history(t), evolution.LevelForwardTransitive, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Compatible {
		t.Errorf("field removals are forward compatible, failed = %+v", r.Failed())
	}
}

func TestCheck_ShortHistories(t *testing.T) {
	empty, err := Check(context.Background(), nil, evolution.LevelFull, Options{})
	if err != nil || !empty.Compatible || len(empty.Pairs) != 0 || empty.Latest != "" {
		t.Errorf("empty = %+v, %v", empty, err)
	}

	single, err := Check(context.Background(), history(t)[:1], evolution.LevelFullTransitive, Options{})
	if err != nil || !single.Compatible || len(single.Pairs) != 0 || single.Latest != "v3.0.0" {
		t.Errorf("single = %+v, %v", single, err)
	}
}

func TestCheckAll(t *testing.T) {
	r, err := CheckAll(context.Background(), history(t), evolution.LevelBackward, Options{Parallelism: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Pairs) != 2 {
		t.Fatalf("Pairs = %+v", r.Pairs)
	}
	if r.Pairs[0].From != "1.0.0" || r.Pairs[0].To != "v2.0.0" || r.Pairs[0].Compatible {
		t.Errorf("first pair = %+v", r.Pairs[0])
	}
	if r.Pairs[1].From != "v2.0.0" || !r.Pairs[1].Compatible {
		t.Errorf("second pair = %+v", r.Pairs[1])
	}
	if r.Compatible {
		t.Error("audit should fail")
	}
}

func TestCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Check(ctx, history(t), evolution.LevelFullTransitive, Options{})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestOrder(t *testing.T) {
	got := Order([]Version{{Label: "v1.10.0"}, {Label: "1.2.0"}, {Label: "v1.2.0-beta"}})
	want := []string{"v1.2.0-beta", "1.2.0", "v1.10.0"}
	for i, v := range got {
		if v.Label != want[i] {
			t.Errorf("Order()[%d] = %s, want %s", i, v.Label, want[i])
		}
	}
}

func TestLoadSubject(t *testing.T) {
	root := t.TempDir()
	write := func(name, content string) {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("v1.json", `{"type":"object","required":["a"],"properties":{"a":{}}}`)
	write("v2.yaml", "type: object\nproperties:\n  a: {}\n")

	m := registry.NewManifest("p", evolution.LevelBackward)
	if _, err := m.AddSubject("s", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddVersion("s", "v2.0.0", "v2.yaml"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddVersion("s", "v1.0.0", "v1.json"); err != nil {
		t.Fatal(err)
	}
	s, _ := m.Subject("s")

	versions, err := LoadSubject(root, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 || versions[0].Label != "v1.0.0" {
		t.Fatalf("versions = %+v", versions)
	}
	if versions[1].Doc == nil || filepath.Base(versions[1].Doc.Source) != "v2.yaml" {
		t.Errorf("Doc not attached: %+v", versions[1].Doc)
	}

	r, err := Check(context.Background(), versions, s.LevelOr(m.Level()), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Compatible {
		t.Error("dropping a required field must fail BACKWARD")
	}

	s.Versions = append(s.Versions, registry.Version{Version: "v3.0.0", Path: "missing.json"})
	if _, err := LoadSubject(root, s); err == nil {
		t.Error("LoadSubject() should fail for a missing file")
	}
}
