package menu

import (
	"testing"

	"startpage/reorder"
	"startpage/shortcut"
)

type lookup map[string]shortcut.Shortcut

func (l lookup) Shortcut(id string) (shortcut.Shortcut, bool) {
	sc, ok := l[id]
	return sc, ok
}

type refresher struct{ ids []string }

func (r *refresher) Invalidate(sc shortcut.Shortcut) { r.ids = append(r.ids, sc.ID) }

func TestOpenAndClickOutside(t *testing.T) {
	m := New()
	m.Open(reorder.Point{X: 100, Y: 100}, shortcut.Shortcut{ID: "1"})
	if v := m.View(); !v.Visible || v.X != 100 || v.TargetID != "1" {
		t.Fatalf("unexpected view %+v", v)
	}
	if m.Click(reorder.Point{X: 150, Y: 150}) {
		t.Fatal("click inside must not dismiss")
	}
	if !m.Click(reorder.Point{X: 10, Y: 10}) || m.Visible() {
		t.Fatal("click outside must dismiss")
	}
}

func TestSelectUsesCurrentShortcut(t *testing.T) {
	m := New()
	m.Open(reorder.Point{}, shortcut.Shortcut{ID: "1", Title: "Old", URL: "https://old"})
	src := lookup{"1": {ID: "1", Title: "New", URL: "https://new"}}

	eff, err := m.Select(ActionEdit, src, &refresher{})
	if err != nil {
		t.Fatal(err)
	}
	if eff.Kind != EffectEdit || eff.Form == nil || eff.Form.Title != "New" || eff.Form.URL != "https://new" {
		t.Fatalf("unexpected effect %+v", eff)
	}
	if m.Visible() {
		t.Fatal("select must dismiss")
	}
}

func TestSelectOpen(t *testing.T) {
	m := New()
	m.Open(reorder.Point{}, shortcut.Shortcut{ID: "1"})
	eff, err := m.Select(ActionOpen, lookup{"1": {ID: "1", URL: "https://a"}}, &refresher{})
	if err != nil || eff.Kind != EffectNavigate || eff.URL != "https://a" || !eff.NewContext {
		t.Fatalf("unexpected %+v %v", eff, err)
	}
}

func TestSelectRefresh(t *testing.T) {
	m := New()
	r := &refresher{}
	m.Open(reorder.Point{}, shortcut.Shortcut{ID: "2"})
	if _, err := m.Select(ActionRefresh, lookup{"2": {ID: "2"}}, r); err != nil {
		t.Fatal(err)
	}
	if len(r.ids) != 1 || r.ids[0] != "2" {
		t.Fatalf("expected invalidate of 2, got %v", r.ids)
	}
}

func TestSelectErrors(t *testing.T) {
	m := New()
	if _, err := m.Select(ActionOpen, lookup{}, &refresher{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	m.Open(reorder.Point{}, shortcut.Shortcut{ID: "gone"})
	if _, err := m.Select(ActionOpen, lookup{}, &refresher{}); err != ErrGone {
		t.Fatalf("expected ErrGone, got %v", err)
	}
	if m.Visible() {
		t.Fatal("menu should be dismissed even on error")
	}

	m.Open(reorder.Point{}, shortcut.Shortcut{ID: "1"})
	if _, err := m.Select("delete", lookup{"1": {ID: "1"}}, &refresher{}); err != ErrUnknownAction {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
