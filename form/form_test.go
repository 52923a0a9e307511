package form_test

import (
	"errors"
	"testing"

	"startpage/form"
	"startpage/shortcut"
)

type fakeStore struct {
	added   []shortcut.Input
	updates map[string]shortcut.Patch
	removed []string
}

func (f *fakeStore) AddShortcut(in shortcut.Input) shortcut.Shortcut {
	f.added = append(f.added, in)
	return shortcut.Shortcut{ID: "new", Title: in.Title, URL: in.URL}
}

func (f *fakeStore) UpdateShortcut(id string, p shortcut.Patch) {
	if f.updates == nil {
		f.updates = map[string]shortcut.Patch{}
	}
	f.updates[id] = p
}

func (f *fakeStore) RemoveShortcut(id string) { f.removed = append(f.removed, id) }

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"example.com":         "https://example.com",
		"  example.com  ":     "https://example.com",
		"http://example.com":  "http://example.com",
		"HTTPS://Example.com": "HTTPS://Example.com",
		"ftp://files.example": "https://ftp://files.example",
		"https://a.b/c?d=e#f": "https://a.b/c?d=e#f",
		"httpsexample.com":    "https://httpsexample.com",
	}
	for in, want := range cases {
		if got := form.NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := form.Validate("Go", "go.dev"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	err := form.Validate("   ", "\t")
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !verr.Has(form.MissingTitle) || !verr.Has(form.MissingURL) {
		t.Fatalf("expected both codes, got %+v", verr.Fields)
	}
	if msgs := verr.ByField(); msgs["title"] == "" || msgs["url"] == "" {
		t.Fatalf("expected per-field messages, got %v", msgs)
	}

	if !form.HasCode(form.Validate("a", ""), form.MissingURL) {
		t.Fatal("expected MissingUrl")
	}
	if form.HasCode(form.Validate("a", ""), form.MissingTitle) {
		t.Fatal("title is present")
	}
}

func TestSaveAdds(t *testing.T) {
	f := &fakeStore{}
	res, err := form.Save(f, form.Input{Title: "  Docs ", URL: "pkg.go.dev"}, "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !res.Created || !res.Close {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(f.added) != 1 || f.added[0].Title != "Docs" || f.added[0].URL != "https://pkg.go.dev" {
		t.Fatalf("unexpected add %+v", f.added)
	}
}

func TestSaveUpdates(t *testing.T) {
	f := &fakeStore{}
	res, err := form.Save(f, form.Input{Title: "Hub", URL: "http://github.com"}, "3")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Created || !res.Close || res.Shortcut.ID != "3" {
		t.Fatalf("unexpected result %+v", res)
	}
	p, ok := f.updates["3"]
	if !ok || *p.Title != "Hub" || *p.URL != "http://github.com" || p.CachedIcon != nil {
		t.Fatalf("unexpected patch %+v", p)
	}
	if len(f.added) != 0 {
		t.Fatal("update must not add")
	}
}

func TestSaveInvalidWritesNothing(t *testing.T) {
	f := &fakeStore{}
	res, err := form.Save(f, form.Input{Title: "x", URL: "   "}, "")
	if !form.HasCode(err, form.MissingURL) {
		t.Fatalf("expected MissingUrl, got %v", err)
	}
	if res.Close {
		t.Fatal("surface must stay open on invalid input")
	}
	if len(f.added) != 0 || len(f.updates) != 0 {
		t.Fatal("invalid save must not write")
	}
}

func TestDelete(t *testing.T) {
	f := &fakeStore{}
	form.Delete(f, "2")
	if len(f.removed) != 1 || f.removed[0] != "2" {
		t.Fatalf("unexpected removes %v", f.removed)
	}
}
