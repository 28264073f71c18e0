package basket

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"livingcost/internal/core"
)

func TestDefault(t *testing.T) {
	b, err := Default()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a := b.Adult
	total := a.HousingOneBedroom + a.Utilities + a.Groceries + a.DiningOutBase + a.TransportBase + a.Healthcare + a.Misc
	if total != 2950 {
		t.Fatalf("expected single adult total 2950, got %v", total)
	}
	if b.Child.ChildcarePerChild <= 0 {
		t.Fatalf("expected a childcare add-on")
	}
}

func TestProviderLoadsFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "basket.json")
	doc := `{"monthly_usd_single_adult":{"housing_1br":1000,"utilities":100},"child_monthly":{"childcare_per_child":500}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p := NewProvider(path)
	b, err := p.Basket()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Adult.HousingOneBedroom != 1000 || b.Child.ChildcarePerChild != 500 {
		t.Fatalf("unexpected basket %+v", b)
	}

	// Later edits are not observed.
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	again, _ := p.Basket()
	if again != b {
		t.Fatalf("expected cached basket, got %+v", again)
	}
}

func TestProviderDefaultsToEmbedded(t *testing.T) {
	b, err := NewProvider("").Basket()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := Default()
	if b != want {
		t.Fatalf("expected embedded basket")
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); !errors.Is(err, core.ErrInvalidBasket) {
		t.Fatalf("expected ErrInvalidBasket, got %v", err)
	}
	if _, err := Decode([]byte(`{"monthly_usd_single_adult":{"misc":-5}}`)); !errors.Is(err, core.ErrInvalidBasket) {
		t.Fatalf("expected ErrInvalidBasket, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
