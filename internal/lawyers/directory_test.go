package lawyers

import "testing"

func TestDefaultDirectory(t *testing.T) {
	d := Default()
	if d.Len() != 3 {
		t.Fatalf("Len = %d, want 3", d.Len())
	}
	l, ok := d.ByID("ricardo")
	if !ok {
		t.Fatal("ByID(ricardo) not found")
	}
	if l.Phone != "5511959840099" {
		t.Errorf("Phone = %q", l.Phone)
	}
}

func TestNewDirectorySkipsBadEntries(t *testing.T) {
	d := NewDirectory([]Lawyer{
		{ID: "a", Name: "A", Phone: "+55 (51) 9569-0381"},
		{ID: "b", Name: "No Phone"},
		{ID: "a", Name: "Duplicate", Phone: "5511111111111"},
		{Name: "Phone As ID", Phone: "5511959840099"},
	})
	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	a, _ := d.ByID("a")
	if a.Phone != "555195690381" {
		t.Errorf("phone not normalized: %q", a.Phone)
	}
	if a.Name != "A" {
		t.Errorf("duplicate id should keep first entry, got %q", a.Name)
	}
	if _, ok := d.ByID("5511959840099"); !ok {
		t.Error("missing id should default to phone digits")
	}
}

func TestFromJSON(t *testing.T) {
	d, err := FromJSON(`[{"id":"x","name":"Dr. X","phone":"5511959840099","area":"Direito Penal"}]`)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	l, _ := d.ByID("x")
	if l.Area != "Direito Penal" {
		t.Errorf("Area = %q", l.Area)
	}

	if _, err := FromJSON(""); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := FromJSON("{not json"); err == nil {
		t.Error("malformed input should fail")
	}
	if _, err := FromJSON(`[{"name":"no phone"}]`); err == nil {
		t.Error("roster without usable entries should fail")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	d := Default()
	all := d.All()
	all[0].Name = "mutated"
	if fresh := d.All(); fresh[0].Name == "mutated" {
		t.Error("All should return a copy")
	}
}
