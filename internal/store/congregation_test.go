package store

import "testing"

func TestCongregationCreateAssignsSortOrder(t *testing.T) {
	cs := NewCongregationStore(openTestDB(t))

	a, err := cs.Create("Central", "Pr. João", "Rua A, 1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := cs.Create("Vila Nova", "Pr. Paulo", "")

	if a.SortOrder != 0 || b.SortOrder != 1 {
		t.Errorf("sort orders = %d, %d, want 0, 1", a.SortOrder, b.SortOrder)
	}
}

func TestCongregationReorder(t *testing.T) {
	cs := NewCongregationStore(openTestDB(t))

	a, _ := cs.Create("Central", "", "")
	b, _ := cs.Create("Vila Nova", "", "")
	c, _ := cs.Create("Jardim", "", "")

	if err := cs.UpdateSortOrder([]int64{c.ID, a.ID, b.ID}); err != nil {
		t.Fatalf("update sort order: %v", err)
	}
	list, err := cs.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list[0].Name != "Jardim" || list[1].Name != "Central" || list[2].Name != "Vila Nova" {
		t.Errorf("order = %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestCongregationNameExists(t *testing.T) {
	cs := NewCongregationStore(openTestDB(t))

	a, _ := cs.Create("Central", "", "")

	exists, err := cs.NameExists("central", 0)
	if err != nil {
		t.Fatalf("name exists: %v", err)
	}
	if !exists {
		t.Error("expected case-insensitive match")
	}

	exists, _ = cs.NameExists("Central", a.ID)
	if exists {
		t.Error("expected own row to be excluded")
	}
}

func TestCongregationUpdateAndDelete(t *testing.T) {
	cs := NewCongregationStore(openTestDB(t))

	a, _ := cs.Create("Central", "", "")
	updated, err := cs.Update(a.ID, "Sede", "Pr. João", "Rua B, 2")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Sede" || updated.PastorName != "Pr. João" {
		t.Errorf("updated = %+v", updated)
	}
	if err := cs.Delete(a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, _ := cs.GetByID(a.ID)
	if gone != nil {
		t.Error("expected congregation to be deleted")
	}
}
