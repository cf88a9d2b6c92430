package store

import (
	"testing"

	"github.com/dukerupert/ekklesia/internal/model"
)

func setupMemberTestDB(t *testing.T) *MemberStore {
	t.Helper()
	return NewMemberStore(openTestDB(t))
}

func TestMemberCreate(t *testing.T) {
	ms := setupMemberTestDB(t)

	m, err := ms.Create(&model.Member{
		Name:           "Maria Souza",
		CPF:            "123.456.789-00",
		Mobile:         "(11) 99999-0000",
		BirthDate:      "1980-04-12",
		SpiritBaptized: true,
		Congregation:   "Central",
	})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if m.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if m.Status != model.MemberActive {
		t.Errorf("status = %q, want %q", m.Status, model.MemberActive)
	}
	if !m.SpiritBaptized {
		t.Error("expected spirit_baptized to round-trip")
	}
	if m.BirthDate != "1980-04-12" {
		t.Errorf("birth_date = %q", m.BirthDate)
	}
}

func TestMemberGetByIDNotFound(t *testing.T) {
	ms := setupMemberTestDB(t)

	m, err := ms.GetByID(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m != nil {
		t.Errorf("expected nil, got %+v", m)
	}
}

func TestMemberListFilters(t *testing.T) {
	ms := setupMemberTestDB(t)

	ms.Create(&model.Member{Name: "Carlos Lima", Congregation: "Central", Mobile: "1111"})
	ms.Create(&model.Member{Name: "ana Pereira", Congregation: "Vila Nova", CPF: "999"})
	ms.Create(&model.Member{Name: "Bruno 100%", Congregation: "central", Status: model.MemberInactive})

	all, err := ms.List(model.MemberFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	if all[0].Name != "ana Pereira" {
		t.Errorf("first = %q, want case-insensitive name order", all[0].Name)
	}

	central, _ := ms.List(model.MemberFilter{Congregation: "CENTRAL"})
	if len(central) != 2 {
		t.Errorf("central = %d, want 2", len(central))
	}

	active, _ := ms.List(model.MemberFilter{Status: model.MemberActive})
	if len(active) != 2 {
		t.Errorf("active = %d, want 2", len(active))
	}

	byCPF, _ := ms.List(model.MemberFilter{Search: "999"})
	if len(byCPF) != 1 || byCPF[0].Name != "ana Pereira" {
		t.Errorf("search by cpf = %+v", byCPF)
	}

	percent, _ := ms.List(model.MemberFilter{Search: "%"})
	if len(percent) != 1 || percent[0].Name != "Bruno 100%" {
		t.Errorf("literal %% search = %+v", percent)
	}
}

func TestMemberUpdateAndDelete(t *testing.T) {
	ms := setupMemberTestDB(t)

	m, _ := ms.Create(&model.Member{Name: "Maria"})
	m.Name = "Maria Souza"
	m.Status = model.MemberInactive
	m.Notes = "moved away"

	updated, err := ms.Update(m.ID, m)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Maria Souza" || updated.Status != model.MemberInactive || updated.Notes != "moved away" {
		t.Errorf("updated = %+v", updated)
	}

	if err := ms.SetPhotoKey(m.ID, "photos/abc.jpg"); err != nil {
		t.Fatalf("set photo key: %v", err)
	}
	got, _ := ms.GetByID(m.ID)
	if got.PhotoKey != "photos/abc.jpg" {
		t.Errorf("photo_key = %q", got.PhotoKey)
	}

	if err := ms.Delete(m.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, _ := ms.GetByID(m.ID)
	if gone != nil {
		t.Error("expected member to be deleted")
	}
}

func TestMemberCongregationsAndCount(t *testing.T) {
	ms := setupMemberTestDB(t)

	ms.Create(&model.Member{Name: "A", Congregation: "Vila Nova"})
	ms.Create(&model.Member{Name: "B", Congregation: "Central"})
	ms.Create(&model.Member{Name: "C", Congregation: "Central", Status: model.MemberInactive})
	ms.Create(&model.Member{Name: "D"})

	tags, err := ms.Congregations()
	if err != nil {
		t.Fatalf("congregations: %v", err)
	}
	if len(tags) != 2 || tags[0] != "Central" || tags[1] != "Vila Nova" {
		t.Errorf("tags = %v", tags)
	}

	counts, err := ms.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[model.MemberActive] != 3 || counts[model.MemberInactive] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
