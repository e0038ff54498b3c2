package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/tostemail20-glitch/MTCapplys/datastructs"
)

func TestMemorySectionRoundTrip(t *testing.T) {
	m := NewMemory()

	got, err := m.LoadSection("missing")
	if err != nil {
		t.Fatalf("LoadSection failed: %v", err)
	}
	if got != nil {
		t.Fatal("missing section should load as nil")
	}

	sec := datastructs.NewSection("helper")
	sec.Questions = []string{"Why?"}
	if err := m.SaveSection(sec); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	got, err = m.LoadSection("helper")
	if err != nil {
		t.Fatalf("LoadSection failed: %v", err)
	}
	if got == nil || got.ID != "helper" || len(got.Questions) != 1 {
		t.Fatalf("loaded section = %+v", got)
	}

	// the loaded document is a copy, mutating it must not leak back
	got.Questions = append(got.Questions, "And?")
	again, _ := m.LoadSection("helper")
	if len(again.Questions) != 1 {
		t.Error("mutation of a loaded section leaked into the store")
	}
}

func TestListSectionIDsSorted(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := m.SaveSection(datastructs.NewSection(id)); err != nil {
			t.Fatalf("SaveSection failed: %v", err)
		}
	}
	ids, err := m.ListSectionIDs()
	if err != nil {
		t.Fatalf("ListSectionIDs failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestUpdateSection(t *testing.T) {
	m := NewMemory()
	if err := m.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}

	sec, err := m.UpdateSection("helper", func(sec *datastructs.Section) error {
		sec.Open = false
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateSection failed: %v", err)
	}
	if sec.Open {
		t.Error("returned section does not reflect the update")
	}
	got, _ := m.LoadSection("helper")
	if got.Open {
		t.Error("update was not persisted")
	}

	if _, err := m.UpdateSection("missing", func(*datastructs.Section) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing section error = %v, want ErrNotFound", err)
	}
}

func TestUpdateSectionAbortsOnError(t *testing.T) {
	m := NewMemory()
	if err := m.SaveSection(datastructs.NewSection("helper")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	boom := errors.New("boom")
	_, err := m.UpdateSection("helper", func(sec *datastructs.Section) error {
		sec.Open = false
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("UpdateSection error = %v, want boom", err)
	}
	got, _ := m.LoadSection("helper")
	if !got.Open {
		t.Error("aborted update was persisted")
	}
}

func TestDeleteSectionCascades(t *testing.T) {
	m := NewMemory()
	if err := m.SaveSection(datastructs.NewSection("a")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	if err := m.SaveSection(datastructs.NewSection("b")); err != nil {
		t.Fatalf("SaveSection failed: %v", err)
	}
	_, err := m.UpdateRegistry(func(reg *datastructs.Registry) error {
		reg.Panels = append(reg.Panels, datastructs.Panel{
			Kind:      datastructs.PanelApply,
			ChannelID: "c1",
			MessageID: "m1",
			Sections:  []string{"a", "b"},
		})
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateRegistry failed: %v", err)
	}

	if err := m.DeleteSection("a"); err != nil {
		t.Fatalf("DeleteSection failed: %v", err)
	}
	got, _ := m.LoadSection("a")
	if got != nil {
		t.Error("deleted section still loads")
	}
	reg, err := m.LoadRegistry()
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if len(reg.Panels) != 1 || !reflect.DeepEqual(reg.Panels[0].Sections, []string{"b"}) {
		t.Errorf("registry after cascade = %+v", reg.Panels)
	}
}

func TestDecodeRegistryCurrent(t *testing.T) {
	data := []byte(`{"panels":[{"kind":"apply","channel_id":"c","message_id":"m","sections":["a"]}],"main_message":"hi {applys}"}`)
	reg, err := decodeRegistry(data)
	if err != nil {
		t.Fatalf("decodeRegistry failed: %v", err)
	}
	if len(reg.Panels) != 1 || reg.Panels[0].Kind != datastructs.PanelApply || reg.MainMessage != "hi {applys}" {
		t.Errorf("decoded registry = %+v", reg)
	}
}

func TestDecodeRegistryLegacy(t *testing.T) {
	data := []byte(`{
		"apply":[{"channelId":"c1","messageId":"m1","meta":{"enabled":["helper","builder"]}}],
		"ahelp":[{"channelId":"c2","messageId":"m2"}],
		"mainMessage":"open: {applys}"
	}`)
	reg, err := decodeRegistry(data)
	if err != nil {
		t.Fatalf("decodeRegistry failed: %v", err)
	}
	if reg.MainMessage != "open: {applys}" {
		t.Errorf("main message = %q", reg.MainMessage)
	}
	if len(reg.Panels) != 2 {
		t.Fatalf("panels = %+v", reg.Panels)
	}
	if reg.Panels[0].Kind != datastructs.PanelApply || reg.Panels[0].MessageID != "m1" ||
		!reflect.DeepEqual(reg.Panels[0].Sections, []string{"helper", "builder"}) {
		t.Errorf("migrated apply panel = %+v", reg.Panels[0])
	}
	if reg.Panels[1].Kind != datastructs.PanelAdmin || reg.Panels[1].ChannelID != "c2" {
		t.Errorf("migrated admin panel = %+v", reg.Panels[1])
	}
}

func TestDecodeRegistryEmpty(t *testing.T) {
	reg, err := decodeRegistry([]byte(`{}`))
	if err != nil {
		t.Fatalf("decodeRegistry failed: %v", err)
	}
	if len(reg.Panels) != 0 || reg.MainMessage != "" {
		t.Errorf("decoded empty registry = %+v", reg)
	}
}
