package providers

import (
	"reflect"
	"testing"

	"llmarena/config"
	"llmarena/internal/core"
)

func testDescriptors() []core.ModelDescriptor {
	return []core.ModelDescriptor{
		{ID: "llm-2", Provider: core.ProviderSimulated, SpeedClass: core.SpeedMedium},
		{ID: "llm-1", Provider: core.ProviderSimulated, SpeedClass: core.SpeedFast},
		{ID: "gpt-4.1", Provider: "azure-openai", SpeedClass: core.SpeedMedium},
	}
}

func TestModelRegistry(t *testing.T) {
	r, err := NewModelRegistry(testDescriptors())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("Lookup", func(t *testing.T) {
		m, ok := r.Lookup("llm-1")
		if !ok || m.SpeedClass != core.SpeedFast {
			t.Errorf("Lookup(llm-1) = %+v, %v", m, ok)
		}
		if _, ok := r.Lookup("llm-9"); ok {
			t.Error("Lookup(llm-9) should miss")
		}
	})

	t.Run("LookupIsStable", func(t *testing.T) {
		a, _ := r.Lookup("gpt-4.1")
		b, _ := r.Lookup("gpt-4.1")
		if a != b {
			t.Errorf("lookup not stable: %+v vs %+v", a, b)
		}
	})

	t.Run("OrderPreserved", func(t *testing.T) {
		want := []string{"llm-2", "llm-1", "gpt-4.1"}
		if got := r.IDs(); !reflect.DeepEqual(got, want) {
			t.Errorf("IDs() = %v, want %v", got, want)
		}
		if n := r.ModelCount(); n != 3 {
			t.Errorf("ModelCount() = %d", n)
		}
	})

	t.Run("ListIsACopy", func(t *testing.T) {
		list := r.List()
		list[0].ID = "mutated"
		ids := r.IDs()
		ids[1] = "mutated"

		if _, ok := r.Lookup("llm-2"); !ok {
			t.Error("registry mutated through List()")
		}
		if r.IDs()[1] != "llm-1" {
			t.Error("registry mutated through IDs()")
		}
	})
}

func TestNewModelRegistry_Rejects(t *testing.T) {
	if _, err := NewModelRegistry([]core.ModelDescriptor{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, err := NewModelRegistry([]core.ModelDescriptor{{ID: ""}}); err == nil {
		t.Error("expected empty id error")
	}
}

func TestDescriptorsFromConfig(t *testing.T) {
	got := DescriptorsFromConfig(config.DefaultModels())
	if len(got) != 7 {
		t.Fatalf("expected 7 descriptors, got %d", len(got))
	}

	first := got[0]
	if first.ID != "llm-1" || first.DisplayName != "GPT-3.5 Turbo" || first.SpeedClass != core.SpeedFast {
		t.Errorf("unexpected first descriptor %+v", first)
	}
	if first.ResponseLength != (core.LengthRange{Min: 30, Max: 60}) {
		t.Errorf("ResponseLength = %+v", first.ResponseLength)
	}

	nano := got[5]
	if nano.ID != "gpt-5-nano" || !nano.IsReasoning || nano.Provider != "azure-openai" {
		t.Errorf("unexpected reasoning descriptor %+v", nano)
	}
}

func TestRouter(t *testing.T) {
	registry, _ := NewModelRegistry(testDescriptors())
	sim := &fakeBackend{answer: "sim"}
	azure := &fakeBackend{answer: "azure"}

	t.Run("MissingBackend", func(t *testing.T) {
		_, err := NewRouter(registry, map[string]core.Backend{core.ProviderSimulated: sim})
		if err == nil {
			t.Fatal("expected error for model without backend")
		}
	})

	t.Run("NilRegistry", func(t *testing.T) {
		if _, err := NewRouter(nil, nil); err == nil {
			t.Fatal("expected error for nil registry")
		}
	})

	router, err := NewRouter(registry, map[string]core.Backend{
		core.ProviderSimulated: sim,
		"azure-openai":         azure,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var _ core.BackendResolver = router

	m, _ := router.Lookup("gpt-4.1")
	b, err := router.BackendFor(m)
	if err != nil || b != azure {
		t.Errorf("BackendFor(gpt-4.1) = %v, %v", b, err)
	}

	_, err = router.BackendFor(core.ModelDescriptor{ID: "x", Provider: "nope"})
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestServedModels(t *testing.T) {
	served, dropped := servedModels(testDescriptors(), map[string]core.Backend{
		core.ProviderSimulated: &fakeBackend{},
	})
	if len(served) != 2 || len(dropped) != 1 || dropped[0].ID != "gpt-4.1" {
		t.Errorf("served=%v dropped=%v", served, dropped)
	}
}
