package directory

import (
	"context"
	"errors"
	"testing"
)

type fakeParamStore struct {
	Store
	params []SystemParameter
	err    error
}

func (f *fakeParamStore) ListParameters(ctx context.Context) ([]SystemParameter, error) {
	return f.params, f.err
}

func TestLoadSettings(t *testing.T) {
	store := &fakeParamStore{params: []SystemParameter{
		{Key: "company_name", Value: "Mwolo Energy"},
		{Key: "ticket_footer", Value: "Merci de votre visite"},
	}}

	settings, err := LoadSettings(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := settings.Get("company_name", ""); got != "Mwolo Energy" {
		t.Fatalf("expected company_name, got %q", got)
	}
	if got := settings.Get("missing", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestLoadSettingsPropagatesStoreError(t *testing.T) {
	store := &fakeParamStore{err: errors.New("db down")}
	if _, err := LoadSettings(context.Background(), store); err == nil {
		t.Fatal("expected error")
	}
}

func TestReloadReplacesSnapshot(t *testing.T) {
	store := &fakeParamStore{params: []SystemParameter{
		{Key: "company_name", Value: "Mwolo Energy"},
		{Key: "stale", Value: "old"},
	}}
	settings, err := LoadSettings(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	store.params = []SystemParameter{{Key: "company_name", Value: "Mwolo Energy SA"}}
	if err := settings.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := settings.Get("company_name", ""); got != "Mwolo Energy SA" {
		t.Fatalf("expected updated value, got %q", got)
	}
	if got := settings.Get("stale", "gone"); got != "gone" {
		t.Fatal("removed key must not survive a reload")
	}
}

func TestReloadKeepsOldSnapshotOnError(t *testing.T) {
	store := &fakeParamStore{params: []SystemParameter{{Key: "company_name", Value: "Mwolo Energy"}}}
	settings, err := LoadSettings(context.Background(), store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	store.err = errors.New("db down")
	if err := settings.Reload(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := settings.Get("company_name", ""); got != "Mwolo Energy" {
		t.Fatalf("expected old snapshot to survive, got %q", got)
	}
}
