package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/streamfee/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"ProviderID", id.NewProviderID, "prov_"},
		{"SubscriberID", id.NewSubscriberID, "subr_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"ProviderID", id.NewProviderID, id.ParseProviderID},
		{"SubscriberID", id.NewSubscriberID, id.ParseSubscriberID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossKindRejection(t *testing.T) {
	if _, err := id.ParseProviderID(id.NewSubscriberID().String()); err == nil {
		t.Error("ParseProviderID accepted a subscriber id")
	}
	if _, err := id.ParseSubscriberID(id.NewProviderID().String()); err == nil {
		t.Error("ParseSubscriberID accepted a provider id")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewProviderID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewSubscriberID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}

	if err := scanned2.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestParseList(t *testing.T) {
	a, b := id.NewProviderID(), id.NewProviderID()

	got, err := id.ParseList(id.Strings([]id.ID{a, b}), id.PrefixProvider)
	if err != nil {
		t.Fatalf("ParseList failed: %v", err)
	}
	if len(got) != 2 || got[0].String() != a.String() || got[1].String() != b.String() {
		t.Errorf("unexpected result %v", id.Strings(got))
	}

	if _, err := id.ParseList([]string{a.String(), id.NewSubscriberID().String()}, id.PrefixProvider); err == nil {
		t.Error("expected error for mixed prefixes")
	}
}

func TestUniqueness(t *testing.T) {
	a := id.NewProviderID()
	b := id.NewProviderID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewProviderID() calls returned the same ID: %q", a.String())
	}
}
