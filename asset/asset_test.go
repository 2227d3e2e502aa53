// Copyright (c) 2025 BVK Chaitanya

package asset

import (
	"encoding/json"
	"testing"
)

func TestEqual(t *testing.T) {
	usd := Credit("USD", "GISSUERX")
	if !usd.Equal(Credit("USD", "GISSUERX")) {
		t.Fatalf("wanted equal assets")
	}
	if usd.Equal(Credit("USD", "GISSUERY")) {
		t.Fatalf("wanted different issuers to be unequal")
	}
	if usd.Equal(Native) || Native.Equal(usd) {
		t.Fatalf("wanted native and credit to be unequal")
	}
	if !Native.Equal(Asset{}) {
		t.Fatalf("wanted zero value to be native")
	}
	if Credit("USD", "X").Kind() != KindCredit4 || Credit("USDCOIN", "X").Kind() != KindCredit12 {
		t.Fatalf("unexpected credit asset kinds")
	}
}

func TestParse(t *testing.T) {
	if a, err := Parse("native"); err != nil || !a.IsNative() {
		t.Fatalf("wanted native, got %v, %v", a, err)
	}
	a, err := Parse("USD:GISSUERX")
	if err != nil {
		t.Fatal(err)
	}
	if a.Code != "USD" || a.Issuer != "GISSUERX" {
		t.Fatalf("wanted USD:GISSUERX, got %v", a)
	}
	for _, bad := range []string{"USD", ":GISSUER", "US$:GISSUER", "VERYLONGASSETCODE:X", "USD:"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("wanted error for %q", bad)
		}
	}
}

func TestJSON(t *testing.T) {
	type pair struct {
		Selling Asset
		Buying  Asset
	}
	in := pair{Selling: Native, Buying: Credit("USD", "GISSUERX")}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"Selling":"native","Buying":"USD:GISSUERX"}`; string(data) != want {
		t.Fatalf("wanted %s, got %s", want, data)
	}
	var out pair
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("wanted %v, got %v", in, out)
	}
}
