package types

import (
	"testing"
)

func TestAddressValueRequiresRecipientFields(t *testing.T) {
	base := Address{
		Name:    "Rahim Uddin",
		Phone:   "01711111111",
		Street:  "House 7, Road 2, Dhanmondi",
		City:    "Dhaka",
		Country: "BD",
	}

	if _, err := base.Value(); err != nil {
		t.Fatalf("valid address rejected: %v", err)
	}

	cases := map[string]Address{
		"missing name":   {Phone: base.Phone, Street: base.Street, City: base.City},
		"missing phone":  {Name: base.Name, Street: base.Street, City: base.City},
		"missing street": {Name: base.Name, Phone: base.Phone, City: base.City},
	}
	for name, addr := range cases {
		if _, err := addr.Value(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestAddressRoundTrip(t *testing.T) {
	in := Address{
		Name:    "Rahim Uddin",
		Phone:   "01711111111",
		Street:  "House 7, Road 2, Dhanmondi",
		City:    "Dhaka",
		Zip:     "1209",
		Country: "BD",
	}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() error: %v", err)
	}

	var out Address
	if err := out.Scan(raw); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v want %+v", out, in)
	}
}

func TestAddressLineSkipsEmptyParts(t *testing.T) {
	addr := Address{Street: "House 7", City: "Dhaka", Country: "BD"}
	if got, want := addr.Line(), "House 7, Dhaka, BD"; got != want {
		t.Fatalf("Line() = %q, want %q", got, want)
	}
}
