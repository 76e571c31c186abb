package dataset

import (
	"errors"
	"testing"
)

func TestResolveHeaderAliases(t *testing.T) {
	cases := []struct {
		header string
		want   Column
	}{
		{"VIN", ColVIN},
		{"VIN (1-10)", ColVIN},
		{"PostalCode", ColPostalCode},
		{"Postal Code", ColPostalCode},
		{"Model Year", ColModelYear},
		{"Electric Vehicle Type", ColElectricVehicleType},
		{"Clean Alternative Fuel Vehicle (CAFV) Eligibility", ColEligibility},
		{"Base MSRP", ColMSRP},
		{"2020 Census Tract", ColCensusTract},
		{"dol vehicle id", ColDOLVehicleID},
	}
	for _, tc := range cases {
		got, ok := ResolveHeader(tc.header)
		if !ok || got != tc.want {
			t.Fatalf("ResolveHeader(%q) = %v,%v want %v", tc.header, got, ok, tc.want)
		}
	}
	if _, ok := ResolveHeader("Favourite Colour"); ok {
		t.Fatalf("unexpected match for unknown header")
	}
}

func TestParseColumn(t *testing.T) {
	c, err := ParseColumn("range")
	if err != nil || c != ColElectricRange {
		t.Fatalf("ParseColumn(range) = %v, %v", c, err)
	}
	c, err = ParseColumn("postalcode")
	if err != nil || c != ColPostalCode {
		t.Fatalf("ParseColumn(postalcode) = %v, %v", c, err)
	}
	if _, err := ParseColumn("nope"); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestColumnCatalogue(t *testing.T) {
	if len(Columns) != 17 {
		t.Fatalf("expected 17 columns, got %d", len(Columns))
	}
	if ColPostalCode.Numeric() || ColVIN.Numeric() {
		t.Fatalf("postal code and VIN must stay text")
	}
	if !ColElectricRange.Numeric() || !ColModelYear.Numeric() {
		t.Fatalf("range and year must be numeric")
	}
	var c Column
	if err := c.UnmarshalText([]byte("Postal Code")); err != nil || c != ColPostalCode {
		t.Fatalf("UnmarshalText: %v %v", c, err)
	}
}
