package dataset

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Column identifies one dashboard field, in table display order.
type Column int

const (
	ColVIN Column = iota
	ColCounty
	ColCity
	ColState
	ColPostalCode
	ColModelYear
	ColMake
	ColModel
	ColElectricVehicleType
	ColEligibility
	ColElectricRange
	ColMSRP
	ColLegislativeDistrict
	ColDOLVehicleID
	ColVehicleLocation
	ColElectricUtility
	ColCensusTract

	numColumns
)

// ErrUnknownColumn is returned when a name does not match any column.
var ErrUnknownColumn = errors.New("unknown column")

type columnInfo struct {
	name    string
	label   string
	numeric bool
	aliases []string
}

var columnTable = [numColumns]columnInfo{
	ColVIN:                 {name: "VIN", label: "VIN", aliases: []string{"VIN (1-10)"}},
	ColCounty:              {name: "County", label: "County"},
	ColCity:                {name: "City", label: "City"},
	ColState:               {name: "State", label: "State"},
	ColPostalCode:          {name: "PostalCode", label: "Postal Code", aliases: []string{"Zip", "Zip Code"}},
	ColModelYear:           {name: "ModelYear", label: "Year", numeric: true, aliases: []string{"Model Year"}},
	ColMake:                {name: "Make", label: "Make"},
	ColModel:               {name: "Model", label: "Model"},
	ColElectricVehicleType: {name: "ElectricVehicleType", label: "Type", aliases: []string{"Electric Vehicle Type"}},
	ColEligibility: {name: "Eligibility", label: "Eligibility", aliases: []string{
		"CleanAlternativeFuelVehicle",
		"Clean Alternative Fuel Vehicle (CAFV) Eligibility",
		"CAFV Eligibility",
	}},
	ColElectricRange:       {name: "ElectricRange", label: "Range", numeric: true, aliases: []string{"Electric Range"}},
	ColMSRP:                {name: "MSRP", label: "MSRP", numeric: true, aliases: []string{"BaseMSRP", "Base MSRP"}},
	ColLegislativeDistrict: {name: "LegislativeDistrict", label: "District", numeric: true, aliases: []string{"Legislative District"}},
	ColDOLVehicleID:        {name: "DOLVehicleID", label: "DOL ID", numeric: true, aliases: []string{"DOL Vehicle ID"}},
	ColVehicleLocation:     {name: "VehicleLocation", label: "Location", aliases: []string{"Vehicle Location"}},
	ColElectricUtility:     {name: "ElectricUtility", label: "Utility", aliases: []string{"Electric Utility"}},
	ColCensusTract:         {name: "CensusTract", label: "Census", numeric: true, aliases: []string{"2020 Census Tract", "Census Tract"}},
}

// Columns lists every column in table order.
var Columns = func() []Column {
	out := make([]Column, numColumns)
	for i := range out {
		out[i] = Column(i)
	}
	return out
}()

var headerIndex = func() map[string]Column {
	m := make(map[string]Column)
	for i, ci := range columnTable {
		m[normalizeHeader(ci.name)] = Column(i)
		for _, a := range ci.aliases {
			m[normalizeHeader(a)] = Column(i)
		}
	}
	return m
}()

func (c Column) valid() bool { return c >= 0 && c < numColumns }

// Name is the record field name, e.g. "PostalCode".
func (c Column) Name() string {
	if !c.valid() {
		return fmt.Sprintf("Column(%d)", int(c))
	}
	return columnTable[c].name
}

// Label is the table header text, e.g. "Postal Code".
func (c Column) Label() string {
	if !c.valid() {
		return c.Name()
	}
	return columnTable[c].label
}

// Numeric reports whether the column holds numbers. Text columns are never
// coerced, so postal codes and VINs stay opaque strings.
func (c Column) Numeric() bool { return c.valid() && columnTable[c].numeric }

func (c Column) String() string { return c.Name() }

// MarshalText encodes the column by field name.
func (c Column) MarshalText() ([]byte, error) { return []byte(c.Name()), nil }

// UnmarshalText accepts anything ParseColumn accepts.
func (c *Column) UnmarshalText(b []byte) error {
	col, err := ParseColumn(string(b))
	if err != nil {
		return err
	}
	*c = col
	return nil
}

// ParseColumn resolves a field name, label or known header alias, ignoring case.
func ParseColumn(name string) (Column, error) {
	if col, ok := ResolveHeader(name); ok {
		return col, nil
	}
	for i, ci := range columnTable {
		if strings.EqualFold(ci.label, strings.TrimSpace(name)) {
			return Column(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

// ResolveHeader maps a CSV header cell to a column. Exact field names match
// first; otherwise the header is compared to the known aliases with case and
// punctuation ignored.
func ResolveHeader(h string) (Column, bool) {
	for i, ci := range columnTable {
		if ci.name == h {
			return Column(i), true
		}
	}
	col, ok := headerIndex[normalizeHeader(h)]
	return col, ok
}

func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
