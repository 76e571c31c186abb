package dataset

import "strings"

// VehicleRecord is one row of the registration dataset. Text columns hold the
// raw cell; numeric columns hold a coerced Value which may be null or, for a
// malformed cell, text.
type VehicleRecord struct {
	VIN                 string `json:"VIN"`
	County              string `json:"County"`
	City                string `json:"City"`
	State               string `json:"State"`
	PostalCode          string `json:"PostalCode"`
	ModelYear           Value  `json:"ModelYear"`
	Make                string `json:"Make"`
	Model               string `json:"Model"`
	ElectricVehicleType string `json:"ElectricVehicleType"`
	Eligibility         string `json:"Eligibility"`
	ElectricRange       Value  `json:"ElectricRange"`
	MSRP                Value  `json:"MSRP"`
	LegislativeDistrict Value  `json:"LegislativeDistrict"`
	DOLVehicleID        Value  `json:"DOLVehicleID"`
	VehicleLocation     string `json:"VehicleLocation"`
	ElectricUtility     string `json:"ElectricUtility"`
	CensusTract         Value  `json:"CensusTract"`

	// Extra holds cells of unrecognized columns, aligned with RecordSet.ExtraColumns.
	Extra []Value `json:"-"`
}

// VINDisplayLen is how many VIN characters the table shows.
const VINDisplayLen = 10

// Field returns the value stored for column c.
func (r *VehicleRecord) Field(c Column) Value {
	switch c {
	case ColVIN:
		return Text(r.VIN)
	case ColCounty:
		return Text(r.County)
	case ColCity:
		return Text(r.City)
	case ColState:
		return Text(r.State)
	case ColPostalCode:
		return Text(r.PostalCode)
	case ColModelYear:
		return r.ModelYear
	case ColMake:
		return Text(r.Make)
	case ColModel:
		return Text(r.Model)
	case ColElectricVehicleType:
		return Text(r.ElectricVehicleType)
	case ColEligibility:
		return Text(r.Eligibility)
	case ColElectricRange:
		return r.ElectricRange
	case ColMSRP:
		return r.MSRP
	case ColLegislativeDistrict:
		return r.LegislativeDistrict
	case ColDOLVehicleID:
		return r.DOLVehicleID
	case ColVehicleLocation:
		return Text(r.VehicleLocation)
	case ColElectricUtility:
		return Text(r.ElectricUtility)
	case ColCensusTract:
		return r.CensusTract
	}
	return Null
}

// String returns the full string form of column c, used for filtering and sorting.
func (r *VehicleRecord) String(c Column) string { return r.Field(c).String() }

// Display returns the table cell text for column c. The VIN is cut to its
// first ten characters and is otherwise never interpreted.
func (r *VehicleRecord) Display(c Column) string {
	if c == ColVIN {
		if len(r.VIN) > VINDisplayLen {
			return r.VIN[:VINDisplayLen]
		}
		return r.VIN
	}
	return r.String(c)
}

// MakeModel joins make and model the way the postal-code tooltip lists them.
func (r *VehicleRecord) MakeModel() string { return r.Make + " " + r.Model }

func (r *VehicleRecord) set(c Column, raw string) {
	if strings.TrimSpace(raw) == "" {
		raw = ""
	}
	switch c {
	case ColVIN:
		r.VIN = raw
	case ColCounty:
		r.County = raw
	case ColCity:
		r.City = raw
	case ColState:
		r.State = raw
	case ColPostalCode:
		r.PostalCode = raw
	case ColModelYear:
		r.ModelYear = ParseValue(raw)
	case ColMake:
		r.Make = raw
	case ColModel:
		r.Model = raw
	case ColElectricVehicleType:
		r.ElectricVehicleType = raw
	case ColEligibility:
		r.Eligibility = raw
	case ColElectricRange:
		r.ElectricRange = ParseValue(raw)
	case ColMSRP:
		r.MSRP = ParseValue(raw)
	case ColLegislativeDistrict:
		r.LegislativeDistrict = ParseValue(raw)
	case ColDOLVehicleID:
		r.DOLVehicleID = ParseValue(raw)
	case ColVehicleLocation:
		r.VehicleLocation = raw
	case ColElectricUtility:
		r.ElectricUtility = raw
	case ColCensusTract:
		r.CensusTract = ParseValue(raw)
	}
}
