package dto

import "strings"

type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindPay
)

// Field is one recognized column of an employee record.
type Field struct {
	Label  string
	Legacy string
	Kind   FieldKind
}

const (
	FieldEmployeeName = "Employee Name"
	FieldHRMSID       = "HRMS ID"
	FieldDesignation  = "DESIGNATION"
	FieldUnit         = "UNIT"
	FieldStation      = "STATION"
	FieldBasicPay     = "BASIC PAY"
)

// Fields is the display order used by listings and exports.
var Fields = []Field{
	{Label: "S.No.", Legacy: "s_no"},
	{Label: "PF No.", Legacy: "pf_number"},
	{Label: FieldHRMSID, Legacy: "hrms_id"},
	{Label: "SENIORITY NO.", Legacy: "seniority_no"},
	{Label: FieldUnit, Legacy: "unit"},
	{Label: FieldEmployeeName, Legacy: "employee_name"},
	{Label: "FATHER'S NAME", Legacy: "father_s_name"},
	{Label: FieldDesignation, Legacy: "designation"},
	{Label: FieldStation, Legacy: "station"},
	{Label: "PAY LEVEL", Legacy: "pay_level"},
	{Label: FieldBasicPay, Legacy: "basic_pay", Kind: KindPay},
	{Label: "DOB", Legacy: "dob", Kind: KindDate},
	{Label: "DOA", Legacy: "doa", Kind: KindDate},
	{Label: "EMPLOYEE NAME IN HINDI", Legacy: "employee_name_in_hindi"},
	{Label: "SF-11 SHORT NAME", Legacy: "sf_11_short_name"},
	{Label: "GENDER", Legacy: "gender"},
	{Label: "CATEGORY", Legacy: "category"},
	{Label: "DESIGNATION IN HINDI", Legacy: "designation_in_hindi"},
	{Label: "POSTING STATUS", Legacy: "posting_status"},
	{Label: "APPOINTMENT TYPE", Legacy: "appointment_type"},
	{Label: "PROMOTION DATE", Legacy: "prmotion_date", Kind: KindDate},
	{Label: "DOR", Legacy: "dor", Kind: KindDate},
	{Label: "MEDICAL CATEGORY", Legacy: "medical_category"},
	{Label: "LAST PME", Legacy: "last_pme", Kind: KindDate},
	{Label: "PME DUE", Legacy: "pme_due", Kind: KindDate},
	{Label: "MEDICAL PLACE", Legacy: "medical_place"},
	{Label: "LAST TRAINING", Legacy: "last_training", Kind: KindDate},
	{Label: "TRAINING DUE", Legacy: "training_due", Kind: KindDate},
	{Label: "SERVICE REMARK", Legacy: "service_remark"},
	{Label: "EMPTYPE", Legacy: "emptype"},
	{Label: "PRAN", Legacy: "pran"},
	{Label: "PENSION ACC NO", Legacy: "pensionaccno"},
	{Label: "RAIL QUARTER NO", Legacy: "rail_quarter_no"},
	{Label: "CUG NUMBER", Legacy: "cug_number"},
	{Label: "E-NUMBER", Legacy: "e_number"},
	{Label: "UNIT NO", Legacy: "unit_no"},
}

var (
	byLabel  = make(map[string]Field, len(Fields))
	byFolded = make(map[string]Field, 2*len(Fields))
)

func init() {
	for _, f := range Fields {
		byLabel[f.Label] = f
		byFolded[strings.ToLower(f.Label)] = f
		byFolded[f.Legacy] = f
	}
}

// Labels returns the recognized labels in display order.
func Labels() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = f.Label
	}
	return out
}

// IsRecognized reports whether name is exactly one of the recognized labels.
func IsRecognized(name string) bool {
	_, ok := byLabel[name]
	return ok
}

// FieldByLabel returns the catalog entry for an exact label.
func FieldByLabel(label string) (Field, bool) {
	f, ok := byLabel[label]
	return f, ok
}

// LookupField resolves a spreadsheet header to a catalog entry. It accepts
// the label in any letter case or the legacy snake_case column name.
func LookupField(name string) (Field, bool) {
	name = strings.TrimSpace(name)
	if f, ok := byLabel[name]; ok {
		return f, true
	}
	f, ok := byFolded[strings.ToLower(name)]
	return f, ok
}
