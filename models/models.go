package models

import "strings"

// Class grade buckets. Every student lives in exactly one of these.
const (
	GradeLop9  = "Lop9"
	GradeLop10 = "Lop10"
	GradeLop11 = "Lop11"
	GradeLop12 = "Lop12"
)

// ValidGrades lists the grade buckets in display order.
var ValidGrades = []string{GradeLop9, GradeLop10, GradeLop11, GradeLop12}

// GarbageSentinel marks test/junk rows that must never survive a load, import or fetch.
const GarbageSentinel = "68686868"

// DefaultSheetLink is the Apps Script web app used when no endpoint is configured.
const DefaultSheetLink = "https://script.google.com/macros/s/AKfycbxU1gFzMDIzYbWxAh70658gBw6czUAhyhud7VqbZWMD1OYlZfqDR5M7W7wfxz831e3gXA/exec"

// DefaultFees is the per-session fee catalog seeded into a fresh document.
var DefaultFees = []FeeConfig{
	{ClassName: GradeLop9, Fee: 60000},
	{ClassName: GradeLop10, Fee: 60000},
	{ClassName: GradeLop11, Fee: 60000},
	{ClassName: GradeLop12, Fee: 70000},
}

// Student is a single enrolled student. (Name, PhoneNumber) identifies it.
type Student struct {
	Stt         Ordinal    `json:"stt"`                // Display ordinal within the bucket
	Name        string     `json:"name"`               // Full name
	Class       string     `json:"class"`              // Free-text class label, e.g. "9A1"
	School      string     `json:"school"`             // School name
	PhoneNumber string     `json:"phoneNumber"`        // Contact phone
	Note        string     `json:"note,omitempty"`     // Free-text note
	SubGroup    string     `json:"subGroup,omitempty"` // Attendance sub-group, routed to its own remote sheet
	Attendance  Attendance `json:"attendance"`         // Fixed ten-session record
	TotalAmount int64      `json:"totalAmount"`        // Fee owed, recomputed from Attendance
}

// Key returns the composite identity used to match students across local and remote data.
func (s Student) Key() string {
	return StudentKey(s.Name, s.PhoneNumber)
}

// StudentKey builds the composite (name, phone) key.
func StudentKey(name, phone string) string {
	return phone + "|" + name
}

// ClassSheet is one grade bucket.
type ClassSheet struct {
	ClassName string    `json:"className"`
	Students  []Student `json:"students"`
}

// FeeConfig is the fee per attended session for one grade.
type FeeConfig struct {
	ClassName string `json:"className"`
	Fee       int64  `json:"fee"`
}

// AppData is the whole persisted document.
type AppData struct {
	Sheets     map[string]ClassSheet `json:"sheets"`
	Fees       []FeeConfig           `json:"fees"`
	PasswordC2 string                `json:"passwordC2"`
	SheetLink  string                `json:"sheetLink"`
}

// NewAppData returns the default document: four empty buckets, default fees, no password.
func NewAppData() *AppData {
	data := &AppData{
		Sheets:    EmptySheets(),
		Fees:      append([]FeeConfig(nil), DefaultFees...),
		SheetLink: DefaultSheetLink,
	}
	return data
}

// EmptySheets returns the four grade buckets with no students.
func EmptySheets() map[string]ClassSheet {
	sheets := make(map[string]ClassSheet, len(ValidGrades))
	for _, grade := range ValidGrades {
		sheets[grade] = ClassSheet{ClassName: grade, Students: []Student{}}
	}
	return sheets
}

// IsValidGrade reports whether name is one of the four grade buckets.
func IsValidGrade(name string) bool {
	for _, g := range ValidGrades {
		if g == name {
			return true
		}
	}
	return false
}

// IsGarbage reports whether a row carries the garbage sentinel in its name or phone.
func IsGarbage(name, phone string) bool {
	return strings.Contains(name, GarbageSentinel) || strings.Contains(phone, GarbageSentinel)
}

// FeeFor returns the configured fee for a grade, 0 when the catalog has no entry.
func (d *AppData) FeeFor(className string) int64 {
	for _, f := range d.Fees {
		if f.ClassName == className {
			return f.Fee
		}
	}
	return 0
}

// EnsureFees appends the default fee for every grade missing from the catalog.
func (d *AppData) EnsureFees() {
	for _, def := range DefaultFees {
		found := false
		for _, f := range d.Fees {
			if f.ClassName == def.ClassName {
				found = true
				break
			}
		}
		if !found {
			d.Fees = append(d.Fees, def)
		}
	}
}

// SanitizeSheets returns exactly the four grade buckets, keeping only students with a
// non-empty name and no garbage sentinel. Missing buckets are created empty.
func SanitizeSheets(sheets map[string]ClassSheet) map[string]ClassSheet {
	clean := make(map[string]ClassSheet, len(ValidGrades))
	for _, grade := range ValidGrades {
		sheet, ok := sheets[grade]
		if !ok {
			clean[grade] = ClassSheet{ClassName: grade, Students: []Student{}}
			continue
		}
		students := make([]Student, 0, len(sheet.Students))
		for _, s := range sheet.Students {
			if s.Name == "" || IsGarbage(s.Name, s.PhoneNumber) {
				continue
			}
			students = append(students, s)
		}
		if sheet.ClassName == "" {
			sheet.ClassName = grade
		}
		sheet.Students = students
		clean[grade] = sheet
	}
	return clean
}

// Clone returns a deep copy of the document.
func (d *AppData) Clone() *AppData {
	out := &AppData{
		Sheets:     make(map[string]ClassSheet, len(d.Sheets)),
		Fees:       append([]FeeConfig(nil), d.Fees...),
		PasswordC2: d.PasswordC2,
		SheetLink:  d.SheetLink,
	}
	for k, sheet := range d.Sheets {
		out.Sheets[k] = ClassSheet{
			ClassName: sheet.ClassName,
			Students:  append([]Student{}, sheet.Students...),
		}
	}
	return out
}
