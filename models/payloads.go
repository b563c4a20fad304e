package models

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Remote actions carried in the "action" field of every push.
const (
	ActionUpdateSettings   = "updateSettings"
	ActionImportStudents   = "importStudents"
	ActionUpdateAttendance = "updateAttendance"
)

// SettingsPayload is the updateSettings push body.
type SettingsPayload struct {
	Action   string      `json:"action"`
	Password string      `json:"password"`
	Fees     []FeeConfig `json:"fees"`
}

// ImportedStudent is a roster row tagged with the grade sheet it belongs to.
type ImportedStudent struct {
	Student
	GradeKey string `json:"gradeKey"`
}

// ImportPayload is the importStudents push body. The remote side clears and rewrites
// every grade sheet present in Data.
type ImportPayload struct {
	Action string            `json:"action"`
	Data   []ImportedStudent `json:"data"`
}

// AttendanceSync is one student's result of an attendance save.
//
// The remote script reads Note as the name of a per-sub-group sheet to route the
// record to, so it carries Student.SubGroup rather than the free-text note.
type AttendanceSync struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
	IsPresent   bool   `json:"isPresent"`
	TotalAmount int64  `json:"totalAmount"`
	Note        string `json:"note"`
}

// AttendancePayload is the updateAttendance push body.
type AttendancePayload struct {
	Action    string           `json:"action"`
	ClassName string           `json:"className"`
	Students  []AttendanceSync `json:"students"`
}

// Snapshot is the body returned by a GET against the remote endpoint.
type Snapshot struct {
	Sheets   map[string]ClassSheet `json:"sheets"`
	Password *LooseString          `json:"password,omitempty"`
}

// LooseString decodes a JSON string or number as text. Sheet cells holding digits
// come back as numbers.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		v, err := strconv.Unquote(string(b))
		if err != nil {
			return fmt.Errorf("invalid string %s", b)
		}
		*s = LooseString(v)
		return nil
	}
	*s = LooseString(b)
	return nil
}

// Ordinal is a display ordinal decoded leniently: sheet rows typed in by hand may
// carry a blank or non-numeric STT cell, which decodes as 0.
type Ordinal int

func (o *Ordinal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	raw := string(b)
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unq)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*o = 0
		return nil
	}
	*o = Ordinal(v)
	return nil
}
