package models

import (
	"bytes"
	"fmt"
	"strconv"
)

// AttendanceSlots is the fixed number of sessions recorded per student for a term.
const AttendanceSlots = 10

// Slot is one attendance session. The zero value is SlotEmpty.
type Slot int8

const (
	SlotEmpty   Slot = iota // not yet recorded, JSON null
	SlotAbsent              // JSON 0
	SlotPresent             // JSON 1
)

// Attendance is the fixed-length session record of a student.
type Attendance [AttendanceSlots]Slot

// SlotFromPresence encodes a presence flag as a recorded slot.
func SlotFromPresence(present bool) Slot {
	if present {
		return SlotPresent
	}
	return SlotAbsent
}

func (s Slot) String() string {
	switch s {
	case SlotPresent:
		return "present"
	case SlotAbsent:
		return "absent"
	default:
		return "empty"
	}
}

// MarshalJSON writes null, 0 or 1, the cell values the remote sheet stores.
func (s Slot) MarshalJSON() ([]byte, error) {
	switch s {
	case SlotPresent:
		return []byte("1"), nil
	case SlotAbsent:
		return []byte("0"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null or "" as empty, 1 as present and any other number as absent.
func (s *Slot) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) || bytes.Equal(b, []byte(`""`)) {
		*s = SlotEmpty
		return nil
	}
	raw := string(b)
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid attendance value %s", b)
	}
	if v == 1 {
		*s = SlotPresent
	} else {
		*s = SlotAbsent
	}
	return nil
}

// Count returns how many slots hold the given value.
func (a Attendance) Count(v Slot) int {
	n := 0
	for _, s := range a {
		if s == v {
			n++
		}
	}
	return n
}
