package attendance

import (
	"tuition-server-go/models"
)

// Placement reports where a recorded session landed.
//
// A non-full placement is Recorded(Index). Full means every slot was already
// recorded and the last slot was overwritten; Index is then AttendanceSlots-1.
type Placement struct {
	Index int
	Full  bool
}

// Place writes v into the first empty slot, or overwrites the last slot when the
// record is already full. The record never grows.
func Place(a *models.Attendance, v models.Slot) Placement {
	for i, s := range a {
		if s == models.SlotEmpty {
			a[i] = v
			return Placement{Index: i}
		}
	}
	last := models.AttendanceSlots - 1
	a[last] = v
	return Placement{Index: last, Full: true}
}

// Total is the fee owed: every present slot in the whole record times the fee.
func Total(a models.Attendance, fee int64) int64 {
	return int64(a.Count(models.SlotPresent)) * fee
}

// PresencePolicy decides presence for a student missing from the submitted marks.
type PresencePolicy struct {
	DefaultPresent bool
}

// DefaultPolicy treats unmarked students as present.
var DefaultPolicy = PresencePolicy{DefaultPresent: true}

// Resolve looks up the student's mark, falling back to the policy default.
func (p PresencePolicy) Resolve(presence map[string]bool, s models.Student) bool {
	if v, ok := presence[s.Key()]; ok {
		return v
	}
	return p.DefaultPresent
}

// Record applies one session to every student of the sheet in place and returns
// the per-student sync payload.
func Record(sheet *models.ClassSheet, presence map[string]bool, fee int64, policy PresencePolicy) []models.AttendanceSync {
	out := make([]models.AttendanceSync, 0, len(sheet.Students))
	for i := range sheet.Students {
		st := &sheet.Students[i]
		present := policy.Resolve(presence, *st)
		Place(&st.Attendance, models.SlotFromPresence(present))
		st.TotalAmount = Total(st.Attendance, fee)

		route := st.SubGroup
		if route == "" {
			route = st.Note
		}
		out = append(out, models.AttendanceSync{
			Name:        st.Name,
			PhoneNumber: st.PhoneNumber,
			IsPresent:   present,
			TotalAmount: st.TotalAmount,
			Note:        route,
		})
	}
	return out
}
