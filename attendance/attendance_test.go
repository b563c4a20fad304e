package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition-server-go/models"
)

func fullRecord(v models.Slot) models.Attendance {
	var a models.Attendance
	for i := range a {
		a[i] = v
	}
	return a
}

func TestPlace(t *testing.T) {
	var a models.Attendance
	for i := 0; i < models.AttendanceSlots; i++ {
		p := Place(&a, models.SlotPresent)
		assert.Equal(t, Placement{Index: i}, p)
	}
	p := Place(&a, models.SlotAbsent)
	assert.Equal(t, Placement{Index: 9, Full: true}, p)
	assert.Equal(t, models.SlotAbsent, a[9])
	assert.Equal(t, 9, a.Count(models.SlotPresent))

	// once full, later sessions keep landing on the last slot
	p = Place(&a, models.SlotPresent)
	assert.True(t, p.Full)
	assert.Equal(t, 10, a.Count(models.SlotPresent))
	assert.Len(t, a, models.AttendanceSlots)
}

func TestPlace_FillsGapsFirst(t *testing.T) {
	a := models.Attendance{models.SlotPresent, models.SlotEmpty, models.SlotAbsent}
	p := Place(&a, models.SlotAbsent)
	assert.Equal(t, 1, p.Index)
	assert.False(t, p.Full)
	assert.Equal(t, models.SlotAbsent, a[1])
}

func TestTotal(t *testing.T) {
	a := models.Attendance{models.SlotPresent, models.SlotAbsent, models.SlotPresent}
	assert.Equal(t, int64(120000), Total(a, 60000))
	assert.Equal(t, int64(0), Total(models.Attendance{}, 60000))
}

func TestRecord_FullRecordOverwritesLastSlot(t *testing.T) {
	st := models.Student{Name: "Nguyễn Văn A", PhoneNumber: "0911111111", Attendance: fullRecord(models.SlotPresent)}
	sheet := &models.ClassSheet{ClassName: models.GradeLop9, Students: []models.Student{st}}

	out := Record(sheet, map[string]bool{st.Key(): false}, 60000, DefaultPolicy)

	require.Len(t, out, 1)
	got := sheet.Students[0]
	assert.Equal(t, models.SlotAbsent, got.Attendance[9])
	assert.Equal(t, int64(540000), got.TotalAmount)
	assert.Equal(t, models.AttendanceSync{
		Name:        "Nguyễn Văn A",
		PhoneNumber: "0911111111",
		IsPresent:   false,
		TotalAmount: 540000,
	}, out[0])
}

func TestRecord_DefaultPresence(t *testing.T) {
	mk := func() *models.ClassSheet {
		return &models.ClassSheet{ClassName: models.GradeLop10, Students: []models.Student{
			{Name: "A", PhoneNumber: "1"},
			{Name: "B", PhoneNumber: "2"},
		}}
	}
	marks := map[string]bool{models.StudentKey("B", "2"): false}

	sheet := mk()
	out := Record(sheet, marks, 50000, DefaultPolicy)
	assert.True(t, out[0].IsPresent)
	assert.False(t, out[1].IsPresent)
	assert.Equal(t, int64(50000), sheet.Students[0].TotalAmount)
	assert.Equal(t, int64(0), sheet.Students[1].TotalAmount)

	sheet = mk()
	out = Record(sheet, marks, 50000, PresencePolicy{DefaultPresent: false})
	assert.False(t, out[0].IsPresent)
	assert.Equal(t, models.SlotAbsent, sheet.Students[0].Attendance[0])
}

func TestRecord_RecomputesWholeRecord(t *testing.T) {
	// a stale total is corrected from the full record, not just the new session
	st := models.Student{
		Name:        "C",
		Attendance:  models.Attendance{models.SlotPresent, models.SlotPresent, models.SlotAbsent},
		TotalAmount: 999,
	}
	sheet := &models.ClassSheet{Students: []models.Student{st}}
	Record(sheet, nil, 70000, DefaultPolicy)
	assert.Equal(t, int64(3*70000), sheet.Students[0].TotalAmount)
	assert.Equal(t, models.SlotPresent, sheet.Students[0].Attendance[3])
}

func TestRecord_RoutesSubGroup(t *testing.T) {
	sheet := &models.ClassSheet{Students: []models.Student{
		{Name: "A", SubGroup: "Lop10.5", Note: "hay nghỉ"},
		{Name: "B", Note: "Lop10.1"},
	}}
	out := Record(sheet, nil, 1, DefaultPolicy)
	assert.Equal(t, "Lop10.5", out[0].Note)
	assert.Equal(t, "Lop10.1", out[1].Note)
}

func TestSummarize(t *testing.T) {
	data := models.NewAppData()
	data.Sheets[models.GradeLop12] = models.ClassSheet{ClassName: models.GradeLop12, Students: []models.Student{
		{Name: "A", Attendance: models.Attendance{models.SlotPresent, models.SlotPresent}},
		{Name: "B", Attendance: models.Attendance{models.SlotPresent, models.SlotAbsent}},
	}}

	st := Summarize(data)
	assert.Equal(t, 2, st.TotalStudents)
	assert.Equal(t, []string{models.GradeLop12}, st.ActiveClasses)
	assert.Equal(t, int64(3*70000), st.EstimatedRevenue)
	require.Len(t, st.Classes, 4)
	assert.Equal(t, 1.5, st.Classes[3].AverageAttendance)
	assert.Equal(t, 0.0, st.Classes[0].AverageAttendance)
}
