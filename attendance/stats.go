package attendance

import (
	"tuition-server-go/models"
)

// ClassStats summarizes one grade bucket.
type ClassStats struct {
	ClassName         string  `json:"class"`
	StudentCount      int     `json:"studentCount"`
	AverageAttendance float64 `json:"averageAttendance"`
	Revenue           int64   `json:"revenue"`
}

// Stats is the dashboard view of the whole document.
type Stats struct {
	TotalStudents    int          `json:"totalStudents"`
	ActiveClasses    []string     `json:"activeClasses"`
	EstimatedRevenue int64        `json:"estimatedRevenue"`
	Classes          []ClassStats `json:"classes"`
}

// Summarize computes dashboard figures. Revenue is counted from present slots and the
// current fee catalog, not from stored totals.
func Summarize(data *models.AppData) Stats {
	st := Stats{ActiveClasses: []string{}, Classes: make([]ClassStats, 0, len(models.ValidGrades))}
	for _, grade := range models.ValidGrades {
		sheet := data.Sheets[grade]
		fee := data.FeeFor(grade)

		cs := ClassStats{ClassName: grade, StudentCount: len(sheet.Students)}
		attended := 0
		for _, s := range sheet.Students {
			n := s.Attendance.Count(models.SlotPresent)
			attended += n
			cs.Revenue += int64(n) * fee
		}
		if cs.StudentCount > 0 {
			cs.AverageAttendance = float64(attended) / float64(cs.StudentCount)
			st.ActiveClasses = append(st.ActiveClasses, grade)
		}
		st.TotalStudents += cs.StudentCount
		st.EstimatedRevenue += cs.Revenue
		st.Classes = append(st.Classes, cs)
	}
	return st
}
