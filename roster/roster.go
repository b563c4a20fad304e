package roster

import (
	"errors"
	"regexp"
	"strings"

	"tuition-server-go/models"
)

var (
	ErrInvalidRow = errors.New("invalid student row")

	digitRun = regexp.MustCompile(`\d+`)
)

// Row is one incoming roster line, from a spreadsheet or the manual add form.
type Row struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	School      string `json:"school"`
	PhoneNumber string `json:"phoneNumber"`
	Note        string `json:"note"`
	SubGroup    string `json:"subGroup"`
}

func (r Row) normalize() Row {
	r.Name = strings.TrimSpace(r.Name)
	r.Class = strings.TrimSpace(r.Class)
	r.School = strings.TrimSpace(r.School)
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	r.Note = strings.TrimSpace(r.Note)
	r.SubGroup = strings.TrimSpace(r.SubGroup)
	return r
}

// ExtractGrade maps a free-text class label to its grade bucket using the first run
// of digits: "9A1" is Lop9, "11-Chuyên" is Lop11. Labels without digits, or whose
// digits do not name one of the four buckets, are rejected.
func ExtractGrade(label string) (string, bool) {
	d := digitRun.FindString(label)
	if d == "" {
		return "", false
	}
	grade := "Lop" + d
	if !models.IsValidGrade(grade) {
		return "", false
	}
	return grade, true
}

func newStudent(r Row, stt int) models.Student {
	return models.Student{
		Stt:         models.Ordinal(stt),
		Name:        r.Name,
		Class:       r.Class,
		School:      r.School,
		PhoneNumber: r.PhoneNumber,
		Note:        r.Note,
		SubGroup:    r.SubGroup,
	}
}

// Replace rebuilds all four buckets from rows. Prior students and their attendance
// are discarded. Rows without a name, carrying the garbage sentinel in name or phone,
// or without a resolvable grade are skipped. It returns the new roster tagged by grade.
func Replace(data *models.AppData, rows []Row) []models.ImportedStudent {
	data.Sheets = models.EmptySheets()
	flat := make([]models.ImportedStudent, 0, len(rows))
	for _, raw := range rows {
		r := raw.normalize()
		if r.Name == "" || models.IsGarbage(r.Name, r.PhoneNumber) {
			continue
		}
		grade, ok := ExtractGrade(r.Class)
		if !ok {
			continue
		}
		sheet := data.Sheets[grade]
		st := newStudent(r, len(sheet.Students)+1)
		sheet.Students = append(sheet.Students, st)
		data.Sheets[grade] = sheet
		flat = append(flat, models.ImportedStudent{Student: st, GradeKey: grade})
	}
	return flat
}

// Validate checks a manually entered row and returns its grade bucket.
func Validate(raw Row) (Row, string, error) {
	r := raw.normalize()
	var flds []models.FieldError
	if r.Name == "" {
		flds = append(flds, models.FieldError{Field: "name", Error: "name is required"})
	} else if models.IsGarbage(r.Name, r.PhoneNumber) {
		flds = append(flds, models.FieldError{Field: "name", Error: "test rows are not accepted"})
	}
	grade, ok := "", false
	if r.Class == "" {
		flds = append(flds, models.FieldError{Field: "class", Error: "class is required"})
	} else if grade, ok = ExtractGrade(r.Class); !ok {
		flds = append(flds, models.FieldError{Field: "class", Error: "class must belong to grade 9, 10, 11 or 12 (e.g. 9A1)"})
	}
	if len(flds) > 0 {
		return r, "", models.NewValidationError(ErrInvalidRow, flds...)
	}
	return r, grade, nil
}

// Add appends one student to the bucket of its grade, creating the bucket if needed.
func Add(data *models.AppData, raw Row) (models.Student, error) {
	r, grade, err := Validate(raw)
	if err != nil {
		return models.Student{}, err
	}
	if data.Sheets == nil {
		data.Sheets = make(map[string]models.ClassSheet)
	}
	sheet, ok := data.Sheets[grade]
	if !ok {
		sheet = models.ClassSheet{ClassName: grade, Students: []models.Student{}}
	}
	st := newStudent(r, len(sheet.Students)+1)
	sheet.Students = append(sheet.Students, st)
	data.Sheets[grade] = sheet
	return st, nil
}

// Flatten returns every student of the document tagged with its grade, in grade order.
func Flatten(data *models.AppData) []models.ImportedStudent {
	var flat []models.ImportedStudent
	for _, grade := range models.ValidGrades {
		for _, st := range data.Sheets[grade].Students {
			flat = append(flat, models.ImportedStudent{Student: st, GradeKey: grade})
		}
	}
	return flat
}
