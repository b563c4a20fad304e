package roster

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the sheet name used by the downloadable roster template.
const TemplateSheet = "DanhSachHocSinh"

// Column layout of an imported roster, after the header row:
// A=STT, B=name, C=class, D=school, E=phone, F=sub-group, G=note.
const (
	colName = iota + 1
	colClass
	colSchool
	colPhone
	colSubGroup
	colNote
)

var templateHeader = []interface{}{"STT", "Họ và Tên", "Lớp", "Trường", "Số điện thoại", "Nhóm", "Ghi chú"}

// ReadExcel reads roster rows from the first sheet of an xlsx stream, skipping the
// header row. Filtering happens later in Replace.
func ReadExcel(file io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		log.Printf("Error opening Excel reader: %v", err)
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		log.Printf("Error getting rows from sheet '%s': %v", sheetName, err)
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	out := make([]Row, 0, len(rows))
	for i, cells := range rows {
		if i == 0 {
			continue // header
		}
		cell := func(idx int) string {
			if idx < len(cells) {
				return cells[idx]
			}
			return ""
		}
		out = append(out, Row{
			Name:        cell(colName),
			Class:       cell(colClass),
			School:      cell(colSchool),
			PhoneNumber: cell(colPhone),
			SubGroup:    cell(colSubGroup),
			Note:        cell(colNote),
		})
	}
	log.Printf("Read %d roster rows from sheet '%s'", len(out), sheetName)
	return out, nil
}

// WriteTemplate writes an xlsx roster template with the expected header and one example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Error closing excel file: %v", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		return fmt.Errorf("failed to name template sheet: %w", err)
	}
	if err := f.SetSheetRow(TemplateSheet, "A1", &templateHeader); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	example := []interface{}{1, "Nguyễn Văn A", "9A1", "THCS Chu Văn An", "0912345678", "", ""}
	if err := f.SetSheetRow(TemplateSheet, "A2", &example); err != nil {
		return fmt.Errorf("failed to write template row: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
