package service

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"customer-web/internal/models"
)

// TemplateService generates downloadable XLSX import templates with the
// expected columns, a few sample rows and filling instructions.
type TemplateService struct {
	props PropertyStore
}

func NewTemplateService(props PropertyStore) *TemplateService {
	return &TemplateService{props: props}
}

// GenerateImportTemplate writes the template for one member type.
func (s *TemplateService) GenerateImportTemplate(memberType, outputPath string) error {
	var headers []string
	var sampleData [][]interface{}
	switch memberType {
	case models.MemberTypeContact:
		properties, err := s.props.GetProperties(models.MemberTypeContact)
		if err != nil {
			return fmt.Errorf("load contact properties: %w", err)
		}
		headers = ContactSchema(properties).ColumnNames()
		sampleData = contactSampleRows(len(headers))
	case models.MemberTypeOrganization:
		properties, err := s.props.GetProperties(models.MemberTypeOrganization)
		if err != nil {
			return fmt.Errorf("load organization properties: %w", err)
		}
		headers = OrganizationSchema(properties).ColumnNames()
		sampleData = organizationSampleRows(len(headers))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMemberType, memberType)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := memberType + " Import"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", columnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", columnName(len(headers)-1)), headerStyle)

	// Write sample data
	for rowIdx, rowData := range sampleData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", columnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := columnName(i)
		f.SetColWidth(sheetName, col, col, 22)
	}

	// Add instructions
	instructionsStartRow := len(sampleData) + 4
	instructions := []string{
		"Instructions:",
		"1. Save this sheet as a delimited text file before uploading.",
		"2. Keep the header row unchanged; column order does not matter.",
		fmt.Sprintf("3. Required columns must not be empty on any data row (%s).", requiredSummary(memberType)),
		"4. Mark continuation rows with 'True' in the Additional Line column to add extra addresses.",
		"5. Leave the Id column empty for new records; fill it only to update existing ones.",
	}
	for i, instruction := range instructions {
		cell := fmt.Sprintf("A%d", instructionsStartRow+i)
		f.SetCellValue(sheetName, cell, instruction)
	}

	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F8FF"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", instructionsStartRow), fmt.Sprintf("A%d", instructionsStartRow), instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

func requiredSummary(memberType string) string {
	if memberType == models.MemberTypeContact {
		return "Contact First Name, Contact Last Name, Contact Full Name"
	}
	return "Organization Name"
}

func contactSampleRows(width int) [][]interface{} {
	rows := [][]interface{}{
		{"", "crm-1001", "John", "Doe", "John Doe", "", "Mr.", "Active", "1985-04-12"},
		{"", "crm-1002", "Jane", "Smith", "Jane Smith", "", "Ms.", "Active", "1990-09-30"},
	}
	return padRows(rows, width)
}

func organizationSampleRows(width int) [][]interface{} {
	rows := [][]interface{}{
		{"", "org-2001", "Acme Corporation", "Active", "Manufacturing", "Industrial supplier"},
		{"", "org-2002", "Globex Ltd", "Active", "Retail", ""},
	}
	return padRows(rows, width)
}

func padRows(rows [][]interface{}, width int) [][]interface{} {
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}
	return rows
}

func columnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
