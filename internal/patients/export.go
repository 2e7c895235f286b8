package patients

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	patientSheetHeader     = []string{"Medical Card ID", "Name", "History", "Visits", "Appointments", "Registered"}
	visitSheetHeader       = []string{"Medical Card ID", "Visit ID", "Date", "Chief Complaint", "Urgency", "Red Flags", "Assigned Doctor"}
	appointmentSheetHeader = []string{"Medical Card ID", "Patient", "Appointment ID", "Doctor", "Date", "Time", "Status", "Requested At"}
)

// ExportWorkbook writes an xlsx workbook with one sheet each for patients,
// visits and appointments.
func ExportWorkbook(w io.Writer, all []*Patient) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Patients"); err != nil {
		return fmt.Errorf("patients: export: %w", err)
	}
	if _, err := f.NewSheet("Visits"); err != nil {
		return fmt.Errorf("patients: export: %w", err)
	}
	if _, err := f.NewSheet("Appointments"); err != nil {
		return fmt.Errorf("patients: export: %w", err)
	}

	patientRows := [][]any{toRow(patientSheetHeader)}
	visitRows := [][]any{toRow(visitSheetHeader)}
	for _, p := range all {
		patientRows = append(patientRows, []any{
			p.MedicalCardID, p.Name, p.HistorySummary, len(p.Visits), len(p.Appointments),
			p.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
		for _, v := range p.Visits {
			visitRows = append(visitRows, []any{
				p.MedicalCardID, v.ID, v.Date, v.Report.ChiefComplaint, string(v.Report.UrgencyLevel),
				strings.Join(v.Report.RedFlags, "; "), v.Report.AssignedDoctorID,
			})
		}
	}
	views := ListAppointments(all, "")
	apptRows := [][]any{toRow(appointmentSheetHeader)}
	for _, a := range views {
		apptRows = append(apptRows, []any{
			a.MedicalCardID, a.PatientName, a.ID, a.DoctorName, a.Date, a.Time, string(a.Status),
			a.RequestedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	for sheet, rows := range map[string][][]any{
		"Patients":     patientRows,
		"Visits":       visitRows,
		"Appointments": apptRows,
	} {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				return fmt.Errorf("patients: export: %w", err)
			}
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return fmt.Errorf("patients: export %s row %d: %w", sheet, i+1, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("patients: write workbook: %w", err)
	}
	return nil
}

func toRow(header []string) []any {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	return row
}
