package patients

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/carefront-intake/internal/report"
	"github.com/xuri/excelize/v2"
)

func TestExportWorkbook(t *testing.T) {
	p := &Patient{
		MedicalCardID:  "111-111-111",
		Name:           "Ann Lee",
		HistorySummary: NewPatientHistory,
		CreatedAt:      testNow,
		Appointments: []Appointment{
			{ID: "a1", DoctorName: "Dr. Sarah Chen", Date: "2025-03-10", Time: "09:30", Status: AppointmentPending, RequestedAt: testNow},
		},
	}
	AttachVisit(p, NewVisit("v-1", report.ClinicalReport{
		ChiefComplaint: "Chest pain",
		RedFlags:       []string{"Chest pain", "Shortness of breath"},
		UrgencyLevel:   report.UrgencyEmergency,
	}, testNow))

	var buf bytes.Buffer
	require.NoError(t, ExportWorkbook(&buf, []*Patient{p}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Patients", "Visits", "Appointments"}, f.GetSheetList())

	patients, err := f.GetRows("Patients")
	require.NoError(t, err)
	require.Len(t, patients, 2)
	assert.Equal(t, "Ann Lee", patients[1][1])

	visits, err := f.GetRows("Visits")
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "Emergency", visits[1][4])
	assert.Equal(t, "Chest pain; Shortness of breath", visits[1][5])

	appts, err := f.GetRows("Appointments")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "Pending", appts[1][6])
}
