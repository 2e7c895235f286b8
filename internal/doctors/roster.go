package doctors

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRoster is the seed used when no roster file is configured.
func DefaultRoster() []Doctor {
	return []Doctor{
		{ID: "d1", Name: "Dr. Sarah Chen", Specialty: "Cardiology", Experience: "12 years", Status: StatusAvailable},
		{ID: "d2", Name: "Dr. James Wilson", Specialty: "General Practice", Experience: "8 years", Status: StatusAvailable},
		{ID: "d3", Name: "Dr. Emily Carter", Specialty: "Dermatology", Experience: "15 years", Status: StatusAvailable},
		{ID: "d4", Name: "Dr. Michael Ross", Specialty: "Orthopedics", Experience: "20 years", Status: StatusInSurgery},
		{ID: "d5", Name: "Dr. Alan Grant", Specialty: "Psychiatry", Experience: "14 years", Status: StatusAvailable},
		{ID: "d6", Name: "Dr. Lisa Ray", Specialty: "Physiotherapy", Experience: "6 years", Status: StatusOnCall},
		{ID: "d7", Name: "Dr. Raj Patel", Specialty: "Neurology", Experience: "18 years", Status: StatusAvailable},
		{ID: "d8", Name: "Dr. Sofia Vergara", Specialty: "Pediatrics", Experience: "10 years", Status: StatusAvailable},
	}
}

type rosterFile struct {
	Doctors []Doctor `yaml:"doctors"`
}

// LoadRoster reads a YAML roster of the form:
//
//	doctors:
//	  - id: d1
//	    name: Dr. Sarah Chen
//	    specialty: Cardiology
//	    experience: 12 years
//	    status: Available
func LoadRoster(path string) ([]Doctor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("doctors: read roster: %w", err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) ([]Doctor, error) {
	var file rosterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("doctors: parse roster: %w", err)
	}
	if len(file.Doctors) == 0 {
		return nil, fmt.Errorf("%w: roster has no doctors", ErrInvalidDoctor)
	}
	for i, doc := range file.Doctors {
		status, err := ParseStatus(string(doc.Status))
		if err != nil {
			return nil, fmt.Errorf("doctors: roster entry %d: %w", i, err)
		}
		file.Doctors[i].Status = status
	}
	return file.Doctors, nil
}
