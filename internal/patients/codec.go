package patients

import (
	"encoding/json"
	"fmt"
)

// documentCodec turns a Patient into the sealed blob durable stores persist.
type documentCodec struct {
	sealer *Sealer
}

func (c documentCodec) encode(p *Patient) ([]byte, error) {
	plain, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("patients: marshal document: %w", err)
	}
	return c.sealer.Seal(plain, p.MedicalCardID)
}

func (c documentCodec) decode(data []byte, medicalCardID string, version int64) (*Patient, error) {
	plain, err := c.sealer.Open(data, medicalCardID)
	if err != nil {
		return nil, fmt.Errorf("patients: open %s: %w", medicalCardID, err)
	}
	var p Patient
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("patients: decode document: %w", err)
	}
	p.MedicalCardID = medicalCardID
	p.Version = version
	return &p, nil
}
