package model

import "strings"

// notAvailable fills positions the source row does not provide.
const notAvailable = "N/A"

// Record is one business entry recovered from the registry result table.
// BusinessName uniquely identifies a record within the output file; it is
// the dedup key used for resume.
type Record struct {
	BusinessName   string `json:"business_name"`
	RegistrationID string `json:"registration_id"`
	Status         string `json:"status"`
	FilingDate     string `json:"filing_date"`
	AgentDetails   string `json:"agent_details"`
	AgentName      string `json:"agent_name,omitempty"`
	AgentAddress   string `json:"agent_address,omitempty"`
	AgentEmail     string `json:"agent_email,omitempty"`
}

// DecodeRow maps the ordered cell text of one result row onto a Record.
// Cells are positional: 0=name, 1=registration ID, 2=status, 3=filing date,
// everything from 4 on is agent information joined with " | ". Positions the
// row does not have default to "N/A". Rows without a business name decode to
// nil and are skipped by the caller, never fatal.
func DecodeRow(cells []string) *Record {
	if len(cells) == 0 || strings.TrimSpace(cells[0]) == "" {
		return nil
	}

	rec := &Record{
		BusinessName:   cells[0],
		RegistrationID: cellAt(cells, 1),
		Status:         cellAt(cells, 2),
		FilingDate:     cellAt(cells, 3),
		AgentDetails:   notAvailable,
	}
	if len(cells) > 4 {
		rec.AgentDetails = strings.Join(cells[4:], " | ")
	}

	// Layouts with dedicated agent columns also get the refined fields.
	// AgentDetails keeps the joined form for consumers that expect it.
	if len(cells) >= 7 {
		rec.AgentName = cells[4]
		rec.AgentAddress = cells[5]
		rec.AgentEmail = cells[6]
	}

	return rec
}

func cellAt(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return notAvailable
}
