package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRow_NameOnly(t *testing.T) {
	rec := DecodeRow([]string{"Acme LLC"})
	require.NotNil(t, rec)

	assert.Equal(t, "Acme LLC", rec.BusinessName)
	assert.Equal(t, "N/A", rec.RegistrationID)
	assert.Equal(t, "N/A", rec.Status)
	assert.Equal(t, "N/A", rec.FilingDate)
	assert.Equal(t, "N/A", rec.AgentDetails)
	assert.Empty(t, rec.AgentName)
	assert.Empty(t, rec.AgentAddress)
	assert.Empty(t, rec.AgentEmail)
}

func TestDecodeRow_FullRow(t *testing.T) {
	rec := DecodeRow([]string{"Acme LLC", "ID1", "Active", "2024-01-01", "John", "123 St", "j@x.com"})
	require.NotNil(t, rec)

	assert.Equal(t, "Acme LLC", rec.BusinessName)
	assert.Equal(t, "ID1", rec.RegistrationID)
	assert.Equal(t, "Active", rec.Status)
	assert.Equal(t, "2024-01-01", rec.FilingDate)
	assert.Equal(t, "John | 123 St | j@x.com", rec.AgentDetails)
	assert.Equal(t, "John", rec.AgentName)
	assert.Equal(t, "123 St", rec.AgentAddress)
	assert.Equal(t, "j@x.com", rec.AgentEmail)
}

func TestDecodeRow_PartialRow(t *testing.T) {
	rec := DecodeRow([]string{"Beta Corp", "ID2", "Dissolved"})
	require.NotNil(t, rec)

	assert.Equal(t, "Dissolved", rec.Status)
	assert.Equal(t, "N/A", rec.FilingDate)
	assert.Equal(t, "N/A", rec.AgentDetails)
}

func TestDecodeRow_FiveCells_JoinsAgentDetails(t *testing.T) {
	rec := DecodeRow([]string{"Gamma Inc", "ID3", "Active", "2023-05-10", "Jane Smith"})
	require.NotNil(t, rec)

	assert.Equal(t, "Jane Smith", rec.AgentDetails)
	// Refined agent fields need the seven-column layout.
	assert.Empty(t, rec.AgentName)
}

func TestDecodeRow_Empty(t *testing.T) {
	assert.Nil(t, DecodeRow(nil))
	assert.Nil(t, DecodeRow([]string{}))
	assert.Nil(t, DecodeRow([]string{"   "}))
}
