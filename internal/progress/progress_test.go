package progress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/registry-extract/internal/model"
)

func testRecord(name string) *model.Record {
	return &model.Record{
		BusinessName:   name,
		RegistrationID: "N/A",
		Status:         "N/A",
		FilingDate:     "N/A",
		AgentDetails:   "N/A",
	}
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(data) == 0 {
		return 0
	}
	return strings.Count(string(data), "\n")
}

func TestOpen_FreshStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, 0, st.Count())
	assert.False(t, st.Contains("Acme LLC"))
}

func TestAppend_ThenContains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	saved, err := st.Append(testRecord("Acme LLC"))
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, st.Contains("Acme LLC"))
	assert.Equal(t, 1, countLines(t, path))
}

func TestAppend_DuplicateIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	for _, name := range []string{"Acme LLC", "Beta Corp", "Acme LLC", "Beta Corp", "Acme LLC"} {
		_, err := st.Append(testRecord(name))
		require.NoError(t, err)
	}

	assert.Equal(t, 2, st.Count())
	assert.Equal(t, 2, countLines(t, path))
}

func TestOpen_ResumeIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")

	st, err := Open(path)
	require.NoError(t, err)
	for _, name := range []string{"Acme LLC", "Beta Corp", "Gamma Inc"} {
		_, err := st.Append(testRecord(name))
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())

	// A second open replays every saved key; re-appending them changes nothing.
	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()

	assert.Equal(t, 3, st2.Count())
	for _, name := range []string{"Acme LLC", "Beta Corp", "Gamma Inc"} {
		assert.True(t, st2.Contains(name))
		saved, err := st2.Append(testRecord(name))
		require.NoError(t, err)
		assert.False(t, saved)
	}
	assert.Equal(t, 3, countLines(t, path))
}

func TestOpen_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")
	content := `{"business_name":"Acme LLC","registration_id":"ID1"}
{this is not json
{"business_name":"Beta Corp","registration_id":"ID2"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, 2, st.Count())
	assert.True(t, st.Contains("Acme LLC"))
	assert.True(t, st.Contains("Beta Corp"))
}

func TestOpen_SkipsLinesWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")
	content := `{"registration_id":"orphan"}
{"business_name":"Acme LLC"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st, err := Open(path)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, 1, st.Count())
}

func TestAppend_PreservesRecordFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.jsonl")

	st, err := Open(path)
	require.NoError(t, err)

	rec := &model.Record{
		BusinessName:   "Acme LLC",
		RegistrationID: "ID1",
		Status:         "Active",
		FilingDate:     "2024-01-01",
		AgentDetails:   "John | 123 St | j@x.com",
		AgentName:      "John",
		AgentAddress:   "123 St",
		AgentEmail:     "j@x.com",
	}
	_, err = st.Append(rec)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := strings.TrimSpace(string(data))
	assert.Contains(t, line, `"business_name":"Acme LLC"`)
	assert.Contains(t, line, `"agent_email":"j@x.com"`)
}
