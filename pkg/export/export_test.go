package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatXLSX, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	require.Equal(t, FormatPDF, f)

	_, err = ParseFormat("odt")
	require.Error(t, err)

	// The archive format is never requestable directly.
	_, err = ParseFormat("zip")
	require.Error(t, err)
}

func TestFormatContentType(t *testing.T) {
	require.Equal(t, "text/csv", FormatCSV.ContentType())
	require.Equal(t, "application/zip", FormatZIP.ContentType())
	require.Equal(t, "application/octet-stream", Format("bin").ContentType())
	require.Equal(t, "pptx", FormatPPTX.Extension())
}

func TestFormatValue(t *testing.T) {
	require.Equal(t, "", FormatValue(nil))
	require.Equal(t, "Yes", FormatValue(true))
	require.Equal(t, "No", FormatValue(false))
	require.Equal(t, "plain", FormatValue("plain"))
	require.Equal(t, "raw", FormatValue([]byte("raw")))
	require.Equal(t, "42", FormatValue(float64(42)))
	require.Equal(t, "4.25", FormatValue(4.25))
	require.Equal(t, "7", FormatValue(int64(7)))

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-03-15", FormatValue(day))
	stamp := time.Date(2026, 3, 15, 14, 30, 5, 0, time.UTC)
	require.Equal(t, "2026-03-15T14:30:05Z", FormatValue(stamp))
	require.Equal(t, "2026-03-15", FormatValue(&day))
	var nilTime *time.Time
	require.Equal(t, "", FormatValue(nilTime))
}

func TestLabel(t *testing.T) {
	require.Equal(t, "Username", Label("username"))
	require.Equal(t, "Role Is Super User", Label("role.is_super_user"))
	require.Equal(t, "Created At", Label("created_at"))
}

func TestRegistryFormats(t *testing.T) {
	reg := NewRegistry()
	require.Equal(t, []string{"csv", "docx", "pdf", "pptx", "xlsx"}, reg.Formats())

	r, ok := reg.Get(FormatPDF)
	require.True(t, ok)
	require.NotNil(t, r)

	_, ok = reg.Get(FormatZIP)
	require.False(t, ok)
}
