package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/output"
)

func TestFormatter(t *testing.T) {
	t.Parallel()
	assert.Equal(t, output.FormatJSON, output.NewFormatter(output.FormatJSON).Format())
	assert.Equal(t, output.FormatText, output.NewFormatter(output.FormatText).Format())
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, output.WriteJSON(&buf, map[string]string{"account": "0xabc"}))
	assert.Equal(t, "{\n  \"account\": \"0xabc\"\n}\n", buf.String())

	var result map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "0xabc", result["account"])
}

func TestWriteJSONLine(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, output.WriteJSONLine(&buf, map[string]int{"chain_id": 1}))
	require.NoError(t, output.WriteJSONLine(&buf, map[string]int{"chain_id": 2}))
	assert.Equal(t, "{\"chain_id\":1}\n{\"chain_id\":2}\n", buf.String())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected output.Format
	}{
		{"json", output.FormatJSON},
		{"JSON", output.FormatJSON},
		{" text ", output.FormatText},
		{"auto", output.FormatAuto},
		{"", output.FormatAuto},
		{"yaml", output.FormatAuto},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, output.ParseFormat(tt.input))
		})
	}
}

func TestDetectFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatJSON))
	assert.Equal(t, output.FormatText, output.DetectFormat(&buf, output.FormatText))
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatAuto))
	assert.False(t, output.IsTerminal(&buf))
}

func TestDetectFormat_TTY(t *testing.T) {
	if os.Getenv("TEST_TTY") == "" {
		t.Skip("Skipping TTY test - set TEST_TTY=1 to run")
	}
	assert.Equal(t, output.FormatText, output.DetectFormat(os.Stdout, output.FormatAuto))
}

func TestTable_Render(t *testing.T) {
	t.Parallel()
	table := output.NewTable("ID", "Amount", "Status")
	table.SetAlign(1, output.AlignRight)
	table.AddRow("0", "1.5", "approved")
	table.AddRow("1", "0.25", "completed")

	expected := "" +
		"ID  Amount  Status\n" +
		"--  ------  ---------\n" +
		"0      1.5  approved\n" +
		"1     0.25  completed\n"
	assert.Equal(t, expected, table.String())
	assert.Equal(t, 2, table.Len())
}

func TestTable_NoHeaderAndEmpty(t *testing.T) {
	t.Parallel()

	table := output.NewTable("Name")
	table.SetNoHeader(true)
	table.AddRow("campaign")
	assert.Equal(t, "campaign\n", table.String())

	assert.Empty(t, output.NewTable().String())
}
