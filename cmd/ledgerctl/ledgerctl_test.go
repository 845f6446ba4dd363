package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCutoff(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{name: "Date", in: "2024-09-01", want: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)},
		{name: "Timestamp", in: "2024-09-01T12:30:00Z", want: time.Date(2024, 9, 1, 12, 30, 0, 0, time.UTC)},
		{name: "Garbage", in: "last week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCutoff(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestConfirm_ReportsMissingTerminal(t *testing.T) {
	err := confirm(strings.NewReader("y\n"), "Apply?")
	assert.ErrorIs(t, err, errNonInteractive)
}

func TestApprove(t *testing.T) {
	tests := []struct {
		name string
		yes  bool
	}{
		{name: "NonInteractiveApplies"},
		{name: "YesSkipsPrompt", yes: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, approve(strings.NewReader(""), tt.yes, "Apply?"))
		})
	}
}

func TestRepairCommands_Flags(t *testing.T) {
	cmd := repairCmd(nil)

	for _, name := range []string{"link-orphans", "backfill-member-ids", "normalize-metadata"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
		assert.NotNil(t, sub.Flags().Lookup("dry-run"))
		assert.NotNil(t, sub.Flags().Lookup("yes"))
	}
}
