package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"uploaded", "processing", "processed", "formatted", "error", "failed"} {
		status, err := domain.ParseStatus(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, domain.Status(valid), status)
	}

	_, err := domain.ParseStatus("done")
	assert.Error(t, err)

	_, err = domain.ParseStatus("")
	assert.Error(t, err)
}

func TestStatusFormattedIsProcessed(t *testing.T) {
	assert.True(t, domain.StatusProcessed.IsProcessed())
	assert.True(t, domain.StatusFormatted.IsProcessed())
	assert.False(t, domain.StatusProcessing.IsProcessed())
	assert.False(t, domain.StatusError.IsProcessed())

	assert.Equal(t, domain.StatusProcessed.DisplayLabel(), domain.StatusFormatted.DisplayLabel())
}

func TestStatusDisplayLabel(t *testing.T) {
	tests := []struct {
		status domain.Status
		want   string
	}{
		{domain.StatusUploaded, "Uploaded"},
		{domain.StatusProcessing, "Processing"},
		{domain.StatusProcessed, "Processed"},
		{domain.StatusFormatted, "Processed"},
		{domain.StatusError, "Failed"},
		{domain.StatusFailed, "Failed"},
		{domain.Status("bogus"), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.DisplayLabel(), string(tt.status))
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.Status
		allowed  bool
	}{
		{domain.StatusUploaded, domain.StatusProcessing, true},
		{domain.StatusUploaded, domain.StatusProcessed, false},
		{domain.StatusProcessing, domain.StatusProcessed, true},
		{domain.StatusProcessing, domain.StatusError, true},
		{domain.StatusProcessing, domain.StatusFailed, true},
		{domain.StatusProcessing, domain.StatusUploaded, false},
		// Terminal states only re-enter processing via reprocess.
		{domain.StatusProcessed, domain.StatusProcessing, true},
		{domain.StatusProcessed, domain.StatusUploaded, false},
		{domain.StatusFormatted, domain.StatusProcessing, true},
		{domain.StatusError, domain.StatusProcessing, true},
		{domain.StatusFailed, domain.StatusProcessing, true},
		{domain.StatusError, domain.StatusProcessed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, domain.StatusProcessed.IsTerminal())
	assert.True(t, domain.StatusFormatted.IsTerminal())
	assert.True(t, domain.StatusError.IsTerminal())
	assert.True(t, domain.StatusFailed.IsTerminal())
	assert.False(t, domain.StatusUploaded.IsTerminal())
	assert.False(t, domain.StatusProcessing.IsTerminal())
}
