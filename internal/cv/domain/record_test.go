package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cvstudio/cvstudio-backend/internal/cv/domain"
)

func TestRecordIsZero(t *testing.T) {
	tests := []struct {
		name   string
		record domain.CVRecord
		zero   bool
	}{
		{"empty", domain.CVRecord{}, true},
		{"name only", domain.CVRecord{PersonalInfo: domain.PersonalInfo{Name: "Jane"}}, false},
		{"profile only", domain.CVRecord{Profile: "engineer"}, false},
		{"skills only", domain.CVRecord{Skills: []string{"Go"}}, false},
		{"languages only", domain.CVRecord{PersonalInfo: domain.PersonalInfo{Languages: []string{"English"}}}, false},
		{"experience only", domain.CVRecord{Experience: []domain.Experience{{Company: "Acme"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.zero, tt.record.IsZero())
		})
	}
}

func TestFieldOrFallback(t *testing.T) {
	assert.Equal(t, "Jane", domain.FieldOrFallback("Jane"))
	assert.Equal(t, domain.NotAvailable, domain.FieldOrFallback(""))
	assert.Equal(t, domain.NotAvailable, domain.FieldOrFallback("   "))
}

func TestListOrFallback(t *testing.T) {
	assert.Equal(t, []string{"Go"}, domain.ListOrFallback([]string{"Go"}))
	assert.Equal(t, []string{domain.NotAvailable}, domain.ListOrFallback(nil))
	assert.Equal(t, []string{domain.NotAvailable}, domain.ListOrFallback([]string{}))
}
