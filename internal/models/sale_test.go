package models

import (
	"testing"
)

func TestNormalizeSaleCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected SaleCondition
	}{
		{"Near Mint", SaleConditionNM},
		{"near mint", SaleConditionNM},
		{"NM", SaleConditionNM},
		{"Lightly Played", SaleConditionLP},
		{"lp", SaleConditionLP},
		{"Moderately Played", SaleConditionMP},
		{"Heavily Played", SaleConditionHP},
		{"Damaged", SaleConditionDMG},
		{"dmg", SaleConditionDMG},
		{" Near Mint ", SaleConditionNM},
		{"Sealed", SaleConditionNM}, // unknown defaults to NM
		{"", SaleConditionNM},
	}

	for _, test := range tests {
		if got := NormalizeSaleCondition(test.input); got != test.expected {
			t.Errorf("NormalizeSaleCondition(%q) = %s, expected %s", test.input, got, test.expected)
		}
	}
}

func TestReportPhasePredicates(t *testing.T) {
	inProgress := []ReportPhase{ReportPhaseFetching, ReportPhaseGeneratingImages, ReportPhaseGeneratingPDF}
	for _, phase := range inProgress {
		if !phase.InProgress() {
			t.Errorf("%s should be in progress", phase)
		}
		if phase.Terminal() {
			t.Errorf("%s should not be terminal", phase)
		}
	}

	terminal := []ReportPhase{ReportPhaseIdle, ReportPhaseReady, ReportPhaseError}
	for _, phase := range terminal {
		if phase.InProgress() {
			t.Errorf("%s should not be in progress", phase)
		}
		if !phase.Terminal() {
			t.Errorf("%s should be terminal", phase)
		}
	}
}
