package engine

import (
	"testing"

	"github.com/ayusetu/setu/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.StatusCreated, models.StatusConsolidated, true},
		{models.StatusReceived, models.StatusConsolidated, true},
		{models.StatusConsolidated, models.StatusConsolidated, false},
		{models.StatusRecalled, models.StatusConsolidated, false},

		{models.StatusCreated, models.StatusProcessing, true},
		{models.StatusReceived, models.StatusProcessing, true},
		{models.StatusProcessing, models.StatusProcessing, false},

		{models.StatusProcessed, models.StatusFinalized, true},
		{models.StatusReceived, models.StatusFinalized, true},
		{models.StatusCreated, models.StatusFinalized, false},

		// Recall is reachable from everywhere, including recalled itself.
		{models.StatusCreated, models.StatusRecalled, true},
		{models.StatusInTransit, models.StatusRecalled, true},
		{models.StatusFinalized, models.StatusRecalled, true},
		{models.StatusDispatched, models.StatusRecalled, true},
		{models.StatusRecalled, models.StatusRecalled, true},

		// Unknown target statuses are never engine transitions.
		{models.StatusCreated, models.StatusInTransit, false},
		{models.StatusCreated, "vaporized", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
