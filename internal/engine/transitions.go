package engine

import "github.com/ayusetu/setu/internal/models"

// allowedFrom maps each engine-driven target status to the statuses a
// batch may hold when the transition is requested. Recall is reachable
// from every state; recalling an already-recalled batch is the one
// permitted repeat transition.
var allowedFrom = map[string][]string{
	models.StatusConsolidated: {models.StatusCreated, models.StatusReceived},
	models.StatusProcessing:   {models.StatusCreated, models.StatusReceived},
	models.StatusFinalized:    {models.StatusProcessed, models.StatusReceived},
	models.StatusRecalled: {
		models.StatusCreated, models.StatusInTransit, models.StatusReceived,
		models.StatusProcessing, models.StatusProcessed, models.StatusConsolidated,
		models.StatusFinalized, models.StatusDispatched, models.StatusRecalled,
	},
}

// CanTransition reports whether a batch in status `from` may be moved to
// status `to` by an engine operation.
func CanTransition(from, to string) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}
