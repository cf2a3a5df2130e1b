package devserver

import "frugal/internal/core"

// Wire shapes. Amounts go out as JSON numbers the way the production API
// sends them, so decimals are converted to float64 at the edge.
type (
	transactionDTO struct {
		ID           int64   `json:"id"`
		Timestamp    string  `json:"timestamp"`
		Description  string  `json:"description"`
		Amount       float64 `json:"amount"`
		Category     string  `json:"category"`
		SplitDetails *string `json:"split_details"`
	}

	categoryTotalDTO struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}

	statsDTO struct {
		TotalSpent  float64 `json:"total_spent"`
		Budget      float64 `json:"budget"`
		Remaining   float64 `json:"remaining"`
		ActiveDebts float64 `json:"active_debts"`
	}

	// chatRequestDTO accepts both the {message} and the {user_id, message}
	// bodies.
	chatRequestDTO struct {
		UserID  *string `json:"user_id,omitempty"`
		Message *string `json:"message"`
	}

	chatResponseDTO struct {
		Response string `json:"response"`
	}

	messageDTO struct {
		Message string `json:"message"`
	}

	errorDTO struct {
		Detail string `json:"detail"`
	}
)

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionDTO{
			ID:           t.ID,
			Timestamp:    t.Timestamp,
			Description:  t.Description,
			Amount:       t.Amount.InexactFloat64(),
			Category:     t.Category,
			SplitDetails: t.SplitDetails,
		})
	}
	return out
}

func toCategoryTotalDTOs(totals []core.CategoryTotal) []categoryTotalDTO {
	out := make([]categoryTotalDTO, 0, len(totals))
	for _, c := range totals {
		out = append(out, categoryTotalDTO{Category: c.Category, Total: c.Total.InexactFloat64()})
	}
	return out
}

func toStatsDTO(s core.DashboardStats) statsDTO {
	return statsDTO{
		TotalSpent:  s.TotalSpent.InexactFloat64(),
		Budget:      s.Budget.InexactFloat64(),
		Remaining:   s.Remaining.InexactFloat64(),
		ActiveDebts: s.ActiveDebts.InexactFloat64(),
	}
}
