package transaction

import (
	"time"

	"sitesmith-backend/internal/models"
	"sitesmith-backend/internal/utils"
)

type TransactionListItem struct {
	ID            uint                   `json:"id"`
	CreatedAt     time.Time              `json:"created_at"`
	UserID        uint                   `json:"user_id"`
	Amount        int                    `json:"amount"`
	BalanceBefore int                    `json:"balance_before"`
	BalanceAfter  int                    `json:"balance_after"`
	Reason        string                 `json:"reason"`
	Operator      string                 `json:"operator"`
	Type          models.TransactionType `json:"type"`
	ProjectID     string                 `json:"project_id,omitempty"`
	RefundOf      *uint                  `json:"refund_of,omitempty"`
	IPAddress     string                 `json:"ip_address"`
	DeviceInfo    string                 `json:"device_info"`
	Hash          string                 `json:"hash"`
	Verified      bool                   `json:"verified"`
}

type TransactionListResponse struct {
	utils.Pagination
	Transactions []TransactionListItem `json:"transactions"`
}
