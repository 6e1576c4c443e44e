package enums

import "fmt"

// WalletTransactionType classifies seller wallet ledger entries.
type WalletTransactionType string

const (
	WalletTransactionTypeSaleCredit WalletTransactionType = "sale_credit"
	WalletTransactionTypePayout     WalletTransactionType = "payout"
	WalletTransactionTypeAdjustment WalletTransactionType = "adjustment"
)

func (t WalletTransactionType) String() string {
	return string(t)
}

func (t WalletTransactionType) IsValid() bool {
	switch t {
	case WalletTransactionTypeSaleCredit, WalletTransactionTypePayout, WalletTransactionTypeAdjustment:
		return true
	}
	return false
}

func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	txType := WalletTransactionType(value)
	if !txType.IsValid() {
		return "", fmt.Errorf("invalid wallet transaction type: %q", value)
	}
	return txType, nil
}
