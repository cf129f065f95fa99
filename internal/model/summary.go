package model

// DepositSummary aggregates a wallet's deposit records.
type DepositSummary struct {
	TotalDepositedAssets string `json:"totalDepositedAssets"`
	TotalReceivedShares  string `json:"totalReceivedShares"`
	LastDepositBlock     uint64 `json:"lastDepositBlock"`
}

// WithdrawSummary aggregates a wallet's withdrawal records.
type WithdrawSummary struct {
	TotalWithdrawnAssets string `json:"totalWithdrawnAssets"`
	TotalBurnedShares    string `json:"totalBurnedShares"`
	LastWithdrawBlock    uint64 `json:"lastWithdrawBlock"`
}
