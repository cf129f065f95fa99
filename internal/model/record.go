package model

import "time"

// DepositRecord is the normalized representation of a vault Deposit event.
// Assets and Shares are canonical decimal strings; on-chain amounts routinely
// exceed 64 bits and must never be narrowed.
type DepositRecord struct {
	ID         int64     `json:"-"`
	Caller     string    `json:"caller"`
	Receiver   string    `json:"receiver"`
	Assets     string    `json:"assets"`
	Shares     string    `json:"shares"`
	Block      uint64    `json:"block"`
	RecordedAt time.Time `json:"timestamp"`
}

// WithdrawRecord is the normalized representation of a vault Withdraw event.
// Owner is the address whose shares were burned; Receiver is the asset
// recipient and may differ from Owner.
type WithdrawRecord struct {
	ID         int64     `json:"-"`
	Caller     string    `json:"caller"`
	Receiver   string    `json:"receiver"`
	Owner      string    `json:"owner"`
	Assets     string    `json:"assets"`
	Shares     string    `json:"shares"`
	Block      uint64    `json:"block"`
	RecordedAt time.Time `json:"timestamp"`
}
