package models

import (
	"math/big"
	"strings"
	"time"
)

// Wave — одно приветствие, записанное контрактом WavePortal.
type Wave struct {
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// IndexedWave is a Wave mirrored from a NewWave log, keyed by its log position.
type IndexedWave struct {
	Wave
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint      `json:"log_index"`
	BlockNumber uint64    `json:"block_number"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// WaveTime converts the contract's uint256 seconds into an instant.
// Values that do not fit int64 seconds map to the zero time.
func WaveTime(seconds *big.Int) time.Time {
	if seconds == nil || !seconds.IsInt64() {
		return time.Time{}
	}
	return time.Unix(seconds.Int64(), 0).UTC()
}

// SameAddress compares two hex addresses ignoring checksum casing.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// FilterBySender returns the waves sent by account, preserving order.
func FilterBySender(waves []Wave, account string) []Wave {
	out := make([]Wave, 0)
	for _, w := range waves {
		if SameAddress(w.Sender, account) {
			out = append(out, w)
		}
	}
	return out
}
