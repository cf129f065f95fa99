package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDepositRecordJSONShape(t *testing.T) {
	record := DepositRecord{
		ID:         42,
		Caller:     "0x1111111111111111111111111111111111111111",
		Receiver:   "0x2222222222222222222222222222222222222222",
		Assets:     "1000000000000000000",
		Shares:     "1000000000000000000",
		Block:      100,
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := fields["id"]; ok {
		t.Fatalf("internal id leaked into JSON: %s", b)
	}
	if _, ok := fields["timestamp"]; !ok {
		t.Fatalf("missing timestamp field: %s", b)
	}
	if fields["assets"] != "1000000000000000000" {
		t.Fatalf("assets not a decimal string: %v", fields["assets"])
	}
}

func TestWithdrawRecordJSONShape(t *testing.T) {
	record := WithdrawRecord{
		ID:         7,
		Caller:     "0x1111111111111111111111111111111111111111",
		Receiver:   "0x2222222222222222222222222222222222222222",
		Owner:      "0x3333333333333333333333333333333333333333",
		Assets:     "400000000000000000",
		Shares:     "400000000000000000",
		Block:      150,
		RecordedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := fields["id"]; ok {
		t.Fatalf("internal id leaked into JSON: %s", b)
	}
	if fields["owner"] != record.Owner {
		t.Fatalf("owner mismatch: %v", fields["owner"])
	}
	if fields["receiver"] != record.Receiver {
		t.Fatalf("receiver mismatch: %v", fields["receiver"])
	}
}
