// Package source discovers and parses JSONL ledger import files.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/paycheck/internal/model"
)

// ParseResult holds the output of parsing a single JSONL file.
type ParseResult struct {
	File        DiscoveredFile
	Records     []Record
	ParseErrors int
	Err         error
}

// ParseFile reads a JSONL import file, one record per line. Blank lines are
// skipped. Lines that are not valid JSON, carry an unknown kind, or fail to
// decode into their entity are counted in ParseErrors and skipped; the rest
// of the file still loads.
func ParseFile(df DiscoveredFile) ParseResult {
	result := ParseResult{File: df}

	f, err := os.Open(df.Path)
	if err != nil {
		result.Err = err
		return result
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			result.ParseErrors++
			continue
		}
		rec.Line = lineNo
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		result.Err = fmt.Errorf("reading %s: %w", df.Name, err)
	}
	return result
}

// ParseLine decodes one import line.
func ParseLine(line []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Record{}, err
	}

	rec := Record{Kind: env.Kind}
	switch env.Kind {
	case KindCategory:
		var c categoryLine
		if err := json.Unmarshal(line, &c); err != nil {
			return rec, err
		}
		c.Category.Kind = c.CategoryKind
		rec.Category = &c.Category
	case KindIncomeSource:
		var src incomeLine
		if err := json.Unmarshal(line, &src); err != nil {
			return rec, err
		}
		src.IsActive = src.Active == nil || *src.Active
		rec.IncomeSource = &src.IncomeSource
	case KindBill:
		var b model.Bill
		if err := json.Unmarshal(line, &b); err != nil {
			return rec, err
		}
		rec.Bill = &b
	case KindSubscription:
		var sub subscriptionLine
		if err := json.Unmarshal(line, &sub); err != nil {
			return rec, err
		}
		sub.IsActive = sub.Active == nil || *sub.Active
		rec.Subscription = &sub.Subscription
	case KindGoal:
		var g model.Goal
		if err := json.Unmarshal(line, &g); err != nil {
			return rec, err
		}
		rec.Goal = &g
	case KindRule:
		var r model.BudgetRule
		if err := json.Unmarshal(line, &r); err != nil {
			return rec, err
		}
		rec.Rule = &r
	case KindTransaction:
		var t transactionLine
		if err := json.Unmarshal(line, &t); err != nil {
			return rec, err
		}
		if t.OccurredAt.IsZero() && !t.OccurredOn.IsZero() {
			t.OccurredAt = t.OccurredOn.Time
		}
		if t.OccurredAt.IsZero() {
			return rec, fmt.Errorf("transaction without occurred_at")
		}
		if t.Type == "" {
			// Signed amounts: income positive, expenses negative.
			t.Type = model.Income
			if t.Amount.IsNegative() {
				t.Type = model.Expense
			}
		}
		rec.Transaction = &t.Transaction
	default:
		return rec, fmt.Errorf("unknown record kind %q", env.Kind)
	}
	return rec, nil
}
