package ofxparser

import (
	"bytes"
	"fmt"
	"time"

	"github.com/aclindsa/ofxgo"
)

// StatementSummary describes one statement of an OFX response.
type StatementSummary struct {
	Kind          string    `json:"kind"`
	Institution   string    `json:"institution,omitempty"`
	AccountID     string    `json:"account_id"`
	AccountType   string    `json:"account_type,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	LedgerBalance string    `json:"ledger_balance,omitempty"`
	BalanceAsOf   time.Time `json:"balance_as_of,omitempty"`
	Start         time.Time `json:"start,omitempty"`
	End           time.Time `json:"end,omitempty"`
	Transactions  int       `json:"transactions"`
}

// Summarize reads statement metadata with a full OFX client parser. Unlike
// Parse it requires a complete, valid response (signon included), so it is
// used for inspection only and never gates ingestion.
func Summarize(data []byte) ([]StatementSummary, *ofxgo.Response, error) {
	resp, err := ofxgo.ParseResponse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OFX response (%d bytes): %w", len(data), err)
	}

	org := resp.Signon.Org.String()

	var out []StatementSummary
	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		s := StatementSummary{
			Kind:          "bank",
			Institution:   org,
			AccountID:     stmt.BankAcctFrom.AcctID.String(),
			AccountType:   stmt.BankAcctFrom.AcctType.String(),
			Currency:      stmt.CurDef.String(),
			LedgerBalance: stmt.BalAmt.String(),
			BalanceAsOf:   stmt.DtAsOf.Time,
		}
		fillRange(&s, stmt.BankTranList)
		out = append(out, s)
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		s := StatementSummary{
			Kind:          "creditcard",
			Institution:   org,
			AccountID:     stmt.CCAcctFrom.AcctID.String(),
			Currency:      stmt.CurDef.String(),
			LedgerBalance: stmt.BalAmt.String(),
			BalanceAsOf:   stmt.DtAsOf.Time,
		}
		fillRange(&s, stmt.BankTranList)
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, resp, fmt.Errorf("no bank or credit card statement in OFX response")
	}

	return out, resp, nil
}

func fillRange(s *StatementSummary, list *ofxgo.TransactionList) {
	if list == nil {
		return
	}
	s.Start = list.DtStart.Time
	s.End = list.DtEnd.Time
	s.Transactions = len(list.Transactions)
}
