// Package ofx reads bank statements in OFX/QFX format into balance changes
// that can be recorded on an asset.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// amountPrecision bounds the decimal places kept from OFX amounts.
const amountPrecision = 8

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagPattern  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Entry is one statement line.
type Entry struct {
	Date         time.Time
	Amount       decimal.Decimal
	FITID        string
	Counterparty string
	Memo         string
	Type         string
}

// Statement is the list of entries for one account.
type Statement struct {
	AccountID string
	Currency  string
	Entries   []Entry
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocess fixes formatting issues common in bank exports.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return openTagPattern.ReplaceAllString(content, "$1>")
}

// Parse returns every bank and credit card statement in the file.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) ([]Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			statements = append(statements, p.statement(
				string(stmt.BankAcctFrom.AcctID), stmt.CurDef.String(), stmt.BankTranList))
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			statements = append(statements, p.statement(
				string(stmt.CCAcctFrom.AcctID), stmt.CurDef.String(), stmt.BankTranList))
		}
	}

	entries := 0
	for _, s := range statements {
		entries += len(s.Entries)
	}
	slog.Info("parsed OFX file", "statements", len(statements), "entries", entries)

	return statements, nil
}

func (p *Parser) statement(accountID, currency string, list *ofxgo.TransactionList) Statement {
	s := Statement{AccountID: accountID, Currency: strings.ToUpper(currency)}
	if list == nil {
		return s
	}
	for _, txn := range list.Transactions {
		s.Entries = append(s.Entries, p.entry(txn))
	}
	return s
}

// entry keeps the sign of the amount: credits raise the balance.
func (p *Parser) entry(txn ofxgo.Transaction) Entry {
	date := txn.DtPosted.Time
	if txn.DtUser != nil && !txn.DtUser.IsZero() {
		date = txn.DtUser.Time
	}

	return Entry{
		FITID:        string(txn.FiTID),
		Date:         date.UTC(),
		Amount:       decimal.NewFromBigRat(&txn.TrnAmt.Rat, amountPrecision),
		Counterparty: counterparty(txn),
		Memo:         strings.TrimSpace(string(txn.Memo)),
		Type:         fmt.Sprint(txn.TrnType),
	}
}

// counterparty prefers PAYEE, then NAME, then MEMO when NAME is generic.
func counterparty(txn ofxgo.Transaction) string {
	if txn.Payee != nil && txn.Payee.Name != "" {
		return strings.TrimSpace(string(txn.Payee.Name))
	}

	name := strings.TrimSpace(string(txn.Name))
	if txn.Memo != "" && isGenericDescription(name) {
		name = strings.TrimSpace(string(txn.Memo))
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "DEPOSIT", "TRANSFER", "PAYMENT", "INTEREST":
		return true
	}
	return false
}
