package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

const dateLayout = "2006-01-02"

type txCmd struct {
	storageFlags
	start string
	end   string
	typ   string
	head  int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list transactions, newest first" }
func (*txCmd) Usage() string {
	return `cli tx [-user <id|All>] [-s <start>] [-d <end>] [-type Income|Expense|Transfer] [-head <n>]

  Lists transactions in ledger order. Dates are YYYY-MM-DD; the end date is inclusive.
`
}

func (p *txCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.StringVar(&p.start, "s", "", "Only transactions on or after this date.")
	f.StringVar(&p.end, "d", "", "Only transactions on or before this date.")
	f.StringVar(&p.typ, "type", "", "Only transactions of this type.")
	f.IntVar(&p.head, "head", 0, "Show only the first N transactions.")
}

func (p *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var start, end time.Time
	var err error
	if p.start != "" {
		if start, err = time.Parse(dateLayout, p.start); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing start date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	if p.end != "" {
		if end, err = time.Parse(dateLayout, p.end); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing end date: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	s := ws.ledger.Snapshot()
	var txs []domain.Transaction
	for _, tx := range s.TransactionsForUser(ws.user(p.user)) {
		d := tx.Common().Date
		if !start.IsZero() && d.Before(start) {
			continue
		}
		if !end.IsZero() && !d.Before(end.AddDate(0, 0, 1)) {
			continue
		}
		if p.typ != "" && !strings.EqualFold(string(tx.Type()), p.typ) {
			continue
		}
		txs = append(txs, tx)
	}
	if p.head > 0 && len(txs) > p.head {
		txs = txs[:p.head]
	}

	printMarkdown(os.Stdout, transactionsMarkdown(s, txs))
	return subcommands.ExitSuccess
}

// transactionsMarkdown renders txs as a markdown table.
func transactionsMarkdown(s store.Snapshot, txs []domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Transactions (%d)\n\n", len(txs))
	if len(txs) == 0 {
		b.WriteString("_No transactions._\n")
		return b.String()
	}
	b.WriteString("| Date | ID | User | Type | Category | Account | Amount | Description |\n")
	b.WriteString("|---|---|---|---|---|---|---:|---|\n")
	for _, tx := range txs {
		r := tx.Record()
		account := accountName(s, r.AccountID)
		if r.DestinationAccountID != "" {
			account += " → " + accountName(s, r.DestinationAccountID)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.Date.Format(dateLayout), r.ID, cell(s.UserName(r.UserID)), r.Type, cell(r.Category),
			cell(account), domain.FormatMoney(r.Amount), cell(r.Description))
	}
	return b.String()
}

func accountName(s store.Snapshot, id string) string {
	if a, ok := s.Account(id); ok {
		return a.Name
	}
	return id
}

// txFields are the flags shared by tx-add and tx-edit.
type txFields struct {
	typ         string
	amount      string
	description string
	category    string
	account     string
	to          string
	date        string
	tags        string
}

func (t *txFields) register(f *flag.FlagSet) {
	f.StringVar(&t.typ, "type", "", "Income, Expense or Transfer.")
	f.StringVar(&t.amount, "amount", "", "Amount in IDR.")
	f.StringVar(&t.description, "desc", "", "Description.")
	f.StringVar(&t.category, "category", "", "Category name (ignored for transfers).")
	f.StringVar(&t.account, "account", "", "Account id (source account for transfers).")
	f.StringVar(&t.to, "to", "", "Destination account id for transfers.")
	f.StringVar(&t.date, "date", "", "Date as YYYY-MM-DD (defaults to today for new transactions).")
	f.StringVar(&t.tags, "tags", "", "Comma-separated tags.")
}

// merge overlays the flags that were set onto rec.
func (t *txFields) merge(rec domain.Record) (domain.Record, error) {
	if t.typ != "" {
		rec.Type = domain.TransactionType(strings.ToUpper(t.typ[:1]) + strings.ToLower(t.typ[1:]))
	}
	if t.amount != "" {
		amount, err := domain.ParseAmount(t.amount)
		if err != nil {
			return rec, err
		}
		rec.Amount = amount
	}
	if t.description != "" {
		rec.Description = t.description
	}
	if t.category != "" {
		rec.Category = t.category
	}
	if t.account != "" {
		rec.AccountID = t.account
	}
	if t.to != "" {
		rec.DestinationAccountID = t.to
	}
	if rec.Type != domain.TypeTransfer {
		rec.DestinationAccountID = ""
	}
	if t.date != "" {
		d, err := time.ParseInLocation(dateLayout, t.date, time.Local)
		if err != nil {
			return rec, domain.NewValidationError("date", "must be YYYY-MM-DD")
		}
		rec.Date = d
	}
	if t.tags != "" {
		rec.Tags = nil
		for _, tag := range strings.Split(t.tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				rec.Tags = append(rec.Tags, tag)
			}
		}
	}
	return rec, nil
}

type txAddCmd struct {
	storageFlags
	txFields
}

func (*txAddCmd) Name() string     { return "tx-add" }
func (*txAddCmd) Synopsis() string { return "record an income, expense or transfer" }
func (*txAddCmd) Usage() string {
	return `cli tx-add -type <type> -amount <n> -desc <text> [-category <name>] [-account <id>] [-to <id>] [-date <date>] [-tags a,b]

  Adds a transaction and updates the touched account balances. Without -account
  the acting user's primary account is used.
`
}

func (p *txAddCmd) SetFlags(f *flag.FlagSet) {
	p.storageFlags.register(f, loadConfig())
	p.txFields.register(f)
}

func (p *txAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	userID, err := ws.actingUser(p.user)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	rec, err := p.merge(domain.Record{ID: uuid.NewString(), UserID: userID, Date: time.Now()})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	s := ws.ledger.Snapshot()
	if rec.AccountID == "" {
		if a, ok := s.PrimaryAccount(userID); ok {
			rec.AccountID = a.ID
		}
	}

	tx, err := rec.Transaction()
	if err == nil {
		err = ledger.CheckTransaction(s, tx)
	}
	if err == nil {
		_, err = ws.apply(ctx, ledger.AddTransaction{Transaction: tx})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Added %s %s %s (%s)\n", rec.Type, domain.FormatMoney(rec.Amount), rec.Description, rec.ID)
	return subcommands.ExitSuccess
}

type txEditCmd struct {
	storageFlags
	txFields
	id string
}

func (*txEditCmd) Name() string     { return "tx-edit" }
func (*txEditCmd) Synopsis() string { return "change a transaction" }
func (*txEditCmd) Usage() string {
	return `cli tx-edit -id <id> [-type <type>] [-amount <n>] [-desc <text>] [-category <name>] [-account <id>] [-to <id>] [-date <date>] [-tags a,b]

  Replaces the given fields of a transaction. The old balance effect is reversed
  before the new one is applied.
`
}

func (p *txEditCmd) SetFlags(f *flag.FlagSet) {
	p.storageFlags.register(f, loadConfig())
	p.txFields.register(f)
	f.StringVar(&p.id, "id", "", "Transaction id.")
}

func (p *txEditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	s := ws.ledger.Snapshot()
	old, ok := s.Transaction(p.id)
	if !ok {
		fmt.Fprintln(os.Stderr, domain.NotFound("transaction", p.id))
		return subcommands.ExitFailure
	}
	rec, err := p.merge(old.Record())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	tx, err := rec.Transaction()
	if err == nil {
		err = ledger.CheckTransaction(s, tx)
	}
	if err == nil {
		_, err = ws.apply(ctx, ledger.UpdateTransaction{Old: old, New: tx})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Updated %s\n", p.id)
	return subcommands.ExitSuccess
}

type txRmCmd struct {
	storageFlags
	id string
}

func (*txRmCmd) Name() string     { return "tx-rm" }
func (*txRmCmd) Synopsis() string { return "delete a transaction" }
func (*txRmCmd) Usage() string {
	return `cli tx-rm -id <id>

  Deletes a transaction and reverses its effect on account balances.
`
}

func (p *txRmCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.StringVar(&p.id, "id", "", "Transaction id.")
}

func (p *txRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if p.id == "" {
		fmt.Fprintln(os.Stderr, "Error: -id is required")
		return subcommands.ExitUsageError
	}
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	tx, ok := ws.ledger.Snapshot().Transaction(p.id)
	if !ok {
		fmt.Fprintln(os.Stderr, domain.NotFound("transaction", p.id))
		return subcommands.ExitFailure
	}
	if _, err := ws.apply(ctx, ledger.DeleteTransaction{Transaction: tx}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Deleted %s\n", p.id)
	return subcommands.ExitSuccess
}
