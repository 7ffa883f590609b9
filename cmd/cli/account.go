package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/store"
)

type accountsCmd struct {
	storageFlags
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and balances" }
func (*accountsCmd) Usage() string {
	return `cli accounts [-user <id|All>]

  Lists accounts with their current and opening balances.
`
}

func (p *accountsCmd) SetFlags(f *flag.FlagSet) { p.register(f, loadConfig()) }

func (p *accountsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	s := ws.ledger.Snapshot()
	printMarkdown(os.Stdout, accountsMarkdown(s, s.AccountsForUser(ws.user(p.user))))
	return subcommands.ExitSuccess
}

func accountsMarkdown(s store.Snapshot, accounts []domain.Account) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Accounts (%d)\n\n", len(accounts))
	if len(accounts) == 0 {
		b.WriteString("_No accounts._\n")
		return b.String()
	}
	b.WriteString("| ID | Owner | Name | Type | Balance | Opening |\n")
	b.WriteString("|---|---|---|---|---:|---:|\n")
	for _, a := range accounts {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			a.ID, cell(s.UserName(a.UserID)), cell(a.Name), a.Type,
			domain.FormatMoney(a.Balance), domain.FormatMoney(a.OpeningBalance))
	}
	return b.String()
}

type accountAddCmd struct {
	storageFlags
	name    string
	typ     string
	balance string
}

func (*accountAddCmd) Name() string     { return "account-add" }
func (*accountAddCmd) Synopsis() string { return "open an account" }
func (*accountAddCmd) Usage() string {
	return `cli account-add -name <name> -type Bank|E-Wallet|Cash|Investment [-balance <n>]

  Adds an account owned by the acting user. The balance becomes its opening balance.
`
}

func (p *accountAddCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.StringVar(&p.name, "name", "", "Account name.")
	f.StringVar(&p.typ, "type", string(domain.AccountBank), "Account type.")
	f.StringVar(&p.balance, "balance", "0", "Starting balance.")
}

func (p *accountAddCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	balance, err := domain.ParseAmount(p.balance)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
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
	a := domain.Account{
		ID:      uuid.NewString(),
		UserID:  userID,
		Name:    p.name,
		Type:    domain.AccountType(p.typ),
		Balance: balance,
	}
	if _, err := ws.apply(ctx, ledger.AddAccount{Account: a}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Added account %s (%s)\n", a.Name, a.ID)
	return subcommands.ExitSuccess
}

type accountRmCmd struct {
	storageFlags
	id string
}

func (*accountRmCmd) Name() string     { return "account-rm" }
func (*accountRmCmd) Synopsis() string { return "remove an unused account" }
func (*accountRmCmd) Usage() string {
	return `cli account-rm -id <id>

  Removes an account. Accounts referenced by any transaction cannot be removed.
`
}

func (p *accountRmCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.StringVar(&p.id, "id", "", "Account id.")
}

func (p *accountRmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	if _, err := ws.apply(ctx, ledger.DeleteAccount{ID: p.id}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Removed account %s\n", p.id)
	return subcommands.ExitSuccess
}
