package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/export"
	"github.com/dvloznov/household-ledger/internal/ledger"
	"github.com/dvloznov/household-ledger/internal/report"
)

type reportCmd struct {
	storageFlags
	months int
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "show net worth, this month's totals, budgets and cash flow" }
func (*reportCmd) Usage() string {
	return `cli report [-user <id|All>] [-months <n>]

  Prints the dashboard figures and the cash flow of the last n months.
`
}

func (p *reportCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.IntVar(&p.months, "months", 6, "Months of cash flow to show.")
}

func (p *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	s := ws.ledger.Snapshot()
	userID := ws.user(p.user)
	now := time.Now()
	printMarkdown(os.Stdout, dashboardMarkdown(s.UserName(userID), report.BuildDashboard(s, userID, now), report.CashFlow(s, userID, p.months, now)))
	return subcommands.ExitSuccess
}

func dashboardMarkdown(who string, d report.Dashboard, flow []report.MonthFlow) string {
	if d.UserID == domain.AllUsers {
		who = "Household"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", who)
	fmt.Fprintf(&b, "- **Net worth:** %s\n", domain.FormatMoney(d.NetWorth))
	fmt.Fprintf(&b, "- **Accounts:** %s\n", domain.FormatMoney(d.TotalBalance))
	fmt.Fprintf(&b, "- **Investments:** %s\n", domain.FormatMoney(d.InvestmentValue))
	fmt.Fprintf(&b, "- **Income this month:** %s\n", domain.FormatMoney(d.MonthlyIncome))
	fmt.Fprintf(&b, "- **Expenses this month:** %s\n", domain.FormatMoney(d.MonthlyExpense))

	if len(d.Budgets) > 0 {
		b.WriteString("\n## Budgets\n\n| Category | Period | Budget | Spent | Used |\n|---|---|---:|---:|---:|\n")
		for _, u := range d.Budgets {
			used := u.Percentage.StringFixed(0) + "%"
			if u.Overspent() {
				used += " ⚠"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", cell(u.Category), u.Period,
				domain.FormatMoney(u.Amount), domain.FormatMoney(u.Spent), used)
		}
	}

	if len(flow) > 0 {
		b.WriteString("\n## Cash flow\n\n| Month | Income | Expense | Net |\n|---|---:|---:|---:|\n")
		for _, m := range flow {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", m.Month,
				domain.FormatMoney(m.Income), domain.FormatMoney(m.Expense), domain.FormatMoney(m.Net))
		}
	}
	return b.String()
}

type exportCmd struct {
	storageFlags
	format string
	out    string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export transactions as CSV or PDF" }
func (*exportCmd) Usage() string {
	return `cli export [-format csv|pdf] [-o <file>] [-user <id|All>]

  Writes the visible transactions to a file (default transactions.<format>).
`
}

func (p *exportCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.StringVar(&p.format, "format", "csv", "Export format: csv or pdf.")
	f.StringVar(&p.out, "o", "", "Output file, or - for stdout.")
}

func (p *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	exporter, err := export.ForFormat(p.format)
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

	s := ws.ledger.Snapshot()
	txs := s.TransactionsForUser(ws.user(p.user))

	out := os.Stdout
	name := p.out
	if name == "" {
		name = "transactions." + exporter.Extension()
	}
	if name != "-" {
		file, err := os.Create(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer file.Close()
		out = file
	}

	if err := exporter.Export(out, txs, s.Users); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if name != "-" {
		fmt.Printf("Exported %d transactions to %s\n", len(txs), name)
	}
	return subcommands.ExitSuccess
}

type auditCmd struct {
	storageFlags
	fix bool
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "check account balances against their transactions" }
func (*auditCmd) Usage() string {
	return `cli audit [-fix]

  Recomputes every balance from opening balances and transactions. With -fix,
  mismatched balances are rewritten and the snapshot saved.
`
}

func (p *auditCmd) SetFlags(f *flag.FlagSet) {
	p.register(f, loadConfig())
	f.BoolVar(&p.fix, "fix", false, "Rewrite mismatched balances.")
}

func (p *auditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	s := ws.ledger.Snapshot()
	found := ledger.Audit(s)
	if len(found) == 0 {
		fmt.Println("All balances match.")
		return subcommands.ExitSuccess
	}
	for _, d := range found {
		fmt.Printf("%s: stored %s, expected %s\n", accountName(s, d.AccountID),
			domain.FormatMoney(d.Actual), domain.FormatMoney(d.Expected))
	}
	if !p.fix {
		return subcommands.ExitFailure
	}

	fixed := ledger.Rebuild(s)
	fixed.Revision = s.Revision + 1
	if err := ws.store.Save(ctx, fixed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Rewrote %d balance(s).\n", len(found))
	return subcommands.ExitSuccess
}
