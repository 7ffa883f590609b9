package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/dvloznov/household-ledger/internal/assistant"
	"github.com/dvloznov/household-ledger/internal/domain"
)

func newModel(ctx context.Context) (assistant.Model, error) {
	cfg := loadConfig()
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	return assistant.NewGeminiModel(ctx, assistant.GeminiConfig{
		APIKey:      cfg.AI.APIKey,
		ChatModel:   cfg.AI.ChatModel,
		FastModel:   cfg.AI.FastModel,
		ReportModel: cfg.AI.ReportModel,
	})
}

type assistCmd struct {
	storageFlags
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "chat with the AI assistant" }
func (*assistCmd) Usage() string {
	return `cli assist

  Starts an interactive chat. Proposed changes are shown first and only applied
  after you answer "y". Type "quit" to leave.
`
}

func (p *assistCmd) SetFlags(f *flag.FlagSet) { p.register(f, loadConfig()) }

func (p *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	model, err := newModel(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	session := assistant.NewSession(model, ws.ledger, assistant.WithLogger(ws.log))
	if err := chatLoop(ctx, session, ws, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// chatLoop reads lines from in until EOF or "quit". Each confirmed action
// is saved before the next prompt.
func chatLoop(ctx context.Context, session *assistant.Session, ws *workspace, in io.Reader, out io.Writer) error {
	for _, m := range session.Messages() {
		fmt.Fprintf(out, "AI: %s\n", m.Text)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}

		reply, err := session.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "AI: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "AI: %s\n", reply.Text)
		if reply.Action == nil {
			continue
		}

		fmt.Fprint(out, previewText(reply.Action.Preview))
		fmt.Fprint(out, "Apply this change? [y/N] ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if answer := strings.ToLower(strings.TrimSpace(scanner.Text())); answer != "y" && answer != "yes" {
			if err := session.Discard(reply.Action.ID); err != nil {
				return err
			}
			fmt.Fprintln(out, "AI: Okay, I've cancelled that action.")
			continue
		}

		snap, err := session.Confirm(ctx, reply.Action.ID)
		if err != nil {
			fmt.Fprintf(out, "AI: That change could not be applied: %v\n", err)
			continue
		}
		if err := ws.store.Save(ctx, snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		fmt.Fprintln(out, "AI: Done.")
	}
}

func previewText(r domain.Record) string {
	return fmt.Sprintf("  %s  %s  %s  %s  [%s]\n", r.Date.Format(dateLayout), r.Type, domain.FormatMoney(r.Amount), r.Description, r.Category)
}

type healthCmd struct {
	storageFlags
}

func (*healthCmd) Name() string     { return "health" }
func (*healthCmd) Synopsis() string { return "ask the AI for a financial health report" }
func (*healthCmd) Usage() string {
	return `cli health [-user <id|All>]

  Sends the last three months of totals, budgets and net worth to the AI model
  and prints its report.
`
}

func (p *healthCmd) SetFlags(f *flag.FlagSet) { p.register(f, loadConfig()) }

func (p *healthCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	model, err := newModel(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	ws, err := openWorkspace(ctx, &p.storageFlags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer ws.close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	md, err := assistant.HealthReport(ctx, model, ws.ledger.Snapshot(), ws.user(p.user), time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(os.Stdout, md)
	return subcommands.ExitSuccess
}
