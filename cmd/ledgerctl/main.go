// ledgerctl is the operator tool for the trades ledger: recording manual
// deposits and withdrawals, retagging rows, and checking the P&L figures
// without going through the dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jeongwoo-hong/jwcoin/config"
	"github.com/jeongwoo-hong/jwcoin/internal/analysis"
	"github.com/jeongwoo-hong/jwcoin/internal/domain"
	"github.com/jeongwoo-hong/jwcoin/internal/services/audit"
	"github.com/jeongwoo-hong/jwcoin/internal/storage/trades"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warning   = lipgloss.AdaptiveColor{Light: "#D2A106", Dark: "#D29922"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	okStyle   = lipgloss.NewStyle().Foreground(special).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(warning)
)

func main() {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Get(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	store, err := trades.New(cfg.DBPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to open trades database:", err)
		os.Exit(1)
	}
	defer store.Close()

	fmt.Println(headerStyle.Render("JWCOIN LEDGER"))

	for {
		var action string
		err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("What do you want to do?").
					Options(
						huh.NewOption("List recent trades", "list"),
						huh.NewOption("Show P&L summary", "pnl"),
						huh.NewOption("Record deposit", "deposit"),
						huh.NewOption("Record withdrawal", "withdraw"),
						huh.NewOption("Retag a row", "retag"),
						huh.NewOption("Delete a row", "delete"),
						huh.NewOption("Audit cash movements", "audit"),
						huh.NewOption("Quit", "quit"),
					).
					Value(&action),
			),
		).Run()
		if err != nil {
			return
		}

		switch action {
		case "list":
			err = listTrades(store)
		case "pnl":
			err = showPnL(store, cfg.Analysis)
		case "deposit":
			err = recordCashMovement(store, true)
		case "withdraw":
			err = recordCashMovement(store, false)
		case "retag":
			err = retagRow(store)
		case "delete":
			err = deleteRow(store)
		case "audit":
			err = runAudit(store, cfg.Analysis)
		case "quit":
			return
		}
		if err != nil {
			fmt.Println(warnStyle.Render("error: " + err.Error()))
		}
	}
}

func listTrades(store *trades.Store) error {
	snapshots, err := store.List()
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println(warnStyle.Render("no trades recorded yet"))
		return nil
	}

	start := len(snapshots) - 20
	if start < 0 {
		start = 0
	}
	for _, snap := range snapshots[start:] {
		tag := ""
		if snap.ManualEntry {
			tag = " [manual]"
		}
		fmt.Printf("#%-4d %s  %-10s %-10s base=%s cash=%s price=%s%s\n",
			snap.ID, snap.Timestamp.Format("2006-01-02 15:04"),
			snap.Decision, snap.TxType,
			snap.BaseBalance, snap.CashBalance.StringFixed(0),
			snap.LastPrice.StringFixed(0), tag)
	}
	return nil
}

func showPnL(store *trades.Store, cfg analysis.Config) error {
	snapshots, err := store.List()
	if err != nil {
		return err
	}

	result, err := analysis.Run(snapshots, cfg)
	if err != nil {
		return err
	}
	if len(result.Entries) == 0 {
		fmt.Println(warnStyle.Render("no usable rows to analyze"))
		return nil
	}

	last := result.Entries[len(result.Entries)-1]
	fmt.Println(okStyle.Render("P&L summary"))
	fmt.Printf("  bought:         %s\n", last.CumulativeBought.StringFixed(0))
	fmt.Printf("  sold:           %s\n", last.CumulativeSold.StringFixed(0))
	fmt.Printf("  fees:           %s\n", last.CumulativeFees.StringFixed(0))
	fmt.Printf("  average cost:   %s\n", last.AverageCost.StringFixed(0))
	fmt.Printf("  realized:       %s\n", last.RealizedProfit.StringFixed(0))
	if last.UnrealizedKnown {
		fmt.Printf("  unrealized:     %s\n", last.UnrealizedProfit.StringFixed(0))
	} else {
		fmt.Printf("  unrealized:     unknown (no usable price or basis)\n")
	}
	fmt.Printf("  total:          %s\n", last.TotalProfit.StringFixed(0))
	fmt.Printf("  net investment: %s\n", last.NetInvestment.StringFixed(0))
	fmt.Printf("  return rate:    %s%%\n", last.ReturnRate.StringFixed(2))

	for _, excluded := range result.Excluded {
		fmt.Println(warnStyle.Render(
			fmt.Sprintf("  excluded row #%d: %s", excluded.SnapshotID, excluded.Reason)))
	}
	return nil
}

func recordCashMovement(store *trades.Store, deposit bool) error {
	title := "Withdrawal amount (KRW)"
	if deposit {
		title = "Deposit amount (KRW)"
	}

	var amountStr, description string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Validate(func(s string) error {
					amount, err := decimal.NewFromString(s)
					if err != nil {
						return fmt.Errorf("not a number")
					}
					if !amount.IsPositive() {
						return fmt.Errorf("amount must be positive")
					}
					return nil
				}).
				Value(&amountStr),
			huh.NewInput().
				Title("Description (optional)").
				Value(&description),
		),
	).Run()
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return err
	}

	var snap domain.Snapshot
	if deposit {
		snap, err = store.AddDeposit(amount, time.Now().UTC(), description)
	} else {
		snap, err = store.AddWithdraw(amount, time.Now().UTC(), description)
	}
	if err != nil {
		return err
	}

	fmt.Println(okStyle.Render(fmt.Sprintf("recorded as row #%d (cash now %s)",
		snap.ID, snap.CashBalance.StringFixed(0))))
	return nil
}

func retagRow(store *trades.Store) error {
	id, err := askRowID()
	if err != nil {
		return err
	}

	var txType string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("New transaction type").
				Options(
					huh.NewOption("trade", string(domain.TxTypeTrade)),
					huh.NewOption("deposit", string(domain.TxTypeDeposit)),
					huh.NewOption("withdrawal", string(domain.TxTypeWithdrawal)),
					huh.NewOption("fee", string(domain.TxTypeFee)),
					huh.NewOption("other", string(domain.TxTypeOther)),
				).
				Value(&txType),
		),
	).Run()
	if err != nil {
		return err
	}

	if err := store.UpdateTxType(id, domain.TxType(txType)); err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("row #%d retagged as %s", id, txType)))
	return nil
}

func deleteRow(store *trades.Store) error {
	id, err := askRowID()
	if err != nil {
		return err
	}

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete row #%d? This cannot be undone.", id)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return nil
	}

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("row #%d deleted", id)))
	return nil
}

func runAudit(store *trades.Store, cfg analysis.Config) error {
	snapshots, err := store.List()
	if err != nil {
		return err
	}

	findings := audit.NewScanner(cfg, zap.NewNop()).Scan(snapshots)
	if len(findings) == 0 {
		fmt.Println(okStyle.Render("no unexplained cash movements"))
		return nil
	}

	for _, f := range findings {
		fmt.Println(warnStyle.Render(fmt.Sprintf(
			"row #%d at %s: cash moved by %s with no trade, consider retagging as %s",
			f.SnapshotID, f.Timestamp, f.CashDelta, f.Suggestion)))
	}
	return nil
}

func askRowID() (int64, error) {
	var idStr string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Row id").
				Validate(func(s string) error {
					if _, err := strconv.ParseInt(s, 10, 64); err != nil {
						return fmt.Errorf("not a valid id")
					}
					return nil
				}).
				Value(&idStr),
		),
	).Run()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(idStr, 10, 64)
}
