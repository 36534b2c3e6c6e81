package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// Console implementa ports.Notifier escribiendo en un terminal. Se usa en modo
// dry-run: mismas alertas, sin credenciales de Telegram.
type Console struct {
	out    io.Writer
	format Formatter
	now    func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(format Formatter) *Console {
	return NewConsoleWriter(os.Stdout, format)
}

// NewConsoleWriter crea un notificador sobre un writer arbitrario (tests).
func NewConsoleWriter(w io.Writer, format Formatter) *Console {
	return &Console{out: w, format: format, now: time.Now}
}

// NotifySignal imprime una línea por señal.
func (c *Console) NotifySignal(_ context.Context, s domain.Signal) error {
	fmt.Fprintf(c.out, "[%s] %s | %s | %s @ %.1f%% | $%s by %s [%s] | x%d | kelly $%.2f\n",
		s.Time().Format("15:04:05"),
		c.format.Confidence(s),
		truncate(s.MarketQuestion, 50),
		s.Outcome,
		s.MarketProbability*100,
		money(s.EstimatedUSD),
		s.WalletUsername,
		s.WalletTier.Label(),
		s.ConvergenceCount,
		s.Sizing.StakeUSD,
	)
	return nil
}

// NotifyWatchlist imprime la tabla de wallets seguidas.
func (c *Console) NotifyWatchlist(_ context.Context, wallets []domain.Wallet) error {
	fmt.Fprintf(c.out, "\n[%s] watchlist: %d wallets\n", c.now().Format("15:04:05"), len(wallets))
	if len(wallets) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Tier", "User", "Address", "WR", "ROI", "PnL all", "Windows", "Sample")
	for _, w := range wallets {
		table.Append(
			w.Tier.Label(),
			truncate(w.Username, 20),
			shortAddress(w.Address),
			fmt.Sprintf("%.0f%%", w.WinRate*100),
			fmt.Sprintf("%.1f%%", w.ROIPercent),
			"$"+money(w.PnLAll),
			fmt.Sprintf("%d/4", w.ProfitableWindows),
			fmt.Sprintf("%d", w.ClosedPositions),
		)
	}
	return table.Render()
}

// NotifyScan imprime la tabla del scanner.
func (c *Console) NotifyScan(_ context.Context, picks []domain.ScanPick) error {
	now := c.now().Format("15:04:05")
	if len(picks) == 0 {
		fmt.Fprintf(c.out, "[%s] scanner: no markets passed filters\n", now)
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] scanner: %d picks\n", now, len(picks))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Bet", "Prob", "Price", "ROI", "Volume", "Liquidity", "Kelly")
	for i, p := range picks {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(p.Market.Question, 45),
			p.Outcome,
			fmt.Sprintf("%.1f%%", p.ProbabilityPct),
			fmt.Sprintf("$%.3f", p.Price),
			fmt.Sprintf("+%.1f%%", p.ROIPercent),
			"$"+money(p.Market.Volume),
			"$"+money(p.Market.Liquidity),
			fmt.Sprintf("$%.2f", p.Sizing.StakeUSD),
		)
	}
	return table.Render()
}

// NotifyStartup imprime el banner de arranque.
func (c *Console) NotifyStartup(_ context.Context, info domain.StartupInfo) error {
	fmt.Fprintf(c.out, "[%s] tipster online (dry-run) | scanner: %s | smart money: %s\n",
		info.StartedAt.Format("15:04:05"),
		onOff(info.ScannerEnabled),
		onOff(info.SmartMoneyEnabled),
	)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func shortAddress(addr string) string {
	if len(addr) < 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
