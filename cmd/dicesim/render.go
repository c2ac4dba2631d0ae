package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/sim"
	"github.com/psychodicenamic/dicesim/internal/store"
)

var (
	accent = lipgloss.Color("#8BC34A")
	muted  = lipgloss.Color("#6B7280")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle    = lipgloss.NewStyle().Foreground(muted)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted).Padding(0, 1)
)

// table renders rows as left-aligned columns; the first row is the header.
func table(rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}
	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			style := lipgloss.NewStyle().Width(widths[i] + 2)
			if r == 0 {
				style = style.Inherit(headerStyle)
			}
			cells[i] = style.Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		if r < len(rows)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func pct(x float64) string {
	return fmt.Sprintf("%.2f%%", 100*x)
}

func renderStats(s *sim.Stats) string {
	title := fmt.Sprintf("%s vs %s", s.Players[0].Name, s.Players[1].Name)
	summary := fmt.Sprintf("%s trials, %s debates, %s mode, seed %d",
		humanize.Comma(s.Trials), humanize.Comma(s.Debates), s.Mode, s.Seed)
	if s.Cancelled {
		summary += " (cancelled)"
	}

	rows := [][]string{{"", s.Players[0].Name, s.Players[1].Name}}
	add := func(label string, f func(p int) string) {
		rows = append(rows, []string{label, f(0), f(1)})
	}
	add("wins", func(p int) string { return humanize.Comma(s.Players[p].Wins) })
	add("win rate", func(p int) string {
		lo, hi := s.WinRateInterval(p, 1.96)
		return fmt.Sprintf("%s  [%s, %s]", pct(s.WinRate(p)), pct(lo), pct(hi))
	})
	add("mean damage", func(p int) string {
		return fmt.Sprintf("%.2f ± %.2f", s.MeanDamage(p), s.DamageStdDev(p))
	})
	add("fumble rate", func(p int) string { return pct(s.FumbleRate(p)) })
	add("perfect banks", func(p int) string { return humanize.Comma(s.Players[p].PerfectBanks) })
	add("echo summoned", func(p int) string { return humanize.Comma(s.Players[p].EchoSummoned) })
	add("healing", func(p int) string { return humanize.Comma(s.Players[p].Healing) })
	if s.Mode == sim.ModeMatch.String() {
		add("knockouts", func(p int) string { return humanize.Comma(s.Players[p].Knockouts) })
	}
	for _, k := range game.AllKinds {
		name := k.String()
		add(strings.ToLower(name)+" banked", func(p int) string { return humanize.Comma(s.Players[p].Kinds[name]) })
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		dimStyle.Render(summary),
		"",
		table(rows),
		"",
		fmt.Sprintf("ties: %s (%s)", humanize.Comma(s.Ties), pct(s.TieRate())),
	)
	return boxStyle.Render(body)
}

func renderStandings(res *sim.TournamentResult) string {
	rows := [][]string{{"#", "archetype", "wins", "losses", "ties", "win rate", "net damage"}}
	for i, st := range res.Standings {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			st.Name,
			humanize.Comma(st.Wins),
			humanize.Comma(st.Losses),
			humanize.Comma(st.Ties),
			pct(st.WinRate),
			humanize.Comma(st.NetDiff),
		})
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Tournament"),
		dimStyle.Render(fmt.Sprintf("%d pairings, %s trials each, seed %d",
			len(res.Pairings), humanize.Comma(int64(res.Trials)), res.Seed)),
		"",
		table(rows),
	))
}

func renderDieReports(reports []sim.DieReport) string {
	rows := [][]string{{"#", "die", "faces", "win", "tie", "loss", "net damage"}}
	for i, r := range reports {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			r.Name,
			fmt.Sprint(r.Faces),
			pct(r.WinRate),
			pct(r.TieRate),
			pct(r.LossRate),
			fmt.Sprintf("%+.2f", r.MeanNetDamage),
		})
	}
	mode := "full debates"
	if len(reports) > 0 && reports[0].Pure {
		mode = "single rolls"
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Special dice vs Tabula Rasa"),
		dimStyle.Render(mode),
		"",
		table(rows),
	))
}

func renderDetection(det game.Detection) string {
	var lines []string
	lines = append(lines, titleStyle.Render("Roll "+fmt.Sprint(det.Roll.Faces())))
	if det.Fumble {
		lines = append(lines, "fumble: nothing to bank")
	}
	for i, in := range det.Offers() {
		line := fmt.Sprintf("%d) %s", i+1, in)
		if in.Echo > 0 {
			line += dimStyle.Render(fmt.Sprintf("  +%d echo", in.Echo))
		}
		lines = append(lines, line)
	}
	if res := det.Residual.Faces(); len(res) > 0 {
		lines = append(lines, dimStyle.Render("left over: "+fmt.Sprint(res)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderArchetypes(archs []*game.Archetype, r game.Rules) string {
	rows := [][]string{{"#", "archetype", "health", "dice", "triggers"}}
	for i, a := range archs {
		var dice []string
		for _, d := range a.Dice {
			dice = append(dice, fmt.Sprint(d.Faces))
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			a.Name,
			fmt.Sprint(a.Health(r)),
			strings.Join(dice, " "),
			strings.Join(a.Triggers, ", "),
		})
	}
	return table(rows)
}

func renderRuns(runs []store.Run) string {
	rows := [][]string{{"id", "kind", "when", "a", "b", "trials", "win a", "win b"}}
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Kind,
			humanize.Time(run.CreatedAt),
			run.A,
			run.B,
			humanize.Comma(run.Trials),
			pct(run.WinRateA),
			pct(run.WinRateB),
		})
	}
	return table(rows)
}

// progressBar returns a progress callback that redraws a one-line bar on w.
// Workers call it concurrently.
func progressBar(w io.Writer) sim.ProgressFunc {
	var mu sync.Mutex
	const width = 30
	return func(done, total int64) {
		mu.Lock()
		defer mu.Unlock()
		filled := int(int64(width) * done / max(total, 1))
		fmt.Fprintf(w, "\r[%s%s] %s/%s",
			strings.Repeat("#", filled), strings.Repeat(".", width-filled),
			humanize.Comma(done), humanize.Comma(total))
		if done == total {
			fmt.Fprintln(w)
		}
	}
}
