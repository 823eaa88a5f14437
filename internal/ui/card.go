package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/session"
)

// RenderGauge draws a fact/opinion split bar of the given cell width.
func RenderGauge(fact, opinion, width int) string {
	if width < 2 {
		width = 2
	}
	total := fact + opinion
	if total <= 0 {
		total = 100
		fact = 50
	}
	factCells := fact * width / total
	if factCells > width {
		factCells = width
	}
	return GaugeFact.Render(strings.Repeat("█", factCells)) +
		GaugeOpinion.Render(strings.Repeat("█", width-factCells))
}

// RenderCard renders an analysis card, or its pending/unavailable notice.
func RenderCard(card session.AnalysisCard, labels session.Labels, width int) string {
	inner := width - 4
	if inner < 20 {
		inner = 20
	}
	body := lipgloss.NewStyle().Width(inner)

	if card.Pending || card.Unavailable {
		style := MetaItem
		if card.Unavailable {
			style = ErrorStyle.Padding(0)
		}
		return Card.Width(inner).Render(style.Render(card.Notice) + renderThread(card.Thread, inner))
	}

	var b strings.Builder
	badge := TierBadge[card.Tier].Render(card.TierLabel)
	b.WriteString(CardTitle.Render(card.Title) + " " + badge + "\n")
	fmt.Fprintf(&b, "%s %d%%  %s  %s %d%%\n",
		GaugeFact.Render(labels.Fact), card.FactRatio,
		RenderGauge(card.FactRatio, card.OpinionRatio, inner/2),
		GaugeOpinion.Render(labels.Opinion), card.OpinionRatio)

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(body.Render(CardLabel.Render(label+": ") + value))
		b.WriteString("\n")
	}
	field(labels.Field("Summary"), card.Summary)
	field(labels.Field("Claim"), card.StatedClaim)
	field(labels.Field("Context"), card.HiddenContext)
	field(labels.Field("Rating"), card.RatingLabel)
	field(labels.Field("Tone"), card.SentimentLabel)
	if len(card.Keywords) > 0 {
		field(labels.Field("Keywords"), "#"+strings.Join(card.Keywords, " #"))
	}
	for _, f := range card.Facts {
		line := "• " + f.Fact
		if f.Evidence != "" {
			line += MetaItem.Render("  ⟵ " + f.Evidence)
		}
		b.WriteString(body.Render(line))
		b.WriteString("\n")
	}
	field(labels.Field("Missing"), card.MissingViewpoints)
	field(labels.Field("Verify"), card.VerificationNeeded)

	return Card.Width(inner).Render(strings.TrimRight(b.String(), "\n") + renderThread(card.Thread, inner))
}

// renderThread renders chat turns below a card.
func renderThread(turns []insight.ChatTurn, width int) string {
	if len(turns) == 0 {
		return ""
	}
	body := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	b.WriteString("\n")
	for _, t := range turns {
		prefix := ChatUser.Render("Q ")
		if t.Role == insight.RoleAssistant {
			prefix = ChatAssistant.Render("A ")
		}
		b.WriteString("\n" + body.Render(prefix+t.Content))
	}
	return b.String()
}

// RenderComparison renders the side-by-side comparison panel.
func RenderComparison(p *session.ComparisonPanel, labels session.Labels, width int) string {
	inner := width - 4
	if inner < 30 {
		inner = 30
	}
	if p.Unavailable {
		return Card.Width(inner).Render(ErrorStyle.Padding(0).Render(p.Notice))
	}

	col := (inner - 3) / 2
	side := func(s session.SidePanel) string {
		lean := lipgloss.NewStyle().Foreground(LeanColor[s.Lean]).Bold(true)
		var b strings.Builder
		b.WriteString(CardTitle.Render(s.Title) + "\n")
		b.WriteString(MetaItem.Render(s.Source) + "\n")
		fmt.Fprintf(&b, "%s %s (%+d)\n", lean.Render(s.LeanLabel), s.StanceLabel, s.StanceScore)
		b.WriteString(RenderStance(s.StanceScore, col) + "\n")
		b.WriteString(s.Summary)
		return lipgloss.NewStyle().Width(col).Render(b.String())
	}

	var b strings.Builder
	if p.CoreDifference != "" {
		b.WriteString(lipgloss.NewStyle().Width(inner).Render(CardLabel.Render(labels.Field("Difference")+": ")+p.CoreDifference) + "\n\n")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, side(p.A), " │ ", side(p.B)))
	for _, k := range p.KeyPoints {
		b.WriteString("\n" + lipgloss.NewStyle().Width(inner).Render("• "+k))
	}
	return Card.Width(inner).Render(b.String())
}

// RenderStance places a marker on a left-to-right scale for a score in
// [-10, 10].
func RenderStance(score, width int) string {
	if width < 3 {
		width = 3
	}
	pos := (score + 10) * (width - 1) / 20
	pos = max(0, min(width-1, pos))
	return MetaItem.Render(strings.Repeat("─", pos)) + PickMark.Render("●") + MetaItem.Render(strings.Repeat("─", width-1-pos))
}
