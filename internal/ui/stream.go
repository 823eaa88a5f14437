package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/newslens/internal/session"
)

const (
	sourceColWidth = 12
	ageColWidth    = 10
)

// RenderTabs renders the category selector.
func RenderTabs(categories []string, active int, width int) string {
	tabs := make([]string, 0, len(categories))
	for i, name := range categories {
		if i == active {
			tabs = append(tabs, TabActive.Render(name))
		} else {
			tabs = append(tabs, TabInactive.Render(name))
		}
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(tabs, " "))
}

// RenderStream renders the article list, scrolled so the cursor is visible.
func RenderStream(rows []session.ArticleRow, cursor int, width, height int) string {
	if len(rows) == 0 {
		return HelpStyle.Render("No articles. Press 'r' to refresh or tab to switch category.")
	}
	if height < 1 {
		height = 1
	}

	offset := calcScrollOffset(len(rows), cursor, height)
	var b strings.Builder
	for i := offset; i < len(rows) && i < offset+height; i++ {
		b.WriteString(renderRow(rows[i], i == cursor, width))
		b.WriteString("\n")
	}
	return b.String()
}

// calcScrollOffset returns the first visible row index that keeps cursor
// inside a viewport of height rows.
func calcScrollOffset(total, cursor, height int) int {
	if total == 0 || cursor < 0 {
		return 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	if cursor >= height {
		return cursor - height + 1
	}
	return 0
}

// renderRow renders one article: pick mark, source column, title, age.
// Widths are measured in terminal cells so CJK titles line up.
func renderRow(row session.ArticleRow, selected bool, width int) string {
	marks := rowMarks(row)
	mark := marks
	if row.Picked {
		mark = PickMark.Render(marks)
	}

	source := runewidth.Truncate(row.Source, sourceColWidth, "…")
	source = runewidth.FillRight(source, sourceColWidth)
	sourceText := lipgloss.NewStyle().Foreground(sourcePaletteColor(row.Source)).Render(source)

	age := runewidth.FillLeft(runewidth.Truncate(row.Age, ageColWidth, ""), ageColWidth)

	titleWidth := width - runewidth.StringWidth(marks) - sourceColWidth - ageColWidth - 4
	if titleWidth < 10 {
		titleWidth = 10
	}
	title := runewidth.Truncate(row.Title, titleWidth, "…")
	pad := titleWidth - runewidth.StringWidth(title)
	if pad < 0 {
		pad = 0
	}

	if selected {
		plain := fmt.Sprintf("%s %s %s%s %s", marks, source, title, strings.Repeat(" ", pad), age)
		return SelectedItem.Width(width).Padding(0).Render(plain)
	}
	return mark + " " + sourceText + " " + NormalItem.Padding(0).Render(title) + strings.Repeat(" ", pad) + " " + MetaItem.Render(age)
}

// rowMarks is the pick/expand prefix.
func rowMarks(row session.ArticleRow) string {
	switch {
	case row.Picked && row.Expanded:
		return "◆▾"
	case row.Picked:
		return "◆ "
	case row.Expanded:
		return " ▾"
	default:
		return "  "
	}
}

func sourcePaletteColor(name string) lipgloss.Color {
	palette := []lipgloss.Color{
		lipgloss.Color("62"),
		lipgloss.Color("69"),
		lipgloss.Color("39"),
		lipgloss.Color("141"),
		lipgloss.Color("208"),
		lipgloss.Color("75"),
		lipgloss.Color("99"),
		lipgloss.Color("212"),
	}
	sum := 0
	for i := 0; i < len(name); i++ {
		sum += int(name[i])
	}
	return palette[sum%len(palette)]
}

// RenderStatusBar renders the bottom bar: position or activity on the
// left, key hints on the right.
func RenderStatusBar(cursor, total int, width int, activity string, chatting bool) string {
	var left string
	switch {
	case activity != "":
		left = " " + activity + " "
	case total == 0:
		left = " 0/0 "
	default:
		left = fmt.Sprintf(" %d/%d ", cursor+1, total)
	}

	var keys []string
	if chatting {
		keys = []string{
			StatusBarKey.Render("Enter") + StatusBarText.Render(":send"),
			StatusBarKey.Render("Esc") + StatusBarText.Render(":cancel"),
		}
	} else {
		keys = []string{
			StatusBarKey.Render("tab") + StatusBarText.Render(":topic"),
			StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
			StatusBarKey.Render("Enter") + StatusBarText.Render(":analyze"),
			StatusBarKey.Render("c") + StatusBarText.Render(":ask"),
			StatusBarKey.Render("space") + StatusBarText.Render(":pick"),
			StatusBarKey.Render("x") + StatusBarText.Render(":compare"),
			StatusBarKey.Render("L") + StatusBarText.Render(":lang"),
			StatusBarKey.Render("r") + StatusBarText.Render(":refresh"),
			StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
		}
	}
	keyHints := strings.Join(keys, " ")

	padding := width - lipgloss.Width(left) - lipgloss.Width(keyHints) - 2
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(width).Render(left + strings.Repeat(" ", padding) + keyHints)
}
