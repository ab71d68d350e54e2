package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

const highConfidenceMarker = "●"

func renderStatus(v powercurve.ViewState, st styles) string {
	switch v.Status {
	case powercurve.StatusLoading:
		return st.help.Render("Loading power curve...")
	case powercurve.StatusError:
		return st.error.Render(v.ErrorMessage)
	case powercurve.StatusEmpty:
		return st.empty.Render("No data available for the selected range.")
	case powercurve.StatusReady:
		return st.ready.Render(fmt.Sprintf("%d points, %d high confidence",
			len(v.Series), v.Series.HighConfidenceCount()))
	default:
		return ""
	}
}

// renderStatistics lays the summary out as cards. Missing values show as n/a.
func renderStatistics(stats *powercurve.Statistics, st styles) string {
	if stats == nil {
		return ""
	}

	cards := []string{
		statCard(st, "Avg wind speed", floatOrNA(stats.AvgWindSpeed, "%.2f m/s")),
		statCard(st, "Wind speed range", rangeOrNA(stats.MinWindSpeed, stats.MaxWindSpeed, "%.1f-%.1f m/s")),
		statCard(st, "Avg power", floatOrNA(stats.AvgPower, "%.2f kW")),
		statCard(st, "Max power", floatOrNA(stats.MaxPower, "%.2f kW")),
		statCard(st, "Total energy", floatOrNA(stats.TotalEnergy, "%.0f kWh")),
		statCard(st, "Readings", intOrNA(stats.Count)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func statCard(st styles, label, value string) string {
	return st.card.Render(lipgloss.JoinVertical(lipgloss.Left,
		st.label.Render(label),
		st.value.Render(value),
	))
}

func floatOrNA(v *float64, format string) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *v)
}

func rangeOrNA(lo, hi *float64, format string) string {
	if lo == nil || hi == nil {
		return "n/a"
	}
	return fmt.Sprintf(format, *lo, *hi)
}

func intOrNA(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}

// renderSeries prints at most maxRows points in API order.
func renderSeries(series powercurve.Series, maxRows int, st styles) string {
	if len(series) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(st.label.Render(fmt.Sprintf("  %10s %12s %10s", "wind (m/s)", "power (kW)", "readings")))

	shown := series
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for _, p := range shown {
		marker := " "
		if p.Confidence == powercurve.ConfidenceHigh {
			marker = st.high.Render(highConfidenceMarker)
		}
		b.WriteString(fmt.Sprintf("\n%s %10.2f %12.2f %10d", marker, p.WindSpeed, p.Power, p.ReadingCount))
	}
	if rest := len(series) - len(shown); rest > 0 {
		b.WriteString("\n" + st.help.Render(fmt.Sprintf("... %d more points", rest)))
	}

	b.WriteString("\n" + st.help.Render(highConfidenceMarker+" more than 100 readings"))
	return b.String()
}

func turbineLabel(id int64, catalog []powercurve.TurbineSummary) string {
	if id == 0 {
		return "none"
	}
	for _, t := range catalog {
		if t.ID == id {
			return fmt.Sprintf("%s (%d readings)", t.Name, t.ReadingCount)
		}
	}
	return fmt.Sprintf("Turbine %d", id)
}
