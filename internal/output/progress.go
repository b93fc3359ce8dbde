package output

import (
	"fmt"
	"strings"
)

// ProgressBar renders progress toward a target hour count.
// Example: "██░░░░░░░░░░░░░░░░░░ 11.75/510h (2.3%)"
func ProgressBar(hours, target float64, width int) string {
	if width <= 0 {
		width = 20
	}
	pct := 0.0
	if target > 0 {
		pct = hours / target * 100
	}
	filled := min(max(int(pct/100*float64(width)), 0), width)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := StyleError
	switch {
	case pct >= 100:
		style = StyleSuccess
	case pct >= 50:
		style = StyleWarning
	}

	return fmt.Sprintf("%s %s", style.Render(bar),
		StyleMuted.Render(fmt.Sprintf("%.2f/%.0fh (%.1f%%)", hours, target, min(pct, 100))))
}

// Confidence renders a confidence score coloured by tier.
func Confidence(c float64) string {
	s := fmt.Sprintf("%.2f", c)
	switch {
	case c >= 0.7:
		return StyleSuccess.Render(s)
	case c >= 0.35:
		return StyleWarning.Render(s)
	default:
		return StyleError.Render(s)
	}
}

// Hours formats an hour value.
func Hours(h float64) string {
	return fmt.Sprintf("%.2fh", h)
}

// TrendArrow renders a delta with an arrow. improved selects the colour;
// a zero delta renders as a dash.
func TrendArrow(delta float64, improved bool) string {
	if delta == 0 {
		return StyleMuted.Render("─")
	}

	var arrow string
	if delta > 0 {
		arrow = fmt.Sprintf("▲ +%.2f", delta)
	} else {
		arrow = fmt.Sprintf("▼ %.2f", delta)
	}

	if improved {
		return StyleSuccess.Render(arrow)
	}
	return StyleError.Render(arrow)
}

// Section returns a styled section header with a horizontal rule.
func Section(title string) string {
	header := StyleHeader.Render(title)
	rule := StyleMuted.Render(strings.Repeat("─", 66))
	return fmt.Sprintf("\n %s\n %s", header, rule)
}

// KeyValue renders one aligned summary line.
func KeyValue(label, value string) string {
	return fmt.Sprintf(" %s%s", StyleLabel.Render(label), StyleValue.Render(value))
}
