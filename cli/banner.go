package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	bannerDefaultWidth = 60
	fieldLabelWidth    = 20
	chartBarMax        = 30
)

// PrintBanner renders a box-drawing banner around a title using the default width.
func PrintBanner(title string) {
	PrintBannerWidth(title, bannerDefaultWidth)
}

// PrintBannerWidth renders a box-drawing banner around a title.
// The banner grows when the title does not fit.
func PrintBannerWidth(title string, width int) {
	fmt.Print(bannerString(title, width))
}

func bannerString(title string, width int) string {
	if width < 10 {
		width = bannerDefaultWidth
	}

	inner := width - 2
	if n := utf8.RuneCountInString(title) + 2; n > inner {
		inner = n
	}

	edge := strings.Repeat("═", inner)
	var b strings.Builder
	fmt.Fprintf(&b, "╔%s╗\n", edge)
	fmt.Fprintf(&b, "║%s║\n", padCenter(title, inner))
	fmt.Fprintf(&b, "╚%s╝\n", edge)
	return b.String()
}

func padCenter(text string, width int) string {
	n := utf8.RuneCountInString(text)
	if n >= width {
		return string([]rune(text)[:width])
	}
	pad := width - n
	left := pad / 2
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", pad-left)
}

// printField prints an aligned "label: value" line
func printField(label string, value any) {
	fmt.Println(fieldLine(label, value))
}

func fieldLine(label string, value any) string {
	return fmt.Sprintf("  %-*s %v", fieldLabelWidth, label+":", value)
}

// pagesBar draws a horizontal bar for the 7-day chart
func pagesBar(pages int) string {
	if pages <= 0 {
		return "·"
	}
	return strings.Repeat("█", min(pages, chartBarMax))
}
