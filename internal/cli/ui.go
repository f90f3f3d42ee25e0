package cli

import (
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// stdout receives every report line. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

var (
	colorAccent  = lipgloss.Color("36")  // teal
	colorGood    = lipgloss.Color("35")  // green
	colorWarn    = lipgloss.Color("220") // amber
	colorBad     = lipgloss.Color("167") // soft red
	colorCommand = lipgloss.Color("75")  // light blue
	colorValue   = lipgloss.Color("255")
	colorLabel   = lipgloss.Color("245")
	colorDim     = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorValue)
	// StyleNumber right-aligns, so callers set a width for columns.
	StyleNumber  = lipgloss.NewStyle().Foreground(colorAccent).Align(lipgloss.Right)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGood)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleLabel       = lipgloss.NewStyle().Foreground(colorLabel)
	styleCommand     = lipgloss.NewStyle().Foreground(colorCommand)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// status is one kind of report line: an icon and how to draw it.
type status struct {
	icon     string
	iconFg   lipgloss.Color
	styleMsg bool
}

var (
	statusSuccess = status{iconSuccess, colorGood, false}
	statusError   = status{iconError, colorBad, false}
	statusWarning = status{iconWarning, colorWarn, true}
	statusInfo    = status{iconInfo, colorLabel, false}
)

func (s status) print(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if s.styleMsg {
		msg = lipgloss.NewStyle().Foreground(s.iconFg).Render(msg)
	}
	fmt.Fprintln(stdout, lipgloss.NewStyle().Foreground(s.iconFg).Render(s.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { statusSuccess.print(format, args...) }
func printError(format string, args ...any)   { statusError.print(format, args...) }
func printWarning(format string, args ...any) { statusWarning.print(format, args...) }
func printInfo(format string, args ...any)    { statusInfo.print(format, args...) }

// printDetail prints an indented, dimmed line under the previous status.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile announces a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Fprintln(stdout, styleLabel.Width(12).Render(key)+" "+StyleValue.Render(value))
}

// printStats prints problem size and whether the response came from the
// cache, separated by dots.
func printStats(cellCount, netCount, iterations int, cached bool) {
	parts := []string{
		fmt.Sprintf("%d cells", cellCount),
		fmt.Sprintf("%d nets", netCount),
	}
	if iterations > 0 {
		parts = append(parts, fmt.Sprintf("%d iterations", iterations))
	}
	for i, p := range parts {
		parts[i] = StyleDim.Render(p)
	}
	origin := styleLabel.Render(iconFresh)
	if cached {
		origin = StyleSuccess.Render(iconCached)
	}
	parts = append(parts, origin)
	fmt.Fprintln(stdout, "  "+strings.Join(parts, StyleDim.Render(" · ")))
}

// printMetrics prints metrics as aligned rows in key order.
func printMetrics(metrics map[string]float64) {
	for _, k := range slices.Sorted(maps.Keys(metrics)) {
		label := styleLabel.Width(20).Render(strings.ReplaceAll(k, "_", " "))
		fmt.Fprintln(stdout, "  "+label+" "+StyleNumber.Width(14).Render(formatMetric(metrics[k])))
	}
}

// formatMetric prints integral values without decimals.
func formatMetric(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() { fmt.Fprintln(stdout) }
