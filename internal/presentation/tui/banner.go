package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`                _      __ _`, "#38bdf8"},
	{` __      _____| |__  / _| | _____      __`, "#22d3ee"},
	{` \ \ /\ / / _ \ '_ \| |_| |/ _ \ \ /\ / /`, "#2dd4bf"},
	{`  \ V  V /  __/ |_) |  _| | (_) \ V  V /`, "#34d399"},
	{`   \_/\_/ \___|_.__/|_| |_|\___/ \_/\_/`, "#4ade80"},
}

// PrintBanner writes the webflow banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("   v"+version).Faint())
	fmt.Fprintln(w)
}
