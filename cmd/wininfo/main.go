// Command wininfo prints the properties of the analysis/synthesis windows
// used by the pitch shifter.
//
// Usage:
//
//	wininfo [flags] [window-name ...]
//
// Without arguments it prints info for all supported window types.
//
// Examples:
//
//	wininfo hann
//	wininfo -size 2048 bartlett hamming
//	wininfo -symmetric
//	wininfo -list
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-autotune/dsp/effects/pitch"
	"github.com/cwbudde/algo-autotune/dsp/window"
)

func main() {
	size := flag.Int("size", pitch.DefaultFFTSize, "window length in samples")
	list := flag.Bool("list", false, "list available window names")
	symmetric := flag.Bool("symmetric", false, "use the symmetric form instead of the periodic (FFT) form")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: wininfo [flags] [window-name ...]\n\n")
		fmt.Fprintf(os.Stderr, "Prints window sums, ENBW, overlap-add ripple and the pitch shifter's\n")
		fmt.Fprintf(os.Stderr, "output scale for each supported hop divisor.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *list {
		for _, t := range window.Types() {
			fmt.Println(t)
		}

		return
	}

	types, err := resolveTypes(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *size < 2 {
		fmt.Fprintf(os.Stderr, "error: size must be >= 2: %d\n", *size)
		os.Exit(1)
	}

	if err := printAnalysis(os.Stdout, types, *size, !*symmetric); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func resolveTypes(names []string) ([]window.Type, error) {
	if len(names) == 0 {
		return window.Types(), nil
	}

	out := make([]window.Type, 0, len(names))
	for _, name := range names {
		t, err := window.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("%w (use -list to see available)", err)
		}

		out = append(out, t)
	}

	return out, nil
}

// row is one window analysed at one hop divisor.
type row struct {
	name    string
	size    int
	divisor int
	sum     float64
	enbw    float64
	ripple  float64
	scale   float64
}

func analyze(t window.Type, size int, periodic bool) ([]row, error) {
	var opts []window.Option
	if periodic {
		opts = append(opts, window.WithPeriodic())
	}

	coeffs := window.Generate(t, size, opts...)
	sum := window.Sum(coeffs)

	enbw, err := window.EquivalentNoiseBandwidth(coeffs)
	if err != nil {
		return nil, err
	}

	// The shifter applies the square root of the window on analysis and
	// synthesis, so overlap-add sees the window itself.
	rows := make([]row, 0, len(pitch.HopDivisors()))
	for _, divisor := range pitch.HopDivisors() {
		hop := size / divisor
		if hop < 1 {
			continue
		}

		ripple, err := window.OverlapAddRipple(coeffs, hop)
		if err != nil {
			return nil, err
		}

		scale := 0.0
		if sum > 0 {
			scale = float64(size) / (float64(divisor) * sum)
		}

		rows = append(rows, row{
			name:    t.String(),
			size:    size,
			divisor: divisor,
			sum:     sum,
			enbw:    enbw,
			ripple:  ripple,
			scale:   scale,
		})
	}

	return rows, nil
}

func printAnalysis(w io.Writer, types []window.Type, size int, periodic bool) error {
	form := "periodic"
	if !periodic {
		form = "symmetric"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintf(tw, "Window\tForm\tSize\tHop\tSum\tENBW [bins]\tOLA ripple\tOutput scale\n"); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(tw, "%s\n", strings.Repeat("-\t", 8)); err != nil {
		return err
	}

	for _, t := range types {
		rows, err := analyze(t, size, periodic)
		if err != nil {
			return err
		}

		for _, r := range rows {
			if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%d (1/%d)\t%.4f\t%.4f\t%.2e\t%.6f\n",
				r.name, form, r.size, r.size/r.divisor, r.divisor, r.sum, r.enbw, r.ripple, r.scale); err != nil {
				return err
			}
		}
	}

	return tw.Flush()
}
