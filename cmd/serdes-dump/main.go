// serdes-dump reads a wire-format stream and prints the decoded value as
// an indented tree, optionally logging the header version and the decode
// totals (tags consumed, composites materialized, bytes consumed); it does
// not log individual tags. It exists to
// make the codec's output inspectable during development; it is not part
// of the core library's contract.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/addaleax/serdes"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "serdes-dump: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var verbose bool
	var maxDepth int

	flagSet := pflag.NewFlagSet("serdes-dump", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log the header version and decode totals")
	flagSet.IntVar(&maxDepth, "max-depth", 0, "stop descending into composites past this depth (0: unlimited)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	logger := zap.NewNop()
	if verbose {
		built, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = built
	}
	defer logger.Sync()

	var data []byte
	switch flagSet.NArg() {
	case 0:
		read, err := readAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		data = read
	case 1:
		read, err := os.ReadFile(flagSet.Arg(0))
		if err != nil {
			return fmt.Errorf("reading %s: %w", flagSet.Arg(0), err)
		}
		data = read
	default:
		return fmt.Errorf("usage: serdes-dump [flags] [file]")
	}

	decoder := serdes.NewDecoder(data)
	if err := decoder.ReadHeader(); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	logger.Debug("header read", zap.Int("wire_format_version", decoder.GetWireFormatVersion()))

	value, err := decoder.ReadValue()
	if err != nil {
		return fmt.Errorf("reading value: %w", err)
	}

	stats := decoder.Stats()
	logger.Debug("decode complete",
		zap.Int("tags_consumed", stats.TagsConsumed),
		zap.Int("composites_materialized", stats.CompositesMaterialized),
		zap.Int("bytes_consumed", stats.BytesConsumed),
	)

	printTree(os.Stdout, value, 0, maxDepth, make(map[serdes.Value]bool))
	return nil
}

func readAll(f *os.File) ([]byte, error) {
	var out []byte
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
	}
}

// printTree renders v as an indented tree to w. Composites already seen on
// the current path are printed as "<cycle>" rather than recursed into
// again; maxDepth (0 means unlimited) caps how deep the tree descends.
func printTree(w *os.File, v serdes.Value, depth, maxDepth int, seen map[serdes.Value]bool) {
	indent := func(extra int) string {
		out := ""
		for i := 0; i < depth+extra; i++ {
			out += "  "
		}
		return out
	}

	if maxDepth > 0 && depth > maxDepth {
		fmt.Fprintf(w, "%s...\n", indent(0))
		return
	}

	switch x := v.(type) {
	case nil:
		fmt.Fprintf(w, "%snull\n", indent(0))
	case bool, int32, uint32, float64, string:
		fmt.Fprintf(w, "%s%#v\n", indent(0), x)
	case *serdes.Record:
		if seen[v] {
			fmt.Fprintf(w, "%s<cycle>\n", indent(0))
			return
		}
		seen[v] = true
		fmt.Fprintf(w, "%sRecord {\n", indent(0))
		for i, key := range x.Keys {
			fmt.Fprintf(w, "%s%s:\n", indent(1), key)
			printTree(w, x.Values[i], depth+2, maxDepth, seen)
		}
		delete(seen, v)
		fmt.Fprintf(w, "%s}\n", indent(0))
	case *serdes.Array:
		if seen[v] {
			fmt.Fprintf(w, "%s<cycle>\n", indent(0))
			return
		}
		seen[v] = true
		fmt.Fprintf(w, "%sArray(length=%d, dense=%v) [\n", indent(0), x.Length, x.Dense)
		for _, el := range x.Elements {
			printTree(w, el, depth+1, maxDepth, seen)
		}
		for i, ix := range x.Indices {
			fmt.Fprintf(w, "%s[%d]:\n", indent(1), ix)
			printTree(w, x.Values[i], depth+2, maxDepth, seen)
		}
		delete(seen, v)
		fmt.Fprintf(w, "%s]\n", indent(0))
	default:
		fmt.Fprintf(w, "%s%v\n", indent(0), x)
	}
}
