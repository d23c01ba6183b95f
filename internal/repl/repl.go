package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/leengari/gridsql/internal/coordinator"
	"github.com/leengari/gridsql/internal/engine"
)

func Start(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Welcome to GridSQL")
	fmt.Println("Type 'exit' or '\\q' to quit.")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			continue
		}

		if line == "exit" || line == "\\q" {
			break
		}

		if line == "ls" || line == "types" {
			names := eng.Catalog().Types()
			sort.Strings(names)
			fmt.Println("Registered types:")
			for _, name := range names {
				t, _ := eng.Catalog().Lookup(name)
				fmt.Printf("  - %s (cache %s, columns %s)\n", name, t.Cache, strings.Join(t.Columns(), ", "))
			}
			continue
		}

		// Execute using Engine
		result, err := eng.Execute(context.Background(), line)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}

		// Print Result
		PrintResult(os.Stdout, result)
	}
}

func PrintResult(w io.Writer, res *coordinator.Result) {
	if len(res.Rows) == 0 && len(res.Columns) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	// Header
	for i, col := range res.Columns {
		fmt.Fprintf(tw, "%s", col)
		if i < len(res.Columns)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Separator
	for i := range res.Columns {
		fmt.Fprintf(tw, "---")
		if i < len(res.Columns)-1 {
			fmt.Fprintf(tw, "\t")
		}
	}
	fmt.Fprintln(tw)

	// Rows
	for _, row := range res.Rows {
		for i, val := range row {
			if val == nil {
				fmt.Fprintf(tw, "NULL")
			} else {
				fmt.Fprintf(tw, "%v", val)
			}
			if i < len(row)-1 {
				fmt.Fprintf(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()

	fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
}
