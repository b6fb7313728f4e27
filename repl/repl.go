// Package repl is an interactive line-oriented shell for the reactive
// formula engine: each line names a cell and its new content, and the
// REPL echoes back that cell's freshly evaluated result.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"karl/address"
	"karl/spreadsheet"
)

const (
	PROMPT      = "sheet> "
	defaultRows = 1000
	defaultCols = 702 // A..ZZ
)

type scannerResult struct {
	line string
	err  error
	ok   bool
}

type startOptions struct {
	showIntro bool
}

// Start begins an interactive REPL session on the given streams.
func Start(in io.Reader, out io.Writer) {
	start(in, out, startOptions{showIntro: true})
}

func start(in io.Reader, out io.Writer, opts startOptions) {
	engine := spreadsheet.NewEngine(defaultRows, defaultCols)

	var (
		scanCh chan scannerResult
		tty    *ttyInput
	)
	if ti, ok := newTTYInput(in, out); ok {
		tty = ti
		defer tty.Close()
	} else {
		scanner := bufio.NewScanner(in)
		scanCh = make(chan scannerResult)
		go scanInput(scanner, scanCh)
	}

	sessionOut := out
	if tty != nil {
		sessionOut = newTTYLineWriter(out)
	}

	if opts.showIntro {
		fmt.Fprintf(sessionOut, "╔═══════════════════════════════════════╗\n")
		fmt.Fprintf(sessionOut, "║   Karl Sheets - Interactive Shell     ║\n")
		fmt.Fprintf(sessionOut, "╚═══════════════════════════════════════╝\n\n")
		fmt.Fprintf(sessionOut, "Enter '<cell> <content>' to set a cell, e.g. B1 =A1*2\n")
		fmt.Fprintf(sessionOut, "Commands: :help, :quit, :clear, :dump, :examples\n\n")
	}

	for {
		var (
			line string
			ok   bool
		)
		if tty != nil {
			line, ok = tty.readLine(PROMPT)
			if !ok {
				return
			}
		} else {
			fmt.Fprint(out, PROMPT)
			line, ok = waitForInput(scanCh, out)
			if !ok {
				return
			}
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			if handleCommand(trimmed, sessionOut, engine) {
				return
			}
			continue
		}

		evalLine(sessionOut, engine, trimmed)
	}
}

// evalLine parses "<cell> <content>" and applies it, printing the cell's
// freshly computed result.
func evalLine(out io.Writer, engine *spreadsheet.Engine, line string) {
	parts := strings.SplitN(line, " ", 2)
	idText := strings.ToUpper(parts[0])
	if !address.Valid(idText) {
		fmt.Fprintf(out, "Error: %q is not a valid cell identifier (expected e.g. A1, BZ42)\n", parts[0])
		return
	}
	content := ""
	if len(parts) == 2 {
		content = strings.TrimSpace(parts[1])
	}

	id := address.CellID(idText)
	if err := engine.SetContent(id, content); err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return
	}

	res, ok := engine.GetResult(id)
	if !ok {
		fmt.Fprintf(out, "%s -> (empty)\n", id)
		return
	}
	if res.Err != nil {
		fmt.Fprintf(out, "%s -> #ERROR: %s\n", id, res.Err.Message)
		return
	}
	fmt.Fprintf(out, "%s -> %s\n", id, res.Value.String())
}

// handleCommand processes REPL commands (starting with :). Returns true
// if the REPL should exit.
func handleCommand(cmd string, out io.Writer, engine *spreadsheet.Engine) bool {
	switch cmd {
	case ":quit", ":q", ":exit":
		fmt.Fprintln(out, "Goodbye!")
		return true

	case ":help", ":h":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h     - Show this help")
		fmt.Fprintln(out, "  :quit, :q     - Exit the REPL")
		fmt.Fprintln(out, "  :dump         - List every non-empty cell and its value")
		fmt.Fprintln(out, "  :clear        - Clear the screen (same as Ctrl+L)")
		fmt.Fprintln(out, "  :examples     - Show example input")
		fmt.Fprintln(out, "\nEnter '<cell> <content>' to set a cell, e.g.:")
		fmt.Fprintln(out, "  A1 10")
		fmt.Fprintln(out, "  B1 =A1*2")
		fmt.Fprintln(out, "  C1 =SUM(A1:A5)")

	case ":dump":
		dumpCells(out, engine)

	case ":examples", ":ex":
		showExamples(out)

	case ":clear":
		clearScreen(out)

	default:
		fmt.Fprintf(out, "Unknown command: %s (try :help)\n", cmd)
	}

	return false
}

func dumpCells(out io.Writer, engine *spreadsheet.Engine) {
	ids := engine.Model().NonEmptyCells()
	if len(ids) == 0 {
		fmt.Fprintln(out, "(no cells set)")
		return
	}
	for _, id := range ids {
		res, ok := engine.GetResult(id)
		if !ok {
			fmt.Fprintf(out, "%s = %s -> (empty)\n", id, engine.Model().GetContent(id))
			continue
		}
		if res.Err != nil {
			fmt.Fprintf(out, "%s = %s -> #ERROR: %s\n", id, engine.Model().GetContent(id), res.Err.Message)
			continue
		}
		fmt.Fprintf(out, "%s = %s -> %s\n", id, engine.Model().GetContent(id), res.Value.String())
	}
}

func scanInput(scanner *bufio.Scanner, out chan<- scannerResult) {
	defer close(out)
	for scanner.Scan() {
		out <- scannerResult{line: scanner.Text(), ok: true}
	}
	if err := scanner.Err(); err != nil {
		out <- scannerResult{err: err}
	}
}

func waitForInput(scanCh <-chan scannerResult, out io.Writer) (string, bool) {
	in, ok := <-scanCh
	if !ok {
		return "", false
	}
	if in.err != nil {
		fmt.Fprintf(out, "Input error: %v\n", in.err)
		return "", false
	}
	return in.line, in.ok
}

// showExamples displays the EXAMPLES.md file content, if present.
func showExamples(out io.Writer) {
	path := findExamplesFile()
	if path == "" {
		fmt.Fprintln(out, "Examples file not found.")
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(out, "Error reading examples file: %v\n", err)
		return
	}
	fmt.Fprintln(out, string(content))
}

func findExamplesFile() string {
	candidates := []string{
		"repl/EXAMPLES.md",
		"./repl/EXAMPLES.md",
		"../repl/EXAMPLES.md",
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		candidates = append(candidates, filepath.Join(exeDir, "repl", "EXAMPLES.md"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
