package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/spektr-org/tableplan/engine"
	"github.com/spektr-org/tableplan/helpers"
)

const (
	promptMain = "tableplan> "
	promptMore = "...> "
)

const replHelp = `meta commands:
  \q | \quit | exit      quit
  \schema                describe the loaded table
  \log                   show the provenance log of the last run
  \help                  show help

input:
  a line starting with '{' or '[' is a plan; multiline plans are read until
  the brackets balance
  anything else is a question (needs GEMINI_API_KEY)`

func runREPL(ctx context.Context, s *session, w io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptMain,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          w,
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	fmt.Fprintf(w, "loaded %s (%d rows, %d columns)\n", s.name, s.table.NumRows(), s.table.NumColumns())
	fmt.Fprintln(w, "type \\help for help")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl+C clears current buffer
			if buf.Len() > 0 {
				buf.Reset()
				rl.SetPrompt(promptMain)
			}
			continue
		}
		if err != nil {
			// EOF
			fmt.Fprintln(w)
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && isMetaCommand(line) {
			if quit := s.meta(w, line); quit {
				return nil
			}
			continue
		}

		if buf.Len() > 0 || strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
			if !bracketsBalanced(buf.String()) {
				rl.SetPrompt(promptMore)
				continue
			}
			input := buf.String()
			buf.Reset()
			rl.SetPrompt(promptMain)

			plan, err := engine.DecodePlan([]byte(input))
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				continue
			}
			s.run(ctx, w, "", plan)
			continue
		}

		plan, err := s.requestPlan(ctx, line)
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		s.run(ctx, w, line, plan)
	}
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "exit" || line == "quit"
}

// meta runs a meta command and reports whether the session should end.
func (s *session) meta(w io.Writer, line string) bool {
	switch line {
	case "\\q", "\\quit", "exit", "quit":
		return true
	case "\\help":
		fmt.Fprintln(w, replHelp)
	case "\\schema":
		sum := s.describe()
		fmt.Fprintf(w, "%s: %d rows\n", sum.Name, sum.RowCount)
		for _, c := range sum.Columns {
			fmt.Fprintf(w, "  %-24s %-8s %4d distinct  %s\n",
				c.Name, c.Kind, c.UniqueCount, strings.Join(c.SampleValues, ", "))
		}
	case "\\log":
		if s.last == nil {
			fmt.Fprintln(w, "no plan has run yet")
			break
		}
		for i, l := range s.last.Log {
			fmt.Fprintf(w, "  %d. %s\n", i+1, l)
		}
	default:
		fmt.Fprintf(w, "unknown command: %s\n", line)
	}
	return false
}

// run executes a plan and prints the result as text.
func (s *session) run(ctx context.Context, w io.Writer, question string, plan *engine.Plan) {
	res, err := s.execute(plan)
	if errors.Is(err, engine.ErrEmptyPlan) {
		fmt.Fprintln(w, "could not complete analysis: no usable plan")
		return
	}
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	if plan.Explanation != "" {
		fmt.Fprintln(w, plan.Explanation)
	}
	preview := helpers.BuildPreview(res.Table, s.cfg.Preview.Rows)
	writeText(w, preview, res)
	if answer := s.summarize(ctx, question, preview, res.Log); answer != "" {
		fmt.Fprintf(w, "\n%s\n", answer)
	}
}

// bracketsBalanced reports whether every { and [ outside JSON strings is closed.
func bracketsBalanced(s string) bool {
	depth := 0
	inString, escaped := false, false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case inString && r == '\\':
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
		}
	}
	return depth <= 0 && !inString
}
