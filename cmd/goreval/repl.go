package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/chzyer/readline"

	"github.com/sandrolain/goreval/pkg/evaluator"
	"github.com/sandrolain/goreval/pkg/parser"
	"github.com/sandrolain/goreval/pkg/types"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	exprStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	resultStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// ReplCmd starts an interactive prompt.
type ReplCmd struct {
	History string `help:"History file." default:"/tmp/goreval_history" type:"path"`
}

// Run executes the repl command.
func (r *ReplCmd) Run(ctx *evaluator.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptStyle.Render("goreval> "),
		HistoryFile:     r.History,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("goreval repl — :set, :def, :list, :quit")

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) || err != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := runMeta(ctx, line); quit {
				return nil
			}
			continue
		}

		expr, err := parser.Parse(line)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}
		v, err := evaluator.EvalExpression(expr, ctx)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			continue
		}
		fmt.Println(resultStyle.Render(formatReal(v)))
	}
}

// runMeta handles the prompt's meta commands. Returns true on :quit.
func runMeta(ctx *evaluator.Context, line string) bool {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case ":quit", ":q", ":exit":
		return true

	case ":set":
		name, value, ok := strings.Cut(rest, " ")
		if !ok {
			fmt.Println(errorStyle.Render("usage: :set <name> <value>"))
			return false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), types.RealBits)
		if err != nil {
			fmt.Println(errorStyle.Render("invalid value: " + value))
			return false
		}
		ctx.SetVariable(name, types.Real(v))

	case ":def":
		name, params, body, err := parseDef(rest)
		if err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return false
		}
		if err := ctx.Registry().RegisterExpression(name, params, body); err != nil {
			fmt.Println(errorStyle.Render(err.Error()))
			return false
		}

	case ":list":
		fmt.Printf("functions: %d (%d native)\n",
			ctx.Registry().Count(), ctx.Registry().NativeCount())

	default:
		fmt.Println(errorStyle.Render("unknown command: " + cmd))
	}
	return false
}

// parseDef splits ":def name(a, b) = body" into its parts.
func parseDef(s string) (name string, params []string, body string, err error) {
	head, body, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, "", fmt.Errorf("usage: :def name(a, b) = body")
	}
	body = strings.TrimSpace(body)

	head = strings.TrimSpace(head)
	open := strings.IndexByte(head, '(')
	if open < 0 || !strings.HasSuffix(head, ")") {
		return "", nil, "", fmt.Errorf("usage: :def name(a, b) = body")
	}
	name = strings.TrimSpace(head[:open])

	list := head[open+1 : len(head)-1]
	if strings.TrimSpace(list) != "" {
		for _, p := range strings.Split(list, ",") {
			params = append(params, strings.TrimSpace(p))
		}
	}
	return name, params, body, nil
}
