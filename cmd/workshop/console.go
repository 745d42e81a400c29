package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorStyle = lipgloss.NewStyle().Background(lipgloss.Color("#CC0000")).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	labelStyle = lipgloss.NewStyle().Bold(true)
)

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(err.Error()))
}

func printWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, warnStyle.Render(msg))
}

func printField(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%s %v\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

// prompter reads answers line by line. One prompter must be used for all
// questions of a command so buffered input is not lost.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no answer given")
		}
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " (y/N): ")
	if err != nil {
		return false
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes")
}
