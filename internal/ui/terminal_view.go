package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"chat-widget/internal/conversation"
)

// Color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

var spinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TerminalView renders the conversation log to a terminal. It implements
// conversation.View.
type TerminalView struct {
	out      io.Writer
	tty      bool
	width    int
	renderer *glamour.TermRenderer

	mu          sync.Mutex
	spinnerDone chan struct{}
	spinnerWG   sync.WaitGroup
}

// NewTerminalView creates a view writing to out. Colors and the spinner are
// only used when out is a terminal.
func NewTerminalView(out io.Writer) *TerminalView {
	tty := false
	width := 80
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			width = w
		}
	}

	style := glamour.WithStandardStyle("notty")
	if tty {
		style = glamour.WithAutoStyle()
	}
	renderer, _ := glamour.NewTermRenderer(style, glamour.WithWordWrap(min(width, 100)-10))

	return &TerminalView{
		out:      out,
		tty:      tty,
		width:    width,
		renderer: renderer,
	}
}

func (v *TerminalView) color(code, s string) string {
	if !v.tty {
		return s
	}
	return code + s + colorReset
}

// PrintWelcome displays the welcome banner
func (v *TerminalView) PrintWelcome(endpoint, sessionID string) {
	fmt.Fprintln(v.out, v.color(colorBold+colorCyan, "chat-widget"))
	fmt.Fprintf(v.out, "%s %s\n", v.color(colorGray, "Endpoint:"), endpoint)
	if sessionID == "" {
		sessionID = "new (created with the first message)"
	}
	fmt.Fprintf(v.out, "%s %s\n", v.color(colorGray, "Session:"), sessionID)
	fmt.Fprintf(v.out, "%s\n", v.color(colorGray, `Commands: /exit | /new | /html | /help   (end a line with \ to continue it)`))
}

// PrintPrompt displays the input prompt
func (v *TerminalView) PrintPrompt() {
	fmt.Fprintf(v.out, "\n%s ", v.color(colorBold+colorGreen, "❯"))
}

// PrintInfo displays an info message
func (v *TerminalView) PrintInfo(msg string) {
	fmt.Fprintln(v.out, v.color(colorCyan, "ℹ "+msg))
}

// PrintError displays an error that is not part of the conversation
func (v *TerminalView) PrintError(err error) {
	fmt.Fprintln(v.out, v.color(colorRed, fmt.Sprintf("✗ Error: %v", err)))
}

// PrintGoodbye displays the goodbye message
func (v *TerminalView) PrintGoodbye() {
	fmt.Fprintln(v.out, v.color(colorCyan, "\nGoodbye!"))
}

// TurnAppended prints user turns and starts the working indicator for pending ones
func (v *TerminalView) TurnAppended(t conversation.Turn) {
	switch t.Kind {
	case conversation.KindUser:
		fmt.Fprintf(v.out, "\n%s\n", v.color(colorGray, "┌─ You · "+t.Timestamp.Format("15:04:05")))
		for _, line := range strings.Split(t.Text, "\n") {
			fmt.Fprintf(v.out, "%s %s\n", v.color(colorGray, "│"), line)
		}
		fmt.Fprintln(v.out, v.color(colorGray, "└"))
	case conversation.KindPending:
		v.startSpinner(t.Text)
	default:
		v.printTerminal(t)
	}
}

// TurnResolved replaces the working indicator with the final entry
func (v *TerminalView) TurnResolved(_, final conversation.Turn) {
	v.stopSpinner()
	v.printTerminal(final)
}

// ScrollToLatest is a no-op: terminal output always ends at the newest entry
func (v *TerminalView) ScrollToLatest() {}

// SetInputEnabled shows the prompt again once input is accepted
func (v *TerminalView) SetInputEnabled(enabled bool) {
	if enabled {
		v.PrintPrompt()
	}
}

func (v *TerminalView) printTerminal(t conversation.Turn) {
	switch t.Kind {
	case conversation.KindAgent:
		fmt.Fprintf(v.out, "\n%s\n", v.color(colorGray, "┌─ Assistant · "+t.Timestamp.Format("15:04:05")))
		for _, line := range strings.Split(v.renderMarkdown(t.Text), "\n") {
			fmt.Fprintf(v.out, "%s %s\n", v.color(colorGray, "│"), line)
		}
		if len(t.References) > 0 {
			fmt.Fprintln(v.out, v.color(colorGray, "│"))
			fmt.Fprintln(v.out, v.color(colorGray, "│ References:"))
			for _, ref := range t.References {
				label := ref.Title
				if label == "" {
					label = ref.URL
				}
				fmt.Fprintf(v.out, "%s\n", v.color(colorGray, fmt.Sprintf("│    • %s (%s)", label, truncate(ref.URL, 60))))
			}
		}
		fmt.Fprintln(v.out, v.color(colorGray, "└"))
	case conversation.KindError:
		fmt.Fprintln(v.out, v.color(colorRed, "✗ Error: "+t.Text))
	}
}

// renderMarkdown renders the answer for the terminal, falling back to raw text
func (v *TerminalView) renderMarkdown(text string) string {
	if v.renderer == nil {
		return text
	}
	rendered, err := v.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(rendered, "\n")
}

func (v *TerminalView) startSpinner(msg string) {
	if !v.tty {
		fmt.Fprintln(v.out, v.color(colorDim, msg))
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.spinnerDone != nil {
		return
	}
	done := make(chan struct{})
	v.spinnerDone = done
	v.spinnerWG.Add(1)

	go func() {
		defer v.spinnerWG.Done()
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i = (i + 1) % len(spinnerChars) {
			fmt.Fprintf(v.out, "\r%s%s %s%s", colorCyan, spinnerChars[i], msg, colorReset)
			select {
			case <-done:
				fmt.Fprint(v.out, "\r\033[2K")
				return
			case <-ticker.C:
			}
		}
	}()
}

func (v *TerminalView) stopSpinner() {
	v.mu.Lock()
	done := v.spinnerDone
	v.spinnerDone = nil
	v.mu.Unlock()

	if done != nil {
		close(done)
		v.spinnerWG.Wait()
	}
}

// truncate shortens s to maxLen runes, ending in "..."
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
