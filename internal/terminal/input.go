package terminal

import (
	"bufio"
	"io"
	"strings"
)

// Command is a slash command typed at the prompt
type Command string

const (
	CmdNone Command = ""
	CmdExit Command = "exit"
	CmdNew  Command = "new"
	CmdHTML Command = "html"
	CmdHelp Command = "help"
)

// InputReader reads prompts from the user. Enter submits; a line ending in a
// backslash continues on the next line, so a line break only enters the
// prompt on purpose.
type InputReader struct {
	reader *bufio.Reader
}

// NewInputReader wraps r, typically os.Stdin
func NewInputReader(r io.Reader) *InputReader {
	return &InputReader{reader: bufio.NewReader(r)}
}

// ReadPrompt reads one prompt. The returned text is not trimmed; io.EOF is
// returned once input is exhausted and nothing was read.
func (r *InputReader) ReadPrompt() (string, error) {
	var lines []string
	for {
		line, err := r.reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			if err == io.EOF && len(lines) > 0 {
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")

		if strings.HasSuffix(line, `\`) && err == nil {
			lines = append(lines, strings.TrimSuffix(line, `\`))
			continue
		}
		lines = append(lines, line)
		return strings.Join(lines, "\n"), nil
	}
}

// ParseCommand recognizes slash commands; anything else is a prompt
func ParseCommand(input string) Command {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "/exit", "/quit", "exit", "quit":
		return CmdExit
	case "/new":
		return CmdNew
	case "/html":
		return CmdHTML
	case "/help":
		return CmdHelp
	}
	return CmdNone
}
