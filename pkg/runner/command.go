package runner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/rekitter"
)

// CommandName identifies an operator command.
type CommandName string

const (
	CommandStart    CommandName = "start"
	CommandStop     CommandName = "stop"
	CommandReset    CommandName = "reset"
	CommandPost     CommandName = "post"
	CommandGenerate CommandName = "gen"
	CommandHelp     CommandName = "help"
)

// ErrUnknownCommand is returned for input that is not a known command.
var ErrUnknownCommand = errors.New("unknown command")

// Command is one operator instruction.
type Command struct {
	Name    CommandName `json:"command"`
	Speaker string      `json:"speaker,omitempty"`
	Text    string      `json:"text,omitempty"`
	Rounds  int         `json:"rounds,omitempty"`
}

// Usage lists the commands understood by ParseCommand.
const Usage = `/start <rounds> [theme]  start a debate
/stop                    stop the debate
/reset                   clear the timeline and stop
/post <speaker> <text>   post as a character
/gen <speaker>           ask a character to post now
/help                    show this help`

// ParseCommand reads a slash command such as "/post luther Here I stand.".
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Command{}, fmt.Errorf("%w: %q (try /help)", ErrUnknownCommand, line)
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}

	cmd := Command{Name: CommandName(strings.ToLower(fields[0]))}
	switch cmd.Name {
	case CommandStop, CommandReset, CommandHelp:
		return cmd, nil
	case CommandStart:
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("/start needs a round count")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{}, fmt.Errorf("/start: invalid round count %q", fields[1])
		}
		cmd.Rounds = n
		cmd.Text = strings.Join(fields[2:], " ")
		return cmd, nil
	case CommandGenerate:
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("/gen needs a speaker")
		}
		cmd.Speaker = fields[1]
		return cmd, nil
	case CommandPost:
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("/post needs a speaker")
		}
		cmd.Speaker = fields[1]
		// Keep the text as typed, only the leading words are split off.
		rest := strings.TrimSpace(line[1:])
		rest = strings.TrimSpace(rest[len(fields[0]):])
		cmd.Text = strings.TrimSpace(rest[len(fields[1]):])
		return cmd, nil
	}
	return Command{}, fmt.Errorf("%w: /%s (try /help)", ErrUnknownCommand, fields[0])
}

// Apply executes cmd against eng.
func Apply(ctx context.Context, eng *rekitter.Engine, cmd Command) error {
	switch cmd.Name {
	case CommandStart:
		return eng.Start(ctx, cmd.Text, cmd.Rounds)
	case CommandStop:
		return eng.Stop(ctx)
	case CommandReset:
		return eng.ResetHistory(ctx)
	case CommandPost:
		_, err := eng.ManualPost(ctx, cmd.Speaker, cmd.Text)
		return err
	case CommandGenerate:
		_, err := eng.ManualGenerate(ctx, cmd.Speaker)
		return err
	case CommandHelp:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
}
