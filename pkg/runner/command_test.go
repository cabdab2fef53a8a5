package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"/stop", Command{Name: CommandStop}},
		{"  /RESET ", Command{Name: CommandReset}},
		{"/help", Command{Name: CommandHelp}},
		{"/start 10", Command{Name: CommandStart, Rounds: 10}},
		{"/start 4 The Reformation", Command{Name: CommandStart, Rounds: 4, Text: "The Reformation"}},
		{"/gen luther", Command{Name: CommandGenerate, Speaker: "luther"}},
		{"/post leo_x   Here  I stand.", Command{Name: CommandPost, Speaker: "leo_x", Text: "Here  I stand."}},
		{"/post leo_x", Command{Name: CommandPost, Speaker: "leo_x"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommand_Errors(t *testing.T) {
	for _, line := range []string{"", "hello", "/", "/dance", "/gen", "/post", "/start", "/start ten"} {
		_, err := ParseCommand(line)
		assert.Error(t, err, line)
	}
	_, err := ParseCommand("/dance")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestDecodeCommand(t *testing.T) {
	cmd, err := decodeCommand(`{"command":"post","speaker":"luther","text":"Sola fide"}`)
	require.NoError(t, err)
	assert.Equal(t, Command{Name: CommandPost, Speaker: "luther", Text: "Sola fide"}, cmd)

	cmd, err = decodeCommand("/stop")
	require.NoError(t, err)
	assert.Equal(t, CommandStop, cmd.Name)

	_, err = decodeCommand(`{"command":"dance"}`)
	assert.ErrorIs(t, err, ErrUnknownCommand)
	_, err = decodeCommand(`{"command":`)
	assert.Error(t, err)
}
