package tmux

import "fmt"

// keySequences maps the supported control-key names to the byte written
// on the interactive channel.
var keySequences = map[string]byte{
	"ctrl+c": 0x03,
	"ctrl+d": 0x04,
	"ctrl+z": 0x1A,
	"tab":    0x09,
	"enter":  0x0A,
}

// KeySequence resolves a named control-key sequence to its byte value.
// An unrecognized name is a caller error, not a transport error.
func KeySequence(name string) (byte, error) {
	b, ok := keySequences[name]
	if !ok {
		return 0, fmt.Errorf("unknown key sequence %q", name)
	}
	return b, nil
}

// KeySequenceNames returns the supported sequence names, for help output.
func KeySequenceNames() []string {
	return []string{"ctrl+c", "ctrl+d", "ctrl+z", "tab", "enter"}
}
