package telegraminterface

import "strings"

const feeSuffix = "+fee"

// command is a parsed bot command like "/done+fee@EscrowBot #12".
type command struct {
	name    string
	withFee bool
	mention string
	args    []string
}

var aliases = map[string]struct {
	name    string
	withFee bool
}{
	"addfee":    {"add", true},
	"donefee":   {"done", true},
	"refundfee": {"refund", true},
	"help":      {"start", false},
}

// parseCommand returns the command in the given text, if any. Command names
// are case-insensitive, and can carry the +fee suffix.
func parseCommand(text string) (*command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, false
	}

	fields := strings.Fields(text[1:])
	if len(fields) <= 0 {
		return nil, false
	}

	name, mention, _ := strings.Cut(fields[0], "@")
	name = strings.ToLower(name)
	if name == "" {
		return nil, false
	}

	cmd := &command{
		name:    name,
		mention: mention,
		args:    fields[1:],
	}
	if strings.HasSuffix(cmd.name, feeSuffix) {
		cmd.name = strings.TrimSuffix(cmd.name, feeSuffix)
		cmd.withFee = true
	}
	if alias, ok := aliases[cmd.name]; ok {
		cmd.name = alias.name
		cmd.withFee = cmd.withFee || alias.withFee
	}
	return cmd, true
}

// isFor returns whether the command is addressed to the given bot. Commands
// without mention are addressed to every bot of the chat.
func (c *command) isFor(botUsername string) bool {
	return c.mention == "" || botUsername == "" ||
		strings.EqualFold(c.mention, botUsername)
}

func (c *command) String() string {
	s := "/" + c.name
	if c.withFee {
		s += feeSuffix
	}
	return s
}
