package discord

import (
	"strings"
)

// parseMention splits "<@botID> name args..." into the lowercased command
// name and its arguments. Messages that do not start with the bot mention
// are ignored.
func parseMention(content, botID string) (name string, args []string, ok bool) {
	content = strings.TrimSpace(content)

	var rest string
	for _, prefix := range []string{"<@" + botID + ">", "<@!" + botID + ">"} {
		if after, found := strings.CutPrefix(content, prefix); found {
			rest, ok = after, true
			break
		}
	}
	if !ok {
		return "", nil, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
