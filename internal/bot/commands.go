package bot

import "strings"

// parseCommand splits a message into a command name (without the leading
// slash or an @botname suffix) and its argument tail. ok is false for
// non-command messages.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	head := text[1:]
	if i := strings.IndexAny(head, " \t\n"); i >= 0 {
		head, args = head[:i], strings.TrimSpace(head[i+1:])
	}
	// Group commands arrive as /cmd@BotName.
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), args, true
}

// parseAddressArg extracts the address argument of /set, tolerating the
// quoted form some clients produce.
func parseAddressArg(args string) string {
	addr := strings.TrimSpace(args)
	if len(addr) >= 2 && strings.HasPrefix(addr, `"`) && strings.HasSuffix(addr, `"`) {
		addr = addr[1 : len(addr)-1]
	}
	return strings.TrimSpace(addr)
}
