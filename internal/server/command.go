// Package server parses decoded chat lines into commands. The grammar is a
// handful of slash keywords; anything else, including slash input that matches
// no keyword, is treated as a plain chat line. Parsing happens exactly once
// per line and the result is dispatched by an exhaustive type switch in the
// hub, so there is no ordered-prefix fallthrough to get wrong.
package server

import "strings"

// command is the tagged result of parsing one inbound line.
type command interface {
	isCommand()
}

// setNameCmd renames the sender. Name may be empty, which the dispatcher
// rejects with a validation reply.
type setNameCmd struct {
	Name string
}

// listCmd lists every connected nickname, regardless of room.
type listCmd struct{}

// helpCmd replies with the static command overview.
type helpCmd struct{}

// whisperCmd sends a private message. An empty Target or Message marks the
// command malformed; the dispatcher replies with the expected syntax.
type whisperCmd struct {
	Target  string
	Message string
}

// joinCmd moves the sender to another room. An empty Room resolves to
// DefaultRoom.
type joinCmd struct {
	Room string
}

// listRoomsCmd lists the distinct room names across all sessions.
type listRoomsCmd struct{}

// listRoomCmd lists the nicknames sharing the sender's current room.
type listRoomCmd struct{}

// chatCmd is a plain chat line, broadcast to the sender's room.
type chatCmd struct {
	Text string
}

func (setNameCmd) isCommand()   {}
func (listCmd) isCommand()      {}
func (helpCmd) isCommand()      {}
func (whisperCmd) isCommand()   {}
func (joinCmd) isCommand()      {}
func (listRoomsCmd) isCommand() {}
func (listRoomCmd) isCommand()  {}
func (chatCmd) isCommand()      {}

// parseCommand classifies one decoded line. Keywords are case-sensitive.
// Argument-less keywords (/list, /help, /listrooms, /listroom) only match when
// the line carries no trailing text, so "/list something" stays a chat line.
func parseCommand(line string) command {
	if !strings.HasPrefix(line, "/") {
		return chatCmd{Text: line}
	}

	keyword, rest, _ := strings.Cut(line, " ")
	switch keyword {
	case "/setname", "/sn":
		return setNameCmd{Name: strings.TrimSpace(rest)}

	case "/list":
		if rest == "" {
			return listCmd{}
		}

	case "/help":
		if rest == "" {
			return helpCmd{}
		}

	case "/whisper", "/w":
		target, message, _ := strings.Cut(strings.TrimSpace(rest), " ")
		return whisperCmd{Target: target, Message: strings.TrimSpace(message)}

	case "/join":
		return joinCmd{Room: strings.TrimSpace(rest)}

	case "/listrooms":
		if rest == "" {
			return listRoomsCmd{}
		}

	case "/listroom":
		if rest == "" {
			return listRoomCmd{}
		}
	}

	// Unknown slash input falls through to plain chat on purpose: the original
	// protocol treats it as a literal message, and clients depend on that.
	return chatCmd{Text: line}
}

// helpText is the reply to /help.
const helpText = "Available commands:\n" +
	"/setname <name> (alias /sn) - change your nickname\n" +
	"/list - list all connected users\n" +
	"/listrooms - list the active rooms\n" +
	"/listroom - list the users in your current room\n" +
	"/join <room> - switch to another room\n" +
	"/whisper <nick> <message> (alias /w) - send a private message\n" +
	"/help - show this help"
