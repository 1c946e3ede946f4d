package domain

import (
	"strings"
)

const DirectivePrefix = "#"

type DirectiveKind byte

const (
	DirectiveExit = DirectiveKind(iota)
	DirectiveHelp
	DirectiveList
	DirectiveRoom
	DirectiveUnknown
)

type Directive struct {
	Kind DirectiveKind
	Name string
	Arg  string
}

// ParseDirective recognizes messages starting with DirectivePrefix.
// Anything else is a chat message and ok is false.
func ParseDirective(msg string) (d Directive, ok bool) {
	msg = strings.TrimSpace(msg)
	if !strings.HasPrefix(msg, DirectivePrefix) {
		return Directive{}, false
	}
	body := strings.TrimPrefix(msg, DirectivePrefix)
	name, arg, _ := strings.Cut(body, " ")
	d = Directive{Name: name, Arg: strings.TrimSpace(arg)}
	switch name {
	case "exit":
		d.Kind = DirectiveExit
	case "help":
		d.Kind = DirectiveHelp
	case "list":
		d.Kind = DirectiveList
	case "room":
		d.Kind = DirectiveRoom
	default:
		d.Kind = DirectiveUnknown
	}
	return d, true
}
