// Package protocol defines the command vocabulary shared by every front-end
// and its two serializations: the framed shell-style text form used on the
// raw socket and by the interactive prompt, and the tagged-union JSON form
// used on the HTTP endpoint. It also renders payloads for terminal display.
package protocol

import (
	"fmt"
	"unicode/utf8"
)

// CommandType discriminates the command variants on the wire.
type CommandType string

const (
	CmdAdd    CommandType = "add"
	CmdDel    CommandType = "del"
	CmdList   CommandType = "list"
	CmdGet    CommandType = "get"
	CmdSet    CommandType = "set"
	CmdInsert CommandType = "insert"
	CmdTag    CommandType = "tag"
	CmdUntag  CommandType = "untag"
	CmdPin    CommandType = "pin"
	CmdUnpin  CommandType = "unpin"
	CmdTags   CommandType = "tags"
	CmdCount  CommandType = "count"
	CmdSave   CommandType = "save"
	CmdLoad   CommandType = "load"
	CmdSelect CommandType = "select"
	CmdHelp   CommandType = "help"
	CmdQuit   CommandType = "quit"
)

// Command is the closed set of requests a front-end can submit. Type selects
// the variant; the remaining fields are the variant's arguments and are
// omitted from the JSON form when unused.
type Command struct {
	Type      CommandType `json:"type"`
	Words     []string    `json:"value,omitempty"`
	FromIndex *int        `json:"from_index,omitempty"`
	ToIndex   *int        `json:"to_index,omitempty"`
	Preview   *int        `json:"preview_length,omitempty"`
	Index     *int        `json:"index,omitempty"`
	Tag       string      `json:"tag,omitempty"`
	PinChar   string      `json:"pin_char,omitempty"`
	Filename  string      `json:"filename,omitempty"`
	Pin       string      `json:"pin,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Substring string      `json:"substring,omitempty"`
}

// NewAdd builds an add command from the words to store.
func NewAdd(words ...string) Command {
	return Command{Type: CmdAdd, Words: words}
}

// NewDel builds a delete command for [from, to); a nil to removes the single
// entry at from.
func NewDel(from int, to *int) Command {
	return Command{Type: CmdDel, FromIndex: &from, ToIndex: to}
}

// NewList builds a list command; nil fields fall back to their defaults.
func NewList(from, to, preview *int) Command {
	return Command{Type: CmdList, FromIndex: from, ToIndex: to, Preview: preview}
}

// NewGet builds a get command.
func NewGet(index int) Command {
	return Command{Type: CmdGet, Index: &index}
}

// NewSet builds a set command.
func NewSet(index int) Command {
	return Command{Type: CmdSet, Index: &index}
}

// NewInsert builds an insert-from-file command.
func NewInsert(filename string) Command {
	return Command{Type: CmdInsert, Filename: filename}
}

// NewTag builds a tag command.
func NewTag(index int, tag string) Command {
	return Command{Type: CmdTag, Index: &index, Tag: tag}
}

// NewUntag builds an untag command.
func NewUntag(index int, tag string) Command {
	return Command{Type: CmdUntag, Index: &index, Tag: tag}
}

// NewPin builds a pin command.
func NewPin(index int, ch string) Command {
	return Command{Type: CmdPin, Index: &index, PinChar: ch}
}

// NewUnpin builds an unpin command.
func NewUnpin(index int) Command {
	return Command{Type: CmdUnpin, Index: &index}
}

// NewSelect builds a select command from its filters.
func NewSelect(pin string, tags []string, substring string) Command {
	return Command{Type: CmdSelect, Pin: pin, Tags: tags, Substring: substring}
}

// NewBare builds one of the argument-free commands (tags, count, save, load,
// help, quit).
func NewBare(t CommandType) Command {
	return Command{Type: t}
}

// Validate checks that the variant's required arguments are present and well
// formed. Index arguments must be non-negative; pin characters are exactly
// one rune.
func (c Command) Validate() error {
	switch c.Type {
	case CmdAdd:
		if len(c.Words) == 0 {
			return fmt.Errorf("add: at least one word required")
		}
	case CmdDel:
		if c.FromIndex == nil {
			return fmt.Errorf("del: from_index required")
		}
		if *c.FromIndex < 0 {
			return fmt.Errorf("del: from_index must be non-negative")
		}
		if c.ToIndex != nil && *c.ToIndex < 0 {
			return fmt.Errorf("del: to_index must be non-negative")
		}
	case CmdList:
		if c.FromIndex != nil && *c.FromIndex < 0 {
			return fmt.Errorf("list: from_index must be non-negative")
		}
		if c.ToIndex != nil && *c.ToIndex < 0 {
			return fmt.Errorf("list: to_index must be non-negative")
		}
		if c.Preview != nil && *c.Preview < 0 {
			return fmt.Errorf("list: preview_length must be non-negative")
		}
	case CmdGet, CmdSet, CmdUnpin:
		if c.Index == nil || *c.Index < 0 {
			return fmt.Errorf("%s: non-negative index required", c.Type)
		}
	case CmdInsert:
		if c.Filename == "" {
			return fmt.Errorf("insert: filename required")
		}
	case CmdTag, CmdUntag:
		if c.Index == nil || *c.Index < 0 {
			return fmt.Errorf("%s: non-negative index required", c.Type)
		}
		if c.Tag == "" {
			return fmt.Errorf("%s: tag required", c.Type)
		}
	case CmdPin:
		if c.Index == nil || *c.Index < 0 {
			return fmt.Errorf("pin: non-negative index required")
		}
		if utf8.RuneCountInString(c.PinChar) != 1 {
			return fmt.Errorf("pin: pin_char must be a single character")
		}
	case CmdSelect:
		if c.Pin != "" && utf8.RuneCountInString(c.Pin) != 1 {
			return fmt.Errorf("select: pin must be a single character")
		}
	case CmdTags, CmdCount, CmdSave, CmdLoad, CmdHelp, CmdQuit:
	default:
		return fmt.Errorf("unknown command type %q", c.Type)
	}
	return nil
}
