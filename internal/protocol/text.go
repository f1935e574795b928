package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	shellwords "github.com/mattn/go-shellwords"
)

// Text grammar, one command per line, POSIX word-splitting:
//
//	add -- WORD...
//	del FROM [TO]
//	list [FROM [TO]] [-n PREVIEW]
//	get INDEX | set INDEX | unpin INDEX
//	insert FILE
//	tag INDEX TAG | untag INDEX TAG
//	pin INDEX CHAR
//	select [-p CHAR] [-t TAG]... [-s SUBSTRING]
//	tags | count | save | load | help | quit
//
// Callers on the text path treat any parse error as a request for help.

// Parse turns one command line into a Command.
func Parse(line string) (Command, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, fmt.Errorf("split command line: %w", err)
	}
	if len(words) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	verb, args := words[0], words[1:]
	var cmd Command

	switch verb {
	case "add":
		if len(args) > 0 && args[0] == "--" {
			args = args[1:]
		}
		cmd = NewAdd(args...)

	case "del":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("del: want FROM [TO], got %d args", len(args))
		}
		from, err := parseIndex(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("del: %w", err)
		}
		var to *int
		if len(args) == 2 {
			t, err := parseIndex(args[1])
			if err != nil {
				return Command{}, fmt.Errorf("del: %w", err)
			}
			to = &t
		}
		cmd = NewDel(from, to)

	case "list":
		var positional []int
		var preview *int
		for i := 0; i < len(args); i++ {
			if args[i] == "-n" || args[i] == "--preview" {
				if i+1 >= len(args) {
					return Command{}, fmt.Errorf("list: %s needs a value", args[i])
				}
				n, err := parseIndex(args[i+1])
				if err != nil {
					return Command{}, fmt.Errorf("list: %w", err)
				}
				preview = &n
				i++
				continue
			}
			n, err := parseIndex(args[i])
			if err != nil {
				return Command{}, fmt.Errorf("list: %w", err)
			}
			positional = append(positional, n)
		}
		if len(positional) > 2 {
			return Command{}, fmt.Errorf("list: want at most FROM TO, got %d positions", len(positional))
		}
		var from, to *int
		if len(positional) >= 1 {
			from = &positional[0]
		}
		if len(positional) == 2 {
			to = &positional[1]
		}
		cmd = NewList(from, to, preview)

	case "get", "set", "unpin":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%s: want INDEX", verb)
		}
		idx, err := parseIndex(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", verb, err)
		}
		switch verb {
		case "get":
			cmd = NewGet(idx)
		case "set":
			cmd = NewSet(idx)
		case "unpin":
			cmd = NewUnpin(idx)
		}

	case "insert":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("insert: want FILE")
		}
		cmd = NewInsert(args[0])

	case "tag", "untag":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("%s: want INDEX TAG", verb)
		}
		idx, err := parseIndex(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", verb, err)
		}
		if verb == "tag" {
			cmd = NewTag(idx, args[1])
		} else {
			cmd = NewUntag(idx, args[1])
		}

	case "pin":
		if len(args) != 2 {
			return Command{}, fmt.Errorf("pin: want INDEX CHAR")
		}
		idx, err := parseIndex(args[0])
		if err != nil {
			return Command{}, fmt.Errorf("pin: %w", err)
		}
		if utf8.RuneCountInString(args[1]) != 1 {
			return Command{}, fmt.Errorf("pin: CHAR must be a single character")
		}
		cmd = NewPin(idx, args[1])

	case "select":
		var pin, substring string
		var tags []string
		for i := 0; i < len(args); i++ {
			switch args[i] {
			case "--":
				continue
			case "-p", "--pin":
				if i+1 >= len(args) {
					return Command{}, fmt.Errorf("select: %s needs a value", args[i])
				}
				pin = args[i+1]
				i++
			case "-t", "--tag":
				if i+1 >= len(args) {
					return Command{}, fmt.Errorf("select: %s needs a value", args[i])
				}
				tags = append(tags, args[i+1])
				i++
			case "-s", "--substring":
				if i+1 >= len(args) {
					return Command{}, fmt.Errorf("select: %s needs a value", args[i])
				}
				substring = args[i+1]
				i++
			default:
				return Command{}, fmt.Errorf("select: unknown argument %q", args[i])
			}
		}
		cmd = NewSelect(pin, tags, substring)

	case "tags", "count", "save", "load", "help", "quit":
		if len(args) != 0 {
			return Command{}, fmt.Errorf("%s: takes no arguments", verb)
		}
		cmd = NewBare(CommandType(verb))

	default:
		return Command{}, fmt.Errorf("unknown command %q", verb)
	}

	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// Encode renders a Command as a single parseable command line. Words that
// contain shell metacharacters are single-quoted, so Parse(Encode(c)) yields
// an equivalent command for every valid c.
func Encode(c Command) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}

	var parts []string
	switch c.Type {
	case CmdAdd:
		parts = append(parts, "add", "--")
		for _, w := range c.Words {
			parts = append(parts, quoteWord(w))
		}

	case CmdDel:
		parts = append(parts, "del", strconv.Itoa(*c.FromIndex))
		if c.ToIndex != nil {
			parts = append(parts, strconv.Itoa(*c.ToIndex))
		}

	case CmdList:
		parts = append(parts, "list")
		if c.FromIndex != nil || c.ToIndex != nil {
			from := 0
			if c.FromIndex != nil {
				from = *c.FromIndex
			}
			parts = append(parts, strconv.Itoa(from))
		}
		if c.ToIndex != nil {
			parts = append(parts, strconv.Itoa(*c.ToIndex))
		}
		if c.Preview != nil {
			parts = append(parts, "-n", strconv.Itoa(*c.Preview))
		}

	case CmdGet, CmdSet, CmdUnpin:
		parts = append(parts, string(c.Type), strconv.Itoa(*c.Index))

	case CmdInsert:
		parts = append(parts, "insert", quoteWord(c.Filename))

	case CmdTag, CmdUntag:
		parts = append(parts, string(c.Type), strconv.Itoa(*c.Index), quoteWord(c.Tag))

	case CmdPin:
		parts = append(parts, "pin", strconv.Itoa(*c.Index), quoteWord(c.PinChar))

	case CmdSelect:
		parts = append(parts, "select")
		if c.Pin != "" {
			parts = append(parts, "-p", quoteWord(c.Pin))
		}
		for _, tag := range c.Tags {
			parts = append(parts, "-t", quoteWord(tag))
		}
		if c.Substring != "" {
			parts = append(parts, "-s", quoteWord(c.Substring))
		}

	case CmdTags, CmdCount, CmdSave, CmdLoad, CmdHelp, CmdQuit:
		parts = append(parts, string(c.Type))
	}

	return strings.Join(parts, " "), nil
}

// parseIndex parses a non-negative integer argument.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not an index", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("index %d is negative", n)
	}
	return n, nil
}

// quoteWord single-quotes a word when it contains characters the shell
// splitter would interpret.
func quoteWord(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\r'\"\\$`!*?[](){}<>|&;#~=") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Usage is the help text returned for the help command and for unparseable
// input on the text path.
const Usage = `
  list ?from ?to -n ?preview
  count
  save
  load
  add -- str ?str...
  del index ?to-index
  get index
  set index
  insert filename
  tag index tag
  untag index tag
  pin index char
  unpin index
  tags
  select -p ?char -t ?tag -s ?substring
  help
  quit`
