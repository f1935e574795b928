package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/clipd/internal/client"
	"github.com/hpungsan/clipd/internal/errors"
	"github.com/hpungsan/clipd/internal/protocol"
)

// clientCmds returns the subcommands that talk to a running daemon. Each one
// builds a protocol command and hands it to runCommand.
func clientCmds() []*cli.Command {
	return []*cli.Command{
		addCmd(),
		delCmd(),
		listCmd(),
		getCmd(),
		setCmd(),
		insertCmd(),
		tagCmd(),
		untagCmd(),
		pinCmd(),
		unpinCmd(),
		bareCmd("tags", "Print every tag in use", protocol.CmdTags),
		bareCmd("count", "Print the number of stored entries", protocol.CmdCount),
		bareCmd("save", "Persist the store to the snapshot file", protocol.CmdSave),
		bareCmd("load", "Merge the snapshot file into the store", protocol.CmdLoad),
		selectCmd(),
		bareCmd("quit", "Stop the daemon", protocol.CmdQuit),
	}
}

// runCommand sends cmd to the daemon. The default path uses the raw socket
// and prints the rendered reply; --json goes over HTTP and prints the payload
// document instead.
func runCommand(c *cli.Context, cmd protocol.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return outputError(err)
	}

	if c.Bool("json") {
		p, err := client.NewHTTP("http://" + cfg.HTTPAddr()).Do(c.Context, cmd)
		if err != nil {
			return outputError(err)
		}
		return outputJSON(p)
	}

	reply, err := client.NewRaw(cfg.RawAddr()).Run(c.Context, cmd)
	if err != nil {
		return outputError(err)
	}
	if reply != "" {
		fmt.Println(reply)
	}
	return nil
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Query over HTTP and print the payload document",
	}
}

func addCmd() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Append text to the clipboard history",
		ArgsUsage: "TEXT...",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return cli.Exit("add requires text", 1)
			}
			return runCommand(c, protocol.NewAdd(c.Args().Slice()...))
		},
	}
}

func delCmd() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "Delete entries in the range [FROM, TO)",
		ArgsUsage: "FROM [TO]",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 || c.NArg() > 2 {
				return cli.Exit("del requires FROM and an optional TO", 1)
			}
			from, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			var to *int
			if c.NArg() == 2 {
				n, err := argIndex(c, 1)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				to = &n
			}
			return runCommand(c, protocol.NewDel(from, to))
		},
	}
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entries, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "from", Aliases: []string{"f"}, Usage: "First position to list"},
			&cli.IntFlag{Name: "to", Aliases: []string{"t"}, Usage: "Position to stop before"},
			&cli.IntFlag{Name: "preview", Aliases: []string{"p"}, Usage: "Preview length for values"},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			var from, to, preview *int
			if c.IsSet("from") {
				n := c.Int("from")
				from = &n
			}
			if c.IsSet("to") {
				n := c.Int("to")
				to = &n
			}
			if c.IsSet("preview") {
				n := c.Int("preview")
				preview = &n
			}
			return runCommand(c, protocol.NewList(from, to, preview))
		},
	}
}

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Print the full value at a position",
		ArgsUsage: "INDEX",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("get requires an index", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewGet(index))
		},
	}
}

func setCmd() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Write the value at a position back to the system clipboard",
		ArgsUsage: "INDEX",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("set requires an index", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewSet(index))
		},
	}
}

func insertCmd() *cli.Command {
	return &cli.Command{
		Name:      "insert",
		Usage:     "Insert a file's contents as a new entry (the daemon reads the path)",
		ArgsUsage: "FILE",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("insert requires a file path", 1)
			}
			return runCommand(c, protocol.NewInsert(c.Args().Get(0)))
		},
	}
}

func tagCmd() *cli.Command {
	return &cli.Command{
		Name:      "tag",
		Usage:     "Attach a tag to the entry at a position",
		ArgsUsage: "INDEX TAG",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("tag requires an index and a tag", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewTag(index, c.Args().Get(1)))
		},
	}
}

func untagCmd() *cli.Command {
	return &cli.Command{
		Name:      "untag",
		Usage:     "Remove a tag from the entry at a position",
		ArgsUsage: "INDEX TAG",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("untag requires an index and a tag", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewUntag(index, c.Args().Get(1)))
		},
	}
}

func pinCmd() *cli.Command {
	return &cli.Command{
		Name:      "pin",
		Usage:     "Pin the entry at a position under a one-character label",
		ArgsUsage: "INDEX CHAR",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("pin requires an index and a single character", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewPin(index, c.Args().Get(1)))
		},
	}
}

func unpinCmd() *cli.Command {
	return &cli.Command{
		Name:      "unpin",
		Usage:     "Clear the pin on the entry at a position",
		ArgsUsage: "INDEX",
		Flags:     []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("unpin requires an index", 1)
			}
			index, err := argIndex(c, 0)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			return runCommand(c, protocol.NewUnpin(index))
		},
	}
}

func selectCmd() *cli.Command {
	return &cli.Command{
		Name:  "select",
		Usage: "Filter entries by pin, tags, or substring",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pin", Aliases: []string{"p"}, Usage: "Match the entry pinned under this character"},
			&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Require this tag (repeatable; all must match)"},
			&cli.StringFlag{Name: "contains", Aliases: []string{"s"}, Usage: "Require this substring in the value"},
			jsonFlag(),
		},
		Action: func(c *cli.Context) error {
			return runCommand(c, protocol.NewSelect(c.String("pin"), c.StringSlice("tag"), c.String("contains")))
		},
	}
}

// bareCmd covers the commands that carry no arguments at all.
func bareCmd(name, usage string, t protocol.CommandType) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{jsonFlag()},
		Action: func(c *cli.Context) error {
			return runCommand(c, protocol.NewBare(t))
		},
	}
}

// argIndex parses the i-th positional argument as an entry position.
func argIndex(c *cli.Context, i int) (int, error) {
	n, err := strconv.Atoi(c.Args().Get(i))
	if err != nil {
		return 0, fmt.Errorf("invalid position %q", c.Args().Get(i))
	}
	return n, nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError turns an error into a non-zero exit. Daemon errors keep their
// code in the printed message.
func outputError(err error) error {
	if clipErr, ok := err.(*errors.ClipError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", clipErr.Code, clipErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
