package dispatch

import (
	"os"
	"strconv"
	"strings"

	"github.com/hpungsan/clipd/internal/protocol"
)

// execute runs one command against the store and reports whether the
// dispatcher should stop afterwards. Commands are validated on submission,
// so variant arguments are present here.
func (d *Dispatcher) execute(cmd protocol.Command) (protocol.Payload, bool) {
	switch cmd.Type {
	case protocol.CmdAdd:
		return d.addValue(strings.Join(cmd.Words, " "), "add"), false

	case protocol.CmdDel:
		from := *cmd.FromIndex
		to := from + 1
		if cmd.ToIndex != nil {
			to = *cmd.ToIndex
		}
		d.deps.Store.Delete(from, to)
		return protocol.Ok(), false

	case protocol.CmdList:
		from, to := 0, -1
		if cmd.FromIndex != nil {
			from = *cmd.FromIndex
		}
		if cmd.ToIndex != nil {
			to = *cmd.ToIndex
		}
		return protocol.List(d.deps.Store.Range(from, to), cmd.Preview), false

	case protocol.CmdGet:
		v, ok := d.deps.Store.Value(*cmd.Index)
		if !ok {
			return notFound(*cmd.Index), false
		}
		return protocol.Value(&v), false

	case protocol.CmdSet:
		v, ok := d.deps.Store.Value(*cmd.Index)
		if !ok {
			return notFound(*cmd.Index), false
		}
		if err := d.deps.Clipboard.Write(v); err != nil {
			return protocol.Messagef("failed to write clipboard: %v", err), false
		}
		return protocol.Ok(), false

	case protocol.CmdInsert:
		data, err := os.ReadFile(cmd.Filename)
		if err != nil {
			return protocol.Messagef("failed to read %s: %v", cmd.Filename, err), false
		}
		return d.addValue(string(data), "insert"), false

	case protocol.CmdTag:
		if !d.deps.Store.Tag(*cmd.Index, cmd.Tag) {
			return notFound(*cmd.Index), false
		}
		return protocol.Ok(), false

	case protocol.CmdUntag:
		if !d.deps.Store.Untag(*cmd.Index, cmd.Tag) {
			return notFound(*cmd.Index), false
		}
		return protocol.Ok(), false

	case protocol.CmdPin:
		if !d.deps.Store.Pin(*cmd.Index, cmd.PinChar) {
			return notFound(*cmd.Index), false
		}
		return protocol.Ok(), false

	case protocol.CmdUnpin:
		if !d.deps.Store.Unpin(*cmd.Index) {
			return notFound(*cmd.Index), false
		}
		return protocol.Ok(), false

	case protocol.CmdTags:
		return protocol.Message(strings.Join(d.deps.Store.Tags(), " ")), false

	case protocol.CmdCount:
		if err := d.deps.Store.Check(); err != nil {
			return protocol.Message(err.Error()), false
		}
		return protocol.Message(strconv.Itoa(d.deps.Store.Len())), false

	case protocol.CmdSelect:
		return protocol.List(d.deps.Store.Select(cmd.Pin, cmd.Tags, cmd.Substring), nil), false

	case protocol.CmdSave:
		if err := d.deps.DB.Save(d.deps.Store.Snapshot()); err != nil {
			d.deps.Log.Error("save failed", "path", d.deps.DB.Path, "error", err)
			return protocol.Messagef("failed to save db: %v", err), false
		}
		return protocol.Ok(), false

	case protocol.CmdLoad:
		entries, err := d.deps.DB.Load()
		if err != nil {
			d.deps.Log.Error("load failed", "path", d.deps.DB.Path, "error", err)
			return protocol.Messagef("failed to load db: %v", err), false
		}
		for _, v := range d.deps.Store.Merge(entries) {
			d.record("load", v)
		}
		return protocol.Ok(), false

	case protocol.CmdHelp:
		return protocol.Message(protocol.Usage), false

	case protocol.CmdQuit:
		return protocol.Stop(), true

	default:
		return protocol.Messagef("unknown command %q", string(cmd.Type)), false
	}
}

// addValue stores value, mirrors it to the clipboard and fans it out if the
// content was new. The entry stays in the store even when the clipboard
// write fails; only the mirroring is reported as broken.
func (d *Dispatcher) addValue(value, source string) protocol.Payload {
	if d.deps.Store.Insert(value) {
		d.record(source, value)
	}
	if err := d.deps.Clipboard.Write(value); err != nil {
		return protocol.Messagef("failed to write clipboard: %v", err)
	}
	return protocol.Ok()
}

func notFound(index int) protocol.Payload {
	return protocol.Messagef("item at %d not found", index)
}
