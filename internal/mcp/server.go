package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/clipd/internal/config"
)

// Tool definitions. Index 0 is always the most recent entry; every
// positional argument below follows that convention.

var addToolDef = mcp.NewTool("clipboard_add",
	mcp.WithDescription("Store text at the front of the clipboard history and copy it to the system clipboard."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to store.")),
)

var deleteToolDef = mcp.NewTool("clipboard_delete",
	mcp.WithDescription("Remove the history entries in [from, to). Without to, removes the single entry at from. Out-of-range positions remove nothing."),
	mcp.WithNumber("from", mcp.Required(), mcp.Description("First position to remove.")),
	mcp.WithNumber("to", mcp.Description("Position to stop before (exclusive).")),
)

var listToolDef = mcp.NewTool("clipboard_list",
	mcp.WithDescription("List history entries from newest to oldest with previews, tags, pins, and timestamps."),
	mcp.WithNumber("from", mcp.Description("First position to include (default 0).")),
	mcp.WithNumber("to", mcp.Description("Position to stop before (default end of history).")),
	mcp.WithNumber("preview_length", mcp.Description("Width of the value preview; longer values are shortened.")),
)

var getToolDef = mcp.NewTool("clipboard_get",
	mcp.WithDescription("Return the full stored value at a history position."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
)

var setToolDef = mcp.NewTool("clipboard_set",
	mcp.WithDescription("Copy the value at a history position back to the system clipboard."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
)

var insertToolDef = mcp.NewTool("clipboard_insert",
	mcp.WithDescription("Read a file on the daemon's host and store its contents as a new history entry."),
	mcp.WithString("path", mcp.Required(), mcp.Description("File path readable by the daemon.")),
)

var tagToolDef = mcp.NewTool("clipboard_tag",
	mcp.WithDescription("Attach a tag to the entry at a history position."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to attach.")),
)

var untagToolDef = mcp.NewTool("clipboard_untag",
	mcp.WithDescription("Remove a tag from the entry at a history position. Removing an absent tag still succeeds."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
	mcp.WithString("tag", mcp.Required(), mcp.Description("Tag to remove.")),
)

var pinToolDef = mcp.NewTool("clipboard_pin",
	mcp.WithDescription("Pin the entry at a history position under a single character. A pin character names at most one entry; repinning moves it."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
	mcp.WithString("pin_char", mcp.Required(), mcp.Description("Single pin character.")),
)

var unpinToolDef = mcp.NewTool("clipboard_unpin",
	mcp.WithDescription("Clear the pin on the entry at a history position."),
	mcp.WithNumber("index", mcp.Required(), mcp.Description("History position.")),
)

var tagsToolDef = mcp.NewTool("clipboard_tags",
	mcp.WithDescription("List every tag in use across the history, sorted."),
)

var countToolDef = mcp.NewTool("clipboard_count",
	mcp.WithDescription("Return the number of history entries."),
)

var saveToolDef = mcp.NewTool("clipboard_save",
	mcp.WithDescription("Write the history to the daemon's configured db file."),
)

var loadToolDef = mcp.NewTool("clipboard_load",
	mcp.WithDescription("Merge the daemon's configured db file into the history. Known values keep their position; unseen ones append at the back."),
)

var selectToolDef = mcp.NewTool("clipboard_select",
	mcp.WithDescription("Filter history entries. Filters compose with AND; with no filters the result is empty."),
	mcp.WithString("pin", mcp.Description("Match the entry pinned under this character.")),
	mcp.WithArray("tags", mcp.Description("Match entries carrying every listed tag."),
		mcp.Items(map[string]any{"type": "string"})),
	mcp.WithString("substring", mcp.Description("Match entries whose value contains this substring.")),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"clipboard_add": {
		def:     addToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAdd },
	},
	"clipboard_delete": {
		def:     deleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"clipboard_list": {
		def:     listToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"clipboard_get": {
		def:     getToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGet },
	},
	"clipboard_set": {
		def:     setToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSet },
	},
	"clipboard_insert": {
		def:     insertToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInsert },
	},
	"clipboard_tag": {
		def:     tagToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTag },
	},
	"clipboard_untag": {
		def:     untagToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUntag },
	},
	"clipboard_pin": {
		def:     pinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePin },
	},
	"clipboard_unpin": {
		def:     unpinToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUnpin },
	},
	"clipboard_tags": {
		def:     tagsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTags },
	},
	"clipboard_count": {
		def:     countToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCount },
	},
	"clipboard_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"clipboard_load": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"clipboard_select": {
		def:     selectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSelect },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with the clipboard tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(daemon Commander, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"clipd",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(daemon)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(daemon Commander, cfg *config.Config, version string) error {
	return server.ServeStdio(NewServer(daemon, cfg, version))
}
