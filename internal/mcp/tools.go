package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var encodeToolDef = mcp.NewTool("piece_encode",
	mcp.WithDescription("Encode a MIDI file into token text. Optionally store the result for later retrieval."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the .mid or .midi file to encode."),
	),
	mcp.WithString("name",
		mcp.Description("Name for the piece. Defaults to the file's base name."),
	),
	mcp.WithBoolean("familize",
		mcp.Description("Collapse instrument programs to their family numbers. Defaults to the configured setting."),
	),
	mcp.WithBoolean("store",
		mcp.Description("Persist the encoded piece."),
	),
	mcp.WithString("notes",
		mcp.Description("Markdown notes to attach to the stored piece."),
	),
)

var decodeToolDef = mcp.NewTool("piece_decode",
	mcp.WithDescription("Decode token text back into a MIDI file. Provide exactly one of id and tokens."),
	mcp.WithString("id",
		mcp.Description("ID of a stored piece to decode."),
	),
	mcp.WithString("tokens",
		mcp.Description("Raw token text to decode."),
	),
	mcp.WithString("output",
		mcp.Required(),
		mcp.Description("Path of the .mid or .midi file to write."),
	),
	mcp.WithBoolean("familize",
		mcp.Description("Interpret INST values as family numbers. Ignored for stored pieces."),
	),
)

var listToolDef = mcp.NewTool("piece_list",
	mcp.WithDescription("List stored pieces, most recently updated first. Returns summaries without token text."),
	mcp.WithString("name",
		mcp.Description("Filter pieces by name substring."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of pieces to return."),
	),
)

var fetchToolDef = mcp.NewTool("piece_fetch",
	mcp.WithDescription("Fetch a stored piece by id, including its full token text."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ID of the piece to fetch."),
	),
)
