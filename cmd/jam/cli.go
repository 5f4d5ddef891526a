package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/ops"
	"github.com/misnaej/the-jam-machine/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	tok := &ops.MIDITokenizer{}
	app := &cli.App{
		Name:    "jam",
		Usage:   "MIDI piece tokenizer",
		Version: Version,
		Commands: []*cli.Command{
			encodeCmd(db, cfg, tok),
			decodeCmd(db, cfg, tok),
			importCmd(db, cfg, tok),
			listCmd(db, cfg),
			fetchCmd(db, cfg),
			deleteCmd(db, cfg),
			statsCmd(db, cfg),
			annotateCmd(db, cfg),
			webCmd(db, cfg, tok),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// encodeCmd creates the encode command.
func encodeCmd(db *sql.DB, cfg *config.Config, tok ops.Tokenizer) *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Encode a MIDI file to token text",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Piece name (defaults to file name)"},
			&cli.BoolFlag{Name: "familize", Usage: "Collapse instrument programs to family numbers"},
			&cli.BoolFlag{Name: "store", Aliases: []string{"s"}, Usage: "Store the encoded piece"},
			&cli.StringFlag{Name: "notes", Usage: "Markdown notes to attach to the stored piece"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("path argument is required"))
			}

			input := ops.EncodeInput{
				Path:  c.Args().First(),
				Name:  c.String("name"),
				Store: c.Bool("store"),
			}
			if c.IsSet("familize") {
				familize := c.Bool("familize")
				input.Familize = &familize
			}
			if notes := c.String("notes"); notes != "" {
				input.Notes = &notes
			}

			output, err := ops.Encode(c.Context, db, cfg, tok, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// decodeCmd creates the decode command.
func decodeCmd(db *sql.DB, cfg *config.Config, tok ops.Tokenizer) *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Decode token text to a MIDI file (reads tokens from stdin unless --id is given)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Stored piece ID to decode"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "Output MIDI file path"},
			&cli.BoolFlag{Name: "familize", Usage: "Interpret INST values as family numbers"},
		},
		Action: func(c *cli.Context) error {
			input := ops.DecodeInput{
				ID:     c.String("id"),
				Output: c.String("output"),
			}
			if c.IsSet("familize") {
				familize := c.Bool("familize")
				input.Familize = &familize
			}

			if input.ID == "" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("token text must be piped via stdin (or use --id)"))
				}
				tokens, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Tokens = tokens
			}

			output, err := ops.Decode(c.Context, db, cfg, tok, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, tok ops.Tokenizer) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Encode and store every MIDI file under a directory",
		ArgsUsage: "<dir>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "familize", Usage: "Collapse instrument programs to family numbers"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "Number of parallel encoders (default: one per CPU)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("dir argument is required"))
			}

			input := ops.ImportInput{
				Dir:     c.Args().First(),
				Workers: c.Int("workers"),
			}
			if c.IsSet("familize") {
				familize := c.Bool("familize")
				input.Familize = &familize
			}

			output, err := ops.Import(c.Context, db, cfg, tok, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored pieces",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Filter by name substring"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, cfg, ops.ListInput{
				Name:  c.String("name"),
				Limit: c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a stored piece by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}

			output, err := ops.Fetch(c.Context, db, cfg, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a stored piece",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}

			output, err := ops.Delete(c.Context, db, cfg, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Summarize the stored corpus",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, db, cfg)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// annotateCmd creates the annotate command.
func annotateCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Usage:     "Set or clear a piece's markdown notes (reads notes from stdin; empty clears)",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("id argument is required"))
			}

			input := ops.AnnotateInput{ID: c.Args().First()}
			if stdinHasData() {
				notes, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				input.Notes = notes
			}

			output, err := ops.Annotate(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// webCmd creates the web command.
func webCmd(db *sql.DB, cfg *config.Config, tok ops.Tokenizer) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the JSON API and piece viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8737, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, tok, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if jamErr, ok := err.(*errors.JamError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", jamErr.Code, jamErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
