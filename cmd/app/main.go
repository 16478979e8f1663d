package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/trihash/internal"
	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/engine"
	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/frame"
	"github.com/starford/trihash/internal/sink"
	pkgconfig "github.com/starford/trihash/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "config/config.example.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// readRecords accepts one JSON object of string fields or an array of them.
func readRecords(r io.Reader) ([]map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var recs []map[string]string
		if err := json.Unmarshal([]byte(trimmed), &recs); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return recs, nil
	}
	var rec map[string]string
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []map[string]string{rec}, nil
}

func hash(ctx context.Context, cmd *cli.Command) error {
	set, err := frame.Load(cmd.String("frames"))
	if err != nil {
		return err
	}
	f, err := export.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	in := io.Reader(os.Stdin)
	if path := cmd.String("record"); path != "" && path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	recs, err := readRecords(in)
	if err != nil {
		return err
	}

	results, err := engine.New(set, nil).HashRecords(ctx, recs, int(cmd.Int("workers")))
	if err != nil {
		return err
	}

	var opts []export.Option
	if cmd.Bool("no-newlines") {
		opts = append(opts, export.WithoutNewlines())
	}
	var data []byte
	if len(results) == 1 {
		data, err = export.Export(results[0].Identifiers, f, opts...)
	} else {
		ms := make([]export.Mapping, len(results))
		for i, res := range results {
			ms[i] = res.Identifiers
		}
		data, err = export.ExportAll(ms, f, opts...)
	}
	if err != nil {
		return err
	}

	out := cmd.String("out")
	if out == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	dir, name := filepath.Split(out)
	if dir == "" {
		dir = "."
	}
	fs, err := sink.NewFS(dir)
	if err != nil {
		return err
	}
	_, err = fs.Write(name, data)
	return err
}

func decode(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("decode: segment or identifier argument required")
	}
	for _, arg := range cmd.Args().Slice() {
		segments := []string{arg}
		if utf8.RuneCountInString(arg) == composite.Len {
			id, err := composite.Parse(arg, 0)
			if err != nil {
				return err
			}
			segments = []string{id.SCH(), id.CUID(), id.UUID()}
		}
		for _, s := range segments {
			d, err := base96.Decode(s)
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", s, d)
		}
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "trihash",
		Usage:  "Trivariate hash engine: SCH-CUID-UUID identifiers for structured records",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "hash",
				Usage:     "Hash records read as JSON and print the export",
				ArgsUsage: " ",
				Action:    hash,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "frames",
						Aliases: []string{"f"},
						Usage:   "Path to the frame document",
						Value:   "config/frames.yaml",
						Sources: cli.EnvVars("TRIHASH_FRAMES"),
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "structured, compact, symbol or identifiers",
						Value: export.Structured.String(),
					},
					&cli.StringFlag{
						Name:  "record",
						Usage: "JSON file with a record object or an array of them; - for stdin",
						Value: "-",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Write the payload to this file instead of stdout",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent hashing goroutines",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "no-newlines",
						Usage: "Concatenate identifiers-only output",
					},
				},
			},
			{
				Name:      "decode",
				Usage:     "Decode Base96 segments or 48-symbol identifiers to hex",
				ArgsUsage: "SEGMENT...",
				Action:    decode,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
