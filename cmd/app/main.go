package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/davecgh/go-spew/spew"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/ecowise/idftab/internal"
	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/idd"
	"github.com/ecowise/idftab/internal/idf"
	"github.com/ecowise/idftab/internal/mcpserver"
	"github.com/ecowise/idftab/internal/tabulate"
	pkgconfig "github.com/ecowise/idftab/pkg/config"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// cliService builds a catalog-only service for offline commands.
func cliService(schemaDir string) (*convert.Service, error) {
	sources, err := idd.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	versions, bad, err := idd.Load(sources)
	if err != nil {
		return nil, fmt.Errorf("load schemas: %w", err)
	}
	for _, srcErr := range bad {
		slog.Warn("schema source rejected", slog.String("error", srcErr.Error()))
	}
	catalog := idd.NewCatalog(versions)
	return convert.NewService(catalog, nil, nil, nil, nil), nil
}

func convertCmd(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("at least one IDF file is required")
	}

	svc, err := cliService(cmd.String("schemas"))
	if err != nil {
		return err
	}

	reqs := make([]convert.ConvertRequest, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		reqs = append(reqs, convert.ConvertRequest{
			Name:         filepath.Base(f),
			Text:         string(data),
			Version:      cmd.String("version"),
			AllSheetOnly: cmd.Bool("all-sheet"),
		})
	}

	results, err := svc.ConvertAll(ctx, reqs)
	if err != nil {
		return err
	}

	outDir := cmd.String("out-dir")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	for i, res := range results {
		name := strings.TrimSuffix(reqs[i].Name, filepath.Ext(reqs[i].Name)) + ".zip"
		outPath := filepath.Join(outDir, name)
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		if err := tabulate.RenderWorkbook(res.Output, f, reqs[i].AllSheetOnly); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", outPath, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		if res.Warning != "" {
			slog.Warn("version mismatch", slog.String("file", reqs[i].Name), slog.String("warning", res.Warning))
		}
		fmt.Printf("%s: version %s, %d objects, %d rows -> %s\n",
			reqs[i].Name, res.Version, res.Stats.Objects, res.Stats.Rows, outPath)
	}
	return nil
}

func updateCmd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one IDF file is required")
	}
	idfPath := cmd.Args().First()

	svc, err := cliService(cmd.String("schemas"))
	if err != nil {
		return err
	}

	text, err := os.ReadFile(idfPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", idfPath, err)
	}
	rowsFile, err := os.Open(cmd.String("rows"))
	if err != nil {
		return fmt.Errorf("open rows file: %w", err)
	}
	rows, err := tabulate.ParseRowsCSV(rowsFile)
	rowsFile.Close()
	if err != nil {
		return fmt.Errorf("parse rows file: %w", err)
	}

	res, err := svc.Update(ctx, convert.UpdateRequest{
		Name:       filepath.Base(idfPath),
		Text:       string(text),
		Version:    cmd.String("version"),
		EditedRows: rows,
		Verify:     cmd.Bool("verify"),
	})
	if err != nil {
		return err
	}

	outPath := cmd.String("out")
	if outPath == "" {
		outPath = idfPath
	}
	if err := os.WriteFile(outPath, []byte(res.Text), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("%s: version %s, %d of %d values updated -> %s\n",
		filepath.Base(idfPath), res.Version, res.Report.Applied, res.Report.Total, outPath)
	for _, e := range res.Report.Edits {
		fmt.Printf("  %s %q %s: %s -> %s\n", e.ObjectType, e.ObjectName, e.FieldName, e.OldValue, e.NewValue)
	}
	for _, w := range res.Report.Warnings {
		slog.Warn(w)
	}
	return nil
}

func versionsCmd(_ context.Context, cmd *cli.Command) error {
	svc, err := cliService(cmd.String("schemas"))
	if err != nil {
		return err
	}
	for _, tag := range svc.Versions() {
		fmt.Println(tag)
	}
	return nil
}

func inspectCmd(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("exactly one IDF file is required")
	}
	data, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return err
	}
	doc, err := idf.Parse(string(data))
	if err != nil {
		return err
	}

	if cmd.Bool("dump") {
		spew.Fdump(os.Stdout, doc)
		return nil
	}

	fmt.Printf("version: %s\n", doc.VersionTag)
	fmt.Printf("instances: %d\n", len(doc.Instances))
	counts := make(map[string]int)
	var order []string
	for _, inst := range doc.Instances {
		if counts[inst.Type] == 0 {
			order = append(order, inst.Type)
		}
		counts[inst.Type]++
	}
	for _, typ := range order {
		fmt.Printf("  %-40s %d\n", typ, counts[typ])
	}
	return nil
}

func mcpCmd(_ context.Context, cmd *cli.Command) error {
	svc, err := cliService(cmd.String("schemas"))
	if err != nil {
		return err
	}
	return mcpserver.New(svc).ServeStdio()
}

func schemasFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "schemas",
		Usage:   "Directory with IDD schema files",
		Value:   "./schemas",
		Sources: cli.EnvVars("IDFTAB_SCHEMA_DIR"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "idftab",
		Usage: "Convert EnergyPlus IDF documents to tabular sheets and write edits back",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
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
			},
			{
				Name:      "convert",
				Usage:     "Convert IDF files to workbook archives",
				ArgsUsage: "FILE...",
				Action:    convertCmd,
				Flags: []cli.Flag{
					schemasFlag(),
					&cli.StringFlag{Name: "version", Usage: "Schema version override"},
					&cli.BoolFlag{Name: "all-sheet", Usage: "Render only the consolidated sheet"},
					&cli.StringFlag{Name: "out-dir", Usage: "Output directory", Value: "."},
				},
			},
			{
				Name:      "update",
				Usage:     "Write an edited sheet back into an IDF file",
				ArgsUsage: "FILE",
				Action:    updateCmd,
				Flags: []cli.Flag{
					schemasFlag(),
					&cli.StringFlag{Name: "rows", Usage: "Edited sheet CSV", Required: true},
					&cli.StringFlag{Name: "out", Usage: "Output path (defaults to in-place)"},
					&cli.StringFlag{Name: "version", Usage: "Schema version override"},
					&cli.BoolFlag{Name: "verify", Usage: "Re-parse and verify the updated document", Value: true},
				},
			},
			{
				Name:   "versions",
				Usage:  "List available schema versions",
				Action: versionsCmd,
				Flags:  []cli.Flag{schemasFlag()},
			},
			{
				Name:      "inspect",
				Usage:     "Show the structure of an IDF file",
				ArgsUsage: "FILE",
				Action:    inspectCmd,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dump", Usage: "Dump the full parsed document"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdin/stdout",
				Action: mcpCmd,
				Flags:  []cli.Flag{schemasFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
