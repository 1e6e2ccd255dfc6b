package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/shelf/internal"
	pkgconfig "github.com/starford/shelf/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Root.Path = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func scan(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sum, err := internal.Scan(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("scan error: %w", err)
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Printf("Indexed %s\n", sum.Root)
	green.Printf("  %d files, %d folders, %d schemas", sum.Files, sum.Folders, sum.Schemas)
	fmt.Printf(" in %s\n", sum.Took.Round(time.Millisecond))
	if sum.EmptySchemas > 0 {
		yellow.Printf("  %d schemas declare no fields\n", sum.EmptySchemas)
	}
	if sum.Problems != nil {
		yellow.Printf("  %d problems:\n", len(sum.Problems.Subs))
		for _, p := range sum.Problems.Subs {
			fmt.Printf("    %s %s\n", color.RedString("x"), p.Error())
		}
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "shelf",
		Usage:  "Incremental, schema-governed index of a Markdown folder tree",
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
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Root folder to index (overrides config)",
				Sources: cli.EnvVars("SHELF_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Watch the root and serve the HTTP API",
				Action: serve,
			},
			{
				Name:   "scan",
				Usage:  "Rebuild the index once and print a summary",
				Action: scan,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the index to LLM tools over MCP stdio",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
