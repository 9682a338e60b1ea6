package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/membox/pkg/controller/mcpserver"
	"github.com/urfave/cli/v3"
)

func mcpCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "mcp",
		Usage: "Expose memory operations as MCP tools over stdio",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the MCP protocol; logs must go to stderr
			ctx, logger := cfg.setupLogger(ctx, os.Stderr)

			memUC, _, _, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}

			migrated := memUC.Activate(ctx)
			logger.Info("sub-store activation finished", "migrated", migrated)

			return mcpserver.New(memUC).Run(ctx)
		},
	}
}
