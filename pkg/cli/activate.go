package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func activateCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "activate",
		Usage: "Activate sub-store partitions and migrate matching records",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.setupLogger(ctx, os.Stderr)

			memUC, _, _, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}

			migrated := memUC.Activate(ctx)
			for name, count := range migrated {
				fmt.Fprintf(c.Root().Writer, "%s: migrated %d record(s)\n", name, count)
			}

			return nil
		},
	}
}
