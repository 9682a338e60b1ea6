package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/memory"
	"github.com/urfave/cli/v3"
)

func searchCommand() *cli.Command {
	var (
		cfg          config
		query        string
		userID       string
		memoryType   string
		limit        int64
		useRetention bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "query",
			Aliases:     []string{"q"},
			Usage:       "Natural language query to search memories",
			Required:    true,
			Destination: &query,
		},
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID owning the memories",
			Required:    true,
			Sources:     cli.EnvVars("MEMBOX_USER_ID"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "type",
			Usage:       "Restrict results to one memory type",
			Destination: &memoryType,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"l"},
			Usage:       "Maximum number of results",
			Value:       5,
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "retention",
			Usage:       "Weight results by the forgetting curve",
			Destination: &useRetention,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Search memories by semantic similarity",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.setupLogger(ctx, os.Stderr)

			memUC, _, _, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			memUC.Activate(ctx)

			result, err := memUC.Search(ctx, memory.SearchInput{
				Query:        query,
				UserID:       userID,
				Type:         model.MemoryType(memoryType),
				Limit:        int(limit),
				UseRetention: useRetention,
			})
			if err != nil {
				return err
			}

			if len(result.Results) == 0 {
				fmt.Fprintln(c.Root().Writer, "No matching memories")
				return nil
			}

			for _, mem := range result.Results {
				if useRetention {
					fmt.Fprintf(c.Root().Writer, "[%s] %s (score=%.3f retention=%.2f combined=%.3f)\n",
						mem.Type, mem.Text, mem.Score, mem.Retention, mem.Combined)
					continue
				}
				fmt.Fprintf(c.Root().Writer, "[%s] %s (score=%.3f)\n", mem.Type, mem.Text, mem.Score)
			}

			return nil
		},
	}
}
