package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/membox/pkg/model"
	"github.com/m-mizutani/membox/pkg/usecase/chat"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User ID owning the memories",
			Required:    true,
			Sources:     cli.EnvVars("MEMBOX_USER_ID"),
			Destination: &userID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive memory-aware chat",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, _ = cfg.setupLogger(ctx, os.Stderr)

			memUC, _, gemini, err := cfg.newMemoryUseCase(ctx)
			if err != nil {
				return err
			}
			memUC.Activate(ctx)

			chatUC := chat.New(memUC, gemini)

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			var messages []model.Message
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				messages = append(messages, model.Message{Role: "user", Content: line})

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()

				out, err := chatUC.Complete(ctx, chat.Input{
					Messages: messages,
					UserID:   userID,
				})
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to generate response")
				}

				fmt.Fprintf(c.Root().Writer, "%s\n", out.Message)
				messages = append(messages, model.Message{Role: "assistant", Content: out.Message})
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
