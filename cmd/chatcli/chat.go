package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/syncclient"
)

func newChatCmd() *cobra.Command {
	var opts struct {
		Stream bool
		ChatID uint
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start or resume an interactive chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			transport := syncclient.NewHTTPTransport(rootOpts.Server, rootOpts.Token, nil)
			printer := &streamPrinter{}

			mode := syncclient.ModeWhole
			if opts.Stream {
				mode = syncclient.ModeIncremental
			}
			navigator := &syncclient.ViewNavigator{Loader: transport}
			session := syncclient.NewSession(transport, services.NewLogger("chatcli"),
				syncclient.WithMode(mode),
				syncclient.WithObserver(printer.observe),
				syncclient.WithNavigator(navigator),
			)
			navigator.Session = session

			if opts.ChatID != 0 {
				if err := navigator.Navigate(ctx, opts.ChatID); err != nil {
					return err
				}
				title("chat %d", opts.ChatID)
				for _, m := range session.Snapshot().Messages {
					printMessage(m)
				}
			} else {
				title("new chat")
			}

			return runLoop(ctx, session, printer, opts.Stream)
		},
	}

	cmd.Flags().BoolVar(&opts.Stream, "stream", false, "Show the reply as it arrives")
	cmd.Flags().UintVar(&opts.ChatID, "chat-id", 0, "Resume an existing chat")
	return cmd
}

func runLoop(ctx context.Context, session *syncclient.Session, printer *streamPrinter, stream bool) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		userColor.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "/quit" {
			return nil
		}

		before := len(session.Snapshot().Messages)
		printer.reset(before + 1)
		session.SetInput(line)

		err := session.Submit(ctx)
		switch {
		case errors.Is(err, syncclient.ErrEmptyInput):
			continue
		case err != nil:
			if stream {
				fmt.Println()
			}
			printError(err)
			continue
		}

		snap := session.Snapshot()
		if stream {
			fmt.Println()
		} else if len(snap.Messages) > 0 {
			printMessage(snap.Messages[len(snap.Messages)-1])
		}
		if snap.ChatID != nil {
			mutedColor.Printf("(chat %d, %d messages)\n", *snap.ChatID, len(snap.Messages))
		}
	}
}

// streamPrinter writes the growing assistant message while a reply streams in.
type streamPrinter struct {
	index   int
	printed int
}

func (p *streamPrinter) reset(assistantIndex int) {
	p.index = assistantIndex
	p.printed = 0
}

func (p *streamPrinter) observe(s syncclient.Snapshot) {
	if s.State != syncclient.StateStreaming || len(s.Messages) <= p.index {
		return
	}
	m := s.Messages[p.index]
	if m.Role != domain.RoleAssistant || len(m.Content) <= p.printed {
		return
	}
	if p.printed == 0 {
		assistantColor.Print("ai> ")
	}
	assistantColor.Print(m.Content[p.printed:])
	p.printed = len(m.Content)
}
