package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/table-reservation-agent/api"
)

func newChatCmd() *cobra.Command {
	var (
		contact    string
		restaurant string
		message    string
		reset      bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if restaurant == "" {
				restaurant = a.cfg.RestaurantID
			}
			if reset {
				if err := a.orchestrator.Reset(ctx, contact, restaurant); err != nil {
					return fmt.Errorf("reset conversation: %w", err)
				}
			}

			s := chatSession{chat: a.orchestrator, contact: contact, restaurant: restaurant, out: cmd.OutOrStdout()}
			if message != "" {
				return s.send(ctx, message)
			}
			return s.repl(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&contact, "contact", "0000000000", "contact number identifying the conversation")
	cmd.Flags().StringVar(&restaurant, "restaurant", "", "restaurant id (default APP_RESTAURANT_ID)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message and exit")
	cmd.Flags().BoolVar(&reset, "reset", false, "forget the stored conversation first")
	return cmd
}

type chatSession struct {
	chat       api.ChatService
	contact    string
	restaurant string
	out        io.Writer
}

func (s chatSession) send(ctx context.Context, text string) error {
	reply, err := s.chat.HandleMessage(ctx, orchestrator.Request{
		MessageID:     fmt.Sprintf("cli-%d", time.Now().UnixNano()),
		ContactNumber: s.contact,
		RestaurantID:  s.restaurant,
		Text:          text,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "assistant> %s\n", reply.Reply)
	return nil
}

func (s chatSession) repl(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, "you> ")
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		switch text {
		case "":
		case "exit", "quit":
			return nil
		default:
			if err := s.send(ctx, text); err != nil {
				fmt.Fprintf(s.out, "error: %v\n", err)
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, "you> ")
	}
	return scanner.Err()
}
