package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luis-bzk/llm-agent/agent/turn"
)

var (
	chatFrom string
	chatTo   string
)

// chatCmd is a local REPL against the full pipeline, useful for trying a
// tenant's setup without a messaging channel in front.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive console session with the agent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if chatFrom == "" || chatTo == "" {
			return fmt.Errorf("--from and --to are required")
		}

		db, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		scheduler, err := buildScheduler(db)
		if err != nil {
			return err
		}

		fmt.Printf("Chatting as %s with %s. Type 'exit' to quit.\n", chatFrom, chatTo)
		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" {
				return nil
			}

			result, err := scheduler.HandleTurn(cmd.Context(), turn.TurnRequest{
				From: chatFrom,
				To:   chatTo,
				Text: text,
			})
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Println(result.Reply)
			if result.Escalated {
				fmt.Println("(flagged for human follow-up)")
			}
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatFrom, "from", "", "caller phone number")
	chatCmd.Flags().StringVar(&chatTo, "to", "", "business contact number")
}
