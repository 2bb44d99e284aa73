package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"babyprep/backend/internal/chatbot"
)

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message...>",
		Short: "Answer a question with the keyword chatbot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			if strings.TrimSpace(message) == "" {
				return errors.New("message is required")
			}
			cat, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			reply, matched := chatbot.Reply(message, cat.ChatRules())
			return writeJSON(cmd, map[string]any{
				"reply":   reply,
				"matched": matched,
			})
		},
	}
}
