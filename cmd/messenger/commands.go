package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saeid-a/VolunteerHub/internal/chatclient"
	"github.com/saeid-a/VolunteerHub/internal/messaging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newConversationsCmd() *cobra.Command {
	var show int64

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List conversations, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.close()

			session, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			out := cmd.OutOrStdout()
			if show == 0 {
				for _, conversation := range session.Conversations() {
					fmt.Fprintln(out, formatConversation(conversation))
				}
				return nil
			}

			conversation, ok := session.Select(cmd.Context(), show)
			if !ok {
				return fmt.Errorf("no conversation with participant %d", show)
			}
			fmt.Fprintln(out, formatConversation(conversation))
			for _, message := range conversation.Messages {
				fmt.Fprintln(out, formatMessage(conversation, message, app.userID))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&show, "show", 0, "print the messages of one conversation and mark it read")
	return cmd
}

func newSendCmd() *cobra.Command {
	var (
		to      int64
		body    string
		replyTo int64
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			if to <= 0 {
				return errors.New("--to is required")
			}
			if body == "" && len(args) > 0 {
				body = strings.Join(args, " ")
			}

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.close()

			session, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer session.Close()

			session.Select(cmd.Context(), to)
			if replyTo > 0 {
				if _, err := session.BeginReply(replyTo); err != nil {
					return fmt.Errorf("reply to %d: %w", replyTo, err)
				}
			}

			sent, err := session.Send(cmd.Context(), body)
			if err != nil {
				var apiErr *chatclient.APIError
				if errors.As(err, &apiErr) && apiErr.Temporary() {
					return fmt.Errorf("%w (try again shortly)", err)
				}
				return err
			}
			conversation, _ := session.Store().Select(to)
			fmt.Fprintln(cmd.OutOrStdout(), formatMessage(conversation, sent, app.userID))
			return nil
		},
	}
	cmd.Flags().Int64Var(&to, "to", 0, "participant id to message")
	cmd.Flags().StringVar(&body, "body", "", "message text (remaining arguments are used when empty)")
	cmd.Flags().Int64Var(&replyTo, "reply-to", 0, "id of the message being answered")
	return cmd
}

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream incoming messages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.close()

			out := cmd.OutOrStdout()
			var session *messaging.Session
			printLatest := func(participantID int64) {
				conversation, ok := session.Store().Select(participantID)
				if !ok || conversation.Latest == nil {
					return
				}
				fmt.Fprintln(out, formatMessage(conversation, *conversation.Latest, app.userID))
			}

			session, err = app.openSession(cmd.Context(), messaging.WithChangeHook(printLatest))
			if err != nil {
				return err
			}
			defer session.Close()

			sub, err := chatclient.Subscribe(cmd.Context(), app.cfg.APIURL, app.cfg.Token, app.logger.Named("channel"))
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			app.logger.Info("watching", zap.Int("conversations", session.Store().Len()))

			if err := session.Run(cmd.Context(), sub); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
	return cmd
}
