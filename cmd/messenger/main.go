// Command messenger is a terminal client for the message service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saeid-a/VolunteerHub/internal/chatclient"
	"github.com/saeid-a/VolunteerHub/internal/config"
	"github.com/saeid-a/VolunteerHub/internal/logging"
	"github.com/saeid-a/VolunteerHub/internal/messaging"
	"github.com/saeid-a/VolunteerHub/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "messenger",
		Short:         "Read and send VolunteerHub messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newConversationsCmd(), newSendCmd(), newWatchCmd())
	return root
}

// clientApp holds what every subcommand needs: who the user is and how to
// reach the service.
type clientApp struct {
	cfg    *config.ClientConfig
	logger *zap.Logger
	api    *chatclient.APIClient
	userID int64
}

func newClientApp() (*clientApp, error) {
	cfg := config.LoadClientConfig()
	if cfg.Token == "" {
		return nil, fmt.Errorf("VOLUNTEERHUB_TOKEN is required")
	}
	userID, err := utils.UserIDFromToken(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &clientApp{
		cfg:    cfg,
		logger: logger,
		api:    chatclient.NewAPIClient(cfg.APIURL, cfg.Token),
		userID: userID,
	}, nil
}

func (a *clientApp) openSession(ctx context.Context, opts ...messaging.SessionOption) (*messaging.Session, error) {
	records, err := a.api.LoadConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}

	opts = append([]messaging.SessionOption{
		messaging.WithLogger(a.logger.Named("session")),
		messaging.WithHighlightDuration(a.cfg.HighlightDuration),
	}, opts...)
	return messaging.NewSession(a.userID, records, a.api, opts...), nil
}

func (a *clientApp) close() {
	_ = a.logger.Sync()
}
