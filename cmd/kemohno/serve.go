package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jacob-ian/kemohno"
	"github.com/jacob-ian/kemohno/bot"
	"github.com/jacob-ian/kemohno/internal/logutil"
	"github.com/jacob-ian/kemohno/profile"
	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [emoji-source]",
		Short: "Serve the Slack command, shortcut and event routes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				viper.Set("emoji.source", args[0])
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 4567, "Port to listen on.")
	cmd.Flags().String("path-prefix", "", "Path prefix of the Slack routes.")
	cmd.Flags().String("signing-secret", "", "Slack signing secret.")
	cmd.Flags().String("bot-token", "", "Slack bot token (xoxb-...).")
	cmd.Flags().String("oauth-token", "", "Slack token used for users.profile.get (defaults to the bot token).")
	cmd.Flags().String("user-seed", "", "JSON file of user IDs to fixed names and avatars.")
	cmd.Flags().String("command", bot.DefaultCommand, "Slash command to answer.")

	_ = viper.BindPFlag("port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("path_prefix", cmd.Flags().Lookup("path-prefix"))
	_ = viper.BindPFlag("slack.signing_secret", cmd.Flags().Lookup("signing-secret"))
	_ = viper.BindPFlag("slack.bot_token", cmd.Flags().Lookup("bot-token"))
	_ = viper.BindPFlag("slack.oauth_token", cmd.Flags().Lookup("oauth-token"))
	_ = viper.BindPFlag("users.seed", cmd.Flags().Lookup("user-seed"))
	_ = viper.BindPFlag("bot.command", cmd.Flags().Lookup("command"))

	return cmd
}

func runServe(ctx context.Context) error {
	logger, err := logutil.LoggerFromViper()
	if err != nil {
		return err
	}

	signingSecret := strings.TrimSpace(viper.GetString("slack.signing_secret"))
	if signingSecret == "" {
		return errors.New("missing slack.signing_secret (set via --signing-secret or SLACK_SIGNING_SECRET)")
	}
	botToken := strings.TrimSpace(viper.GetString("slack.bot_token"))
	if botToken == "" {
		return errors.New("missing slack.bot_token (set via --bot-token or SLACK_BOT_TOKEN)")
	}
	oauthToken := strings.TrimSpace(viper.GetString("slack.oauth_token"))
	if oauthToken == "" {
		oauthToken = botToken
	}

	logger.Info("Loading emoji pool", "source", viper.GetString("emoji.source"))
	translator, err := loadTranslator(ctx, 0)
	if err != nil {
		return err
	}

	profiles, err := profile.LoadCache(slack.New(oauthToken), viper.GetString("users.seed"), logger)
	if err != nil {
		return err
	}

	router := http.NewServeMux()
	app := kemohno.New(kemohno.Config{
		Router:     router,
		PathPrefix: viper.GetString("path_prefix"),
		BotToken: func(teamID string) (string, error) {
			return botToken, nil
		},
		SigningSecret: signingSecret,
		Logger:        logger,
		ErrorMessage:  viper.GetString("slack.error_message"),
	})
	bot.New(bot.Config{
		Translator:       translator,
		Profiles:         profiles,
		Command:          viper.GetString("bot.command"),
		ActionCallbackID: viper.GetString("bot.action_callback_id"),
		MaxLength:        viper.GetInt("bot.max_length"),
		PostRetries:      viper.GetInt("bot.post_retries"),
		Logger:           logger,
	}).Register(app)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("port")),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", server.Addr)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("shutdown_timeout"))
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
