package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "KEMOHNO"
	defaultConfigPath = "./config.json"
)

func Execute() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kemohno",
		Short:         "Slack bot that reposts your messages as emoji",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().String("config", "", "Config file path (optional, defaults to ./config.json when present).")
	cmd.PersistentFlags().String("emoji", "", "Emoji pool path or http(s) URL (defaults to ./emoji.json).")
	cmd.PersistentFlags().String("log-level", "", "Logging level: debug|info|warn|error (defaults to info).")
	cmd.PersistentFlags().String("log-format", "text", "Logging format: text|json.")
	cmd.PersistentFlags().Bool("log-add-source", false, "Include source file:line in logs.")

	_ = viper.BindPFlag("config", cmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("emoji.source", cmd.PersistentFlags().Lookup("emoji"))
	_ = viper.BindPFlag("logging.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.add_source", cmd.PersistentFlags().Lookup("log-add-source"))

	initViperDefaults()

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTranslateCmd())
	return cmd
}

func initConfig() error {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// The names the bot has always been deployed with.
	_ = viper.BindEnv("port", "PORT", envPrefix+"_PORT")
	_ = viper.BindEnv("slack.signing_secret", "SLACK_SIGNING_SECRET", envPrefix+"_SLACK_SIGNING_SECRET")
	_ = viper.BindEnv("slack.bot_token", "SLACK_BOT_TOKEN", envPrefix+"_SLACK_BOT_TOKEN")
	_ = viper.BindEnv("slack.oauth_token", "SLACK_OAUTH_TOKEN", envPrefix+"_SLACK_OAUTH_TOKEN")

	path := viper.GetString("config")
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultConfigPath
	}
	viper.SetConfigFile(path)
	return viper.ReadInConfig()
}
