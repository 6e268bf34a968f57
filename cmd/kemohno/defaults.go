package main

import (
	"time"

	"github.com/jacob-ian/kemohno/bot"
	"github.com/jacob-ian/kemohno/emoji"
	"github.com/spf13/viper"
)

func initViperDefaults() {
	viper.SetDefault("port", 4567)
	viper.SetDefault("path_prefix", "")
	viper.SetDefault("shutdown_timeout", 10*time.Second)

	viper.SetDefault("emoji.source", "./emoji.json")
	viper.SetDefault("emoji.fetch_timeout", 30*time.Second)
	viper.SetDefault("emoji.escape_token", emoji.DefaultEscapeToken)
	viper.SetDefault("emoji.escape_replacement", emoji.DefaultEscapeReplacement)
	viper.SetDefault("emoji.max_retries", emoji.DefaultMaxRetries)

	viper.SetDefault("slack.signing_secret", "")
	viper.SetDefault("slack.bot_token", "")
	// Falls back to slack.bot_token when empty.
	viper.SetDefault("slack.oauth_token", "")
	viper.SetDefault("slack.error_message", "Something went wrong emojifying that, sorry!")

	viper.SetDefault("users.seed", "")

	viper.SetDefault("bot.command", bot.DefaultCommand)
	viper.SetDefault("bot.action_callback_id", bot.DefaultActionCallbackID)
	viper.SetDefault("bot.max_length", bot.DefaultMaxLength)
	viper.SetDefault("bot.post_retries", bot.DefaultPostRetries)

	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)
}

func translatorConfigFromViper() emoji.TranslatorConfig {
	return emoji.TranslatorConfig{
		EscapeToken:       viper.GetString("emoji.escape_token"),
		EscapeReplacement: viper.GetString("emoji.escape_replacement"),
		MaxRetries:        viper.GetInt("emoji.max_retries"),
	}
}
