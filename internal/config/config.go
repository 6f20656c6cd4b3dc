package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API    APIConfig
	Chat   ChatConfig
	Search SearchConfig
	Auth   AuthConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type ChatConfig struct {
	// BrokerURL is the SockJS base endpoint of the chat broker.
	BrokerURL        string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
}

type SearchConfig struct {
	Debounce        time.Duration
	SuggestDebounce time.Duration
	PageSize        int
}

type AuthConfig struct {
	// CredentialsFile overrides the default credential store location.
	CredentialsFile string
}

func LoadConfig() (*Config, error) {
	// Viper setup
	once.Do(func() {
		viper.SetDefault("CONSULT_API_URL", "http://localhost:8080")
		viper.SetDefault("CONSULT_API_TIMEOUT", 10*time.Second)
		viper.SetDefault("CONSULT_CHAT_URL", "http://localhost:8082/ws-chat")
		viper.SetDefault("CONSULT_CHAT_RECONNECT_DELAY", 5*time.Second)
		viper.SetDefault("CONSULT_CHAT_HANDSHAKE_TIMEOUT", 10*time.Second)
		viper.SetDefault("CONSULT_SEARCH_DEBOUNCE", 300*time.Millisecond)
		viper.SetDefault("CONSULT_SUGGEST_DEBOUNCE", 200*time.Millisecond)
		viper.SetDefault("CONSULT_SEARCH_PAGE_SIZE", 10)
		viper.SetDefault("CONSULT_CREDENTIALS_FILE", "")
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			API: APIConfig{
				BaseURL: viper.GetString("CONSULT_API_URL"),
				Timeout: viper.GetDuration("CONSULT_API_TIMEOUT"),
			},
			Chat: ChatConfig{
				BrokerURL:        viper.GetString("CONSULT_CHAT_URL"),
				ReconnectDelay:   viper.GetDuration("CONSULT_CHAT_RECONNECT_DELAY"),
				HandshakeTimeout: viper.GetDuration("CONSULT_CHAT_HANDSHAKE_TIMEOUT"),
			},
			Search: SearchConfig{
				Debounce:        viper.GetDuration("CONSULT_SEARCH_DEBOUNCE"),
				SuggestDebounce: viper.GetDuration("CONSULT_SUGGEST_DEBOUNCE"),
				PageSize:        viper.GetInt("CONSULT_SEARCH_PAGE_SIZE"),
			},
			Auth: AuthConfig{
				CredentialsFile: viper.GetString("CONSULT_CREDENTIALS_FILE"),
			},
		}
	})
	return ConfigInstance, nil
}
