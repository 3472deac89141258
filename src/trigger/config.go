package trigger

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey      string `envconfig:"QWEN_API_KEY" default:""`
	APIURL      string `envconfig:"QWEN_API_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1"`
	Model       string `envconfig:"QWEN_MODEL" default:"qwen-plus"`
	Temperature float64 `envconfig:"QWEN_TEMPERATURE" default:"0.1"`
	MaxTokens   int    `envconfig:"QWEN_MAX_TOKENS" default:"1000"`
	TimeoutS    int    `envconfig:"QWEN_TIMEOUT_SECONDS" default:"30"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
