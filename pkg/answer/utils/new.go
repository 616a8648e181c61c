package answerutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/quarrylabs/quarry/pkg/answer"
	"github.com/quarrylabs/quarry/pkg/answer/ollama"
	"github.com/quarrylabs/quarry/pkg/answer/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	APIKey       string
	Model        string
	Logger       *zap.Logger
}

func NewGenerator(o *NewGeneratorOpts) (answer.Generator, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewOllamaGenerator(ollama.Config{
			URL:   o.TargetURL,
			Model: o.Model,
		}, o.Logger), nil
	case "openai":
		return openai.NewOpenAIGenerator(openai.Config{
			URL:    o.TargetURL,
			APIKey: o.APIKey,
			Model:  o.Model,
		}, o.Logger), nil
	default:
		return nil, fmt.Errorf("unsupported answer provider: %s", o.ProviderType)
	}
}
