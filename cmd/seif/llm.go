package main

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rahul/seif/pkg/config"
)

// newModel initializes the default enabled provider.
func newModel(cfg *config.Config) (llms.Model, config.ProviderConfig, error) {
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		return nil, pCfg, fmt.Errorf("no enabled provider found in config")
	}

	var (
		llm llms.Model
		err error
	)
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{
			ollama.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(pCfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, pCfg, fmt.Errorf("provider %s is not supported", pName)
	}
	if err != nil {
		return nil, pCfg, fmt.Errorf("failed to initialize %s: %w", pName, err)
	}
	return llm, pCfg, nil
}
