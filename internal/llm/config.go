// Package llm provides the Generator used by the interview session and the
// report pipeline: role-tagged messages in, text out.
package llm

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for short conversational text: greetings and closing messages
	TierLite ModelTier = "lite"
	// TierStandard is for interview questions, likelihood analysis and narratives
	TierStandard ModelTier = "standard"
	// TierAdvanced is for structured evaluation: reports and per-question breakdowns
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// ProviderGemini is the Google Gemini provider
const ProviderGemini Provider = "gemini"

// Config holds the model configuration for the application
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	Temperature float32
}

// DefaultConfig returns the default configuration (currently Gemini)
func DefaultConfig() *Config {
	return DefaultGeminiConfig()
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: 0.7,
	}
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := &Config{
		Provider:    c.Provider,
		Models:      make(map[ModelTier]string),
		Temperature: c.Temperature,
	}
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return newConfig
}
