package assistant

import (
	"testing"

	"navira/internal/config"
)

func TestNewGatesOnFlagAndKey(t *testing.T) {
	if c := New(config.Config{AssistantEnabled: false, AnthropicAPIKey: "sk-test"}); c != nil {
		t.Fatal("disabled flag must yield nil client")
	}
	if c := New(config.Config{AssistantEnabled: true, AnthropicAPIKey: ""}); c != nil {
		t.Fatal("missing API key must yield nil client")
	}

	c := New(config.Config{AssistantEnabled: true, AnthropicAPIKey: "sk-test", AssistantModel: "m"})
	if c == nil {
		t.Fatal("flag plus key must yield a client")
	}
	if c.model != "m" {
		t.Fatalf("model=%q want m", c.model)
	}
}
