package main

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/alwayscodedfresh/lead-cli/internal/config"
	"github.com/alwayscodedfresh/lead-cli/internal/contact"
	"github.com/alwayscodedfresh/lead-cli/internal/ingest"
	"github.com/alwayscodedfresh/lead-cli/internal/pitch"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
	"github.com/alwayscodedfresh/lead-cli/internal/viability"
	"github.com/alwayscodedfresh/lead-cli/pkg/anthropic"
	"github.com/alwayscodedfresh/lead-cli/pkg/openai"
)

// services bundles the stages that operate on stored leads.
type services struct {
	Store      store.Store
	Ingester   *ingest.Ingester
	Contacts   *contact.Service
	Classifier *viability.Classifier
	Pitcher    *pitch.Generator
}

// newServices wires the lead stages around st. The classifier and pitcher
// are nil when no AI provider key is configured.
func newServices(c *config.Config, st store.Store) *services {
	svc := &services{
		Store:    st,
		Ingester: ingest.New(st),
		Contacts: contact.NewService(st, c.Contacts.Concurrency),
	}
	if sender, err := newSender(c); err == nil {
		svc.Classifier = newClassifier(c, sender, st)
		svc.Pitcher = newPitcher(c, sender, st)
	}
	return svc
}

// newSender builds the Sender for the configured viability provider.
func newSender(c *config.Config) (viability.Sender, error) {
	switch c.Viability.Provider {
	case viability.ProviderAnthropic:
		if c.Anthropic.Key == "" {
			return nil, eris.New("anthropic api key is not configured")
		}
		client := anthropic.NewClient(c.Anthropic.Key)
		return viability.NewAnthropicSender(client, c.Anthropic.Model, c.Anthropic.MaxTokens), nil
	case viability.ProviderOpenAI:
		if c.OpenAI.Key == "" {
			return nil, eris.New("openai api key is not configured")
		}
		client := openai.NewClient(c.OpenAI.Key,
			openai.WithBaseURL(c.OpenAI.BaseURL),
			openai.WithModel(c.OpenAI.Model),
		)
		return viability.NewOpenAISender(client, c.OpenAI.Model), nil
	default:
		return nil, eris.Errorf("unsupported viability provider: %s", c.Viability.Provider)
	}
}

func newClassifier(c *config.Config, sender viability.Sender, st viability.LeadStore) *viability.Classifier {
	opts := []viability.Option{
		viability.WithMinInterval(time.Duration(c.Viability.MinIntervalMs) * time.Millisecond),
		viability.WithConcurrency(c.Viability.Concurrency),
	}
	if c.Viability.AgencyProfile != "" {
		opts = append(opts, viability.WithAgencyProfile(c.Viability.AgencyProfile))
	}
	return viability.NewClassifier(sender, st, opts...)
}

func newPitcher(c *config.Config, sender viability.Sender, st pitch.LeadStore) *pitch.Generator {
	return pitch.NewGenerator(sender, st, c.Viability.AgencyProfile,
		time.Duration(c.Viability.MinIntervalMs)*time.Millisecond)
}
