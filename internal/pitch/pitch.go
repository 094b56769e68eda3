// Package pitch drafts email and SMS outreach for leads that have contact
// details, using the same AI Sender as the viability stage.
package pitch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alwayscodedfresh/lead-cli/internal/batch"
	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
	"github.com/alwayscodedfresh/lead-cli/internal/viability"
)

const DefaultBatchLimit = 20

const systemPrompt = `You are an expert marketing assistant writing outreach on behalf of this agency:

%s

Generate an email pitch and an SMS pitch for the job listing you are given.

The email pitch should be professional, address the client's needs and explain why our services are a good fit. Keep it well-formatted with line breaks.

The SMS pitch should be concise and highlight the key value points to catch the client's attention.

Respond ONLY with valid JSON (no markdown, no code blocks):
{
  "email_pitch": "the email pitch",
  "sms_pitch": "the SMS pitch"
}`

const listingPrompt = `Job Title: %s
Job Description: %s
Company: %s
Contact Name: %s
Contact Emails: %s
Contact Phones: %s`

// LeadStore is the repository subset the generator needs.
type LeadStore interface {
	Query(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	Update(ctx context.Context, lead *model.Lead, columns ...string) error
}

// Pitch is the generated outreach copy.
type Pitch struct {
	EmailPitch string `json:"email_pitch"`
	SMSPitch   string `json:"sms_pitch"`
}

// Generator runs the pitch stage.
type Generator struct {
	sender      viability.Sender
	store       LeadStore
	profile     string
	minInterval time.Duration
	now         func() time.Time
}

// NewGenerator creates a Generator. A blank profile uses the viability
// default. minInterval spaces AI calls in batch mode.
func NewGenerator(sender viability.Sender, st LeadStore, profile string, minInterval time.Duration) *Generator {
	if strings.TrimSpace(profile) == "" {
		profile = viability.DefaultAgencyProfile
	}
	return &Generator{
		sender:      sender,
		store:       st,
		profile:     profile,
		minInterval: minInterval,
		now:         time.Now,
	}
}

// BuildPrompt renders the pitch request for lead.
func BuildPrompt(profile string, lead *model.Lead) viability.Prompt {
	emails := append([]string{}, lead.Emails...)
	if lead.ContactEmail != "" {
		emails = append(emails, lead.ContactEmail)
	}
	phones := append([]string{}, lead.Phones...)
	if lead.ContactPhone != "" {
		phones = append(phones, lead.ContactPhone)
	}
	return viability.Prompt{
		System: fmt.Sprintf(systemPrompt, strings.TrimSpace(profile)),
		User: fmt.Sprintf(listingPrompt, lead.Title, lead.Description, lead.CompanyName, lead.ContactName,
			strings.Join(model.CleanList(emails), ", "), strings.Join(model.CleanList(phones), ", ")),
	}
}

// ParseResponse decodes the model reply. Escaped newlines in the email are
// expanded. A reply with neither pitch is an error.
func ParseResponse(raw string) (Pitch, error) {
	obj, ok := viability.ExtractJSONObject(raw)
	if !ok {
		return Pitch{}, &model.ClassificationParseError{Raw: raw}
	}
	var body struct {
		EmailPitch model.Text `json:"email_pitch"`
		SMSPitch   model.Text `json:"sms_pitch"`
	}
	if err := json.Unmarshal([]byte(obj), &body); err != nil {
		return Pitch{}, &model.ClassificationParseError{Raw: raw, Err: err}
	}
	p := Pitch{
		EmailPitch: strings.TrimSpace(strings.ReplaceAll(string(body.EmailPitch), `\n`, "\n")),
		SMSPitch:   strings.TrimSpace(string(body.SMSPitch)),
	}
	if p.EmailPitch == "" && p.SMSPitch == "" {
		return Pitch{}, &model.ClassificationParseError{Raw: raw, Err: eris.New("response has no pitch")}
	}
	return p, nil
}

// reachable reports whether lead has an email or phone to send a pitch to.
func reachable(lead *model.Lead) bool {
	return len(lead.Emails) > 0 || len(lead.Phones) > 0 || lead.ContactEmail != "" || lead.ContactPhone != ""
}

// Generate drafts outreach for lead and saves the pitch columns. A lead
// without an email or phone is rejected. On failure the lead is left as is.
func (g *Generator) Generate(ctx context.Context, lead *model.Lead) (Pitch, error) {
	if !reachable(lead) {
		return Pitch{}, &model.ValidationError{Field: "contacts", Reason: "lead has no email or phone"}
	}
	raw, err := g.sender.Send(ctx, BuildPrompt(g.profile, lead))
	if err != nil {
		return Pitch{}, &model.ClassificationServiceError{Err: err}
	}
	p, err := ParseResponse(raw)
	if err != nil {
		return Pitch{}, err
	}

	lead.MarkPitched(p.EmailPitch, p.SMSPitch, g.now().UTC())
	if err := g.store.Update(ctx, lead, store.PitchColumns...); err != nil {
		return p, eris.Wrapf(err, "pitch: save lead %s", lead.ID)
	}
	zap.L().Info("pitch generated", zap.String("lead_id", lead.ID), zap.Int("email_len", len(p.EmailPitch)))
	return p, nil
}

// GenerateBatch drafts outreach for leads with contact details and no pitch
// yet, newest first.
func (g *Generator) GenerateBatch(ctx context.Context, limit int) (batch.Result, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	leads, err := g.store.Query(ctx, store.LeadFilter{HasContacts: true, Unpitched: true, Limit: limit})
	if err != nil {
		return batch.Result{Errors: []string{}}, eris.Wrap(err, "pitch: select batch")
	}

	var limiter *rate.Limiter
	if g.minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(g.minInterval), 1)
	}
	return batch.Run(ctx, leads, batch.Options{Stage: metrics.StagePitch, Limiter: limiter},
		func(ctx context.Context, lead *model.Lead) (bool, error) {
			_, err := g.Generate(ctx, lead)
			return false, err
		}), nil
}
