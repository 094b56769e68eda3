package viability

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

const (
	snippetParseFailure = "Analysis failed: JSON parsing error"
	snippetFailurePref  = "Analysis failed: "
)

// Merge applies a successful analysis to lead and returns the names of the
// company and contact columns it filled. Extracted fields only overwrite when
// they carry a value; the verdict, snippet and audit blob are always replaced.
func Merge(lead *model.Lead, a *model.ViabilityAnalysis, now time.Time) []string {
	var filled []string
	setIf := func(column string, dst *string, src *model.Text) {
		if v, ok := model.Present(src); ok {
			*dst = v
			filled = append(filled, column)
		}
	}

	if d := a.CompanyDetails; d != nil {
		setIf("company_name", &lead.CompanyName, d.CompanyName)
		setIf("website_url", &lead.WebsiteURL, d.WebsiteURL)
		setIf("industry", &lead.Industry, d.Industry)
		if loc := d.Location; loc != nil {
			setIf("city", &lead.City, loc.City)
			setIf("state", &lead.State, loc.State)
			setIf("country", &lead.Country, loc.Country)
		}
		if p := d.ContactPerson; p != nil {
			setIf("contact_name", &lead.ContactName, p.Name)
			setIf("contact_role", &lead.ContactRole, p.Role)
			setIf("contact_email", &lead.ContactEmail, p.Email)
			setIf("contact_phone", &lead.ContactPhone, p.Phone)
		}
		if s := d.SocialMedia; s != nil {
			setIf("facebook", &lead.Social.Facebook, s.Facebook)
			setIf("instagram", &lead.Social.Instagram, s.Instagram)
			setIf("linkedin", &lead.Social.LinkedIn, s.LinkedIn)
			setIf("twitter", &lead.Social.Twitter, s.Twitter)
			setIf("youtube", &lead.Social.YouTube, s.YouTube)
			setIf("tiktok", &lead.Social.TikTok, s.TikTok)
		}
	}

	lead.ClassificationSnippet = fmt.Sprintf("Service Fit: %s. Contact Info: %s", deref(a.ServiceFit), deref(a.ContactInfoFound))
	lead.MarkScannedForRelevance(a.Viable, nil, deref(a.Reasoning), now)
	lead.ViabilityAnalysis = a
	return filled
}

// MarkFailed records a terminal classification failure. The lead is marked
// not viable and scanned so it is not picked up again.
func MarkFailed(lead *model.Lead, cause error, now time.Time) *model.ViabilityAnalysis {
	a := &model.ViabilityAnalysis{
		Viable:                false,
		ContactInfoFound:      model.TextOf("N/A"),
		CompanyDetailsPresent: model.TextOf("N/A"),
		CompanyDetails:        &model.CompanyDetails{},
		Error:                 cause.Error(),
	}

	var pe *model.ClassificationParseError
	if errors.As(cause, &pe) {
		a.ServiceFit = model.TextOf("Error parsing response")
		a.Reasoning = model.TextOf("Failed to analyze due to parsing error")
		lead.ClassificationSnippet = snippetParseFailure
	} else {
		msg := failureMessage(cause)
		a.ServiceFit = model.TextOf("Analysis failed")
		a.Reasoning = model.TextOf("System error: " + msg)
		lead.ClassificationSnippet = snippetFailurePref + msg
	}

	lead.MarkScannedForRelevance(false, nil, deref(a.Reasoning), now)
	lead.ViabilityAnalysis = a
	return a
}

func failureMessage(err error) string {
	var se *model.ClassificationServiceError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}

func deref(s *model.Text) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(string(*s))
}
