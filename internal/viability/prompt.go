package viability

import (
	"fmt"
	"strings"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// DefaultAgencyProfile describes the agency whose services listings are
// judged against. Override it with viability.agency_profile.
const DefaultAgencyProfile = `Always Coded Fresh is a digital agency specializing in:
- Custom Web Development (full-stack, modern frameworks)
- Web Design (responsive, UX-focused)
- E-Commerce Solutions (online stores, payment integration)
- SEO Services (search engine optimization)
- Digital Marketing Strategy (paid ads, funnels, analytics)
- Video Editing & Post-Production (long-form, shorts, ads)
- Graphic, Brand & Social Content Design (thumbnails, decks, social media assets)

They work with startups and enterprises of all sizes and are based in New York.`

const systemPrompt = `You are a lead qualification specialist for a digital agency.

%s

Evaluate if this job listing is worth pursuing based on THREE STRICT criteria:

1. SERVICE FIT: Must CLEARLY match at least one of our core services. Be strict - vague mentions or tangentially related work don't qualify.

2. CONTACT LEAKAGE: Must provide actionable contact/research pathways (company name, website URL, social media profiles, email, phone, or specific person name).

3. COMPANY DETAILS: Must have CONCRETE company information - at minimum ONE of:
   - Specific company/business name (not just "my company" or industry descriptions)
   - Website URL or domain name
   - Social media profiles with actual handles/URLs
   - Contact person with name and role

CRITICAL: Generic descriptions like "consulting firm" or "startup" without actual company names do NOT qualify as company details.

Only mark viable=true if ALL THREE criteria are strictly met. When in doubt, mark as NOT viable.

Extract ALL available company details from the job posting. Look for:
- Explicit company names (not just business type descriptions)
- Complete website URLs (any domain mentions, even partial)
- Social media handles/URLs with actual profile names
- Specific contact person names and roles
- Direct contact information (email, phone)
- Location details that help identify the business

Respond ONLY with valid JSON (no markdown, no code blocks):
{
  "viable": true/false,
  "service_fit": "description of how it fits our services",
  "contact_info_found": "summary of what contact details are available",
  "company_details_present": "whether actual company details are mentioned",
  "reasoning": "brief explanation of viability decision covering all three criteria",
  "company_details": {
    "company_name": "extracted company name or null",
    "website_url": "full website URL (with https://) or null",
    "industry": "specific business type/industry or null",
    "location": {
      "city": "city name or null",
      "state": "state/province or null",
      "country": "country or null",
      "full_address": "complete address if mentioned or null"
    },
    "contact_person": {
      "name": "contact person name or null",
      "role": "job title/role or null",
      "email": "email address or null",
      "phone": "phone number or null"
    },
    "social_media": {
      "facebook": "full Facebook URL or null",
      "instagram": "full Instagram URL or null",
      "linkedin": "full LinkedIn URL or null",
      "twitter": "full Twitter URL or null",
      "youtube": "full YouTube URL or null",
      "tiktok": "full TikTok URL or null"
    },
    "business_info": {
      "size": "company size indicator (startup/small/medium/enterprise) or null",
      "founded": "founding year or null",
      "description": "brief business description if mentioned or null"
    }
  }
}`

const listingPrompt = `JOB LISTING:
Title: %s
Description: %s
URL: %s`

// BuildPrompt renders the classification prompt for lead. The agency profile
// and criteria go in the system part; the listing goes in the user part. A
// blank profile falls back to DefaultAgencyProfile.
func BuildPrompt(profile string, lead *model.Lead) Prompt {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultAgencyProfile
	}
	return Prompt{
		System: fmt.Sprintf(systemPrompt, profile),
		User:   fmt.Sprintf(listingPrompt, lead.Title, lead.Description, lead.URL),
	}
}
