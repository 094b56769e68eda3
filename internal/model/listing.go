package model

import "strings"

// RawListing is a scraped or uploaded record keyed by URL. Nil fields were
// not provided and leave the stored lead untouched.
type RawListing struct {
	URL         string  `json:"url"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	PostedTime  *string `json:"posted_time,omitempty"`
	PostDate    *string `json:"post_date,omitempty"`
	JobLink     *string `json:"job_link,omitempty"`
	Source      *string `json:"source,omitempty"`
	ListingType *string `json:"listing_type,omitempty"`
	Fresh       *bool   `json:"fresh,omitempty"`

	Emails       []string `json:"emails,omitempty"`
	Phones       []string `json:"phones,omitempty"`
	WebsiteURL   *string  `json:"website_url,omitempty"`
	CompanyName  *string  `json:"company_name,omitempty"`
	Industry     *string  `json:"industry,omitempty"`
	City         *string  `json:"city,omitempty"`
	State        *string  `json:"state,omitempty"`
	Country      *string  `json:"country,omitempty"`
	ContactName  *string  `json:"contact_name,omitempty"`
	ContactEmail *string  `json:"contact_email,omitempty"`
	ContactPhone *string  `json:"contact_phone,omitempty"`
	ContactRole  *string  `json:"contact_role,omitempty"`
}

// ApplyTo copies every provided field onto l and returns the names of the
// fields it set. The URL is never changed.
func (r RawListing) ApplyTo(l *Lead) []string {
	var applied []string
	set := func(name string, dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			applied = append(applied, name)
		}
	}
	set("title", &l.Title, r.Title)
	set("description", &l.Description, r.Description)
	set("location", &l.Location, r.Location)
	set("posted_time", &l.PostedTime, r.PostedTime)
	set("post_date", &l.PostDate, r.PostDate)
	set("job_link", &l.JobLink, r.JobLink)
	set("source", &l.Source, r.Source)
	set("listing_type", &l.ListingType, r.ListingType)
	set("website_url", &l.WebsiteURL, r.WebsiteURL)
	set("company_name", &l.CompanyName, r.CompanyName)
	set("industry", &l.Industry, r.Industry)
	set("city", &l.City, r.City)
	set("state", &l.State, r.State)
	set("country", &l.Country, r.Country)
	set("contact_name", &l.ContactName, r.ContactName)
	set("contact_email", &l.ContactEmail, r.ContactEmail)
	set("contact_phone", &l.ContactPhone, r.ContactPhone)
	set("contact_role", &l.ContactRole, r.ContactRole)
	if r.Fresh != nil {
		l.Fresh = *r.Fresh
		applied = append(applied, "fresh")
	}
	if r.Emails != nil {
		l.Emails = CleanList(r.Emails)
		applied = append(applied, "emails")
	}
	if r.Phones != nil {
		l.Phones = CleanList(r.Phones)
		applied = append(applied, "phones")
	}
	return applied
}
