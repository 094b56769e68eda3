package crawl

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// SiteProfile holds the URLs and selectors for one job site.
type SiteProfile struct {
	Name             string   `yaml:"name"`
	LoginURL         string   `yaml:"login_url"`
	LoggedInPatterns []string `yaml:"logged_in_patterns"`
	// SearchURLTemplate takes the 1-based page number as its only %d verb.
	SearchURLTemplate string          `yaml:"search_url_template"`
	TileLinkSelector  string          `yaml:"tile_link_selector"`
	TileDateSelector  string          `yaml:"tile_date_selector"`
	Detail            DetailSelectors `yaml:"detail"`
	Source            string          `yaml:"source"`
	ListingType       string          `yaml:"listing_type"`
}

// DetailSelectors locate listing fields on a detail page.
type DetailSelectors struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	Location     string `yaml:"location"`
	PostedTime   string `yaml:"posted_time"`
	OutboundLink string `yaml:"outbound_link"`
}

// DefaultSiteProfile returns the Upwork job search profile.
func DefaultSiteProfile() SiteProfile {
	return SiteProfile{
		Name:              "upwork",
		LoginURL:          "https://www.upwork.com/ab/account-security/login",
		LoggedInPatterns:  []string{"/home", "/nx/search/jobs"},
		SearchURLTemplate: "https://www.upwork.com/nx/search/jobs/?q=www&sort=recency&page=%d&per_page=50",
		TileLinkSelector:  "article[data-test='JobTile'] h2 a",
		TileDateSelector:  "article[data-test='JobTile'] small[data-test='job-pubilshed-date'] span:last-child",
		Detail: DetailSelectors{
			Title:        ".job-details-content h4",
			Description:  ".job-details-content [data-test='Description']",
			Location:     ".job-details-content [data-test='LocationLabel'] span",
			PostedTime:   ".job-details-content [data-test='PostedOn'] span",
			OutboundLink: ".job-details-content [data-test='Description'] a",
		},
		Source:      model.DefaultSource,
		ListingType: model.DefaultListingType,
	}
}

// LoadSiteProfile reads a YAML profile. Keys absent from the file keep the
// default Upwork values.
func LoadSiteProfile(path string) (SiteProfile, error) {
	p := DefaultSiteProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "crawl: read site profile %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, eris.Wrapf(err, "crawl: parse site profile %s", path)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks that the profile can drive a crawl.
func (p SiteProfile) Validate() error {
	switch {
	case p.LoginURL == "":
		return eris.New("crawl: site profile: login_url is required")
	case len(p.LoggedInPatterns) == 0:
		return eris.New("crawl: site profile: logged_in_patterns is required")
	case strings.Count(p.SearchURLTemplate, "%d") != 1:
		return eris.New("crawl: site profile: search_url_template needs exactly one %d")
	case p.TileLinkSelector == "" || p.TileDateSelector == "":
		return eris.New("crawl: site profile: tile selectors are required")
	}
	return nil
}
