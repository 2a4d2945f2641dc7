package fetch

import (
	"net/url"
	"strings"
)

// Platform is a job board whose posting markup ForgeCV knows how to read.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformLinkedIn   Platform = "linkedin"
	PlatformIndeed     Platform = "indeed"
	PlatformUnknown    Platform = "unknown"
)

// board describes where a platform keeps the posting body and which blocks around it are
// application or compliance chrome that must not reach the JD analysis.
type board struct {
	platform Platform
	hosts    []string
	content  []string
	noise    []string
}

var boards = []board{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		content:  []string{".job__description.body", ".job__description", ".job-description__content", "#content", "#app_body", ".job-post-container"},
		noise:    []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		content:  []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		platform: PlatformWorkday,
		hosts:    []string{"myworkdayjobs.com", "workday.com"},
		content:  []string{"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']", ".gwt-HTML", ".job-description"},
		noise:    []string{"[data-automation-id='applyButton']", ".application-section"},
	},
	{
		platform: PlatformLinkedIn,
		hosts:    []string{"linkedin.com"},
		content:  []string{".jobs-description__content", ".description__text", ".jobs-box__html-content", "#job-details"},
		noise:    []string{".jobs-apply-button", ".top-card-layout__cta-container", ".similar-jobs", ".sign-up-modal"},
	},
	{
		platform: PlatformIndeed,
		hosts:    []string{"indeed.com"},
		content:  []string{"#jobDescriptionText", ".jobsearch-jobDescriptionText", "#jobDescription"},
		noise:    []string{"#applyButtonLinkContainer", ".jobsearch-JobComponent-footer", "#mosaic-belowFullJobDescription"},
	},
}

// commonNoise is stripped on every board: apply forms, EEO text, share widgets and consent
// banners. Page navigation is removed separately by ExtractMainText.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".application--container",
	".apply-button-container",
	"[data-testid='application-form']",
	".voluntary-disclosure",
	".eeo-statement",
	".eeo-section",
	"[data-testid='eeo']",
	".legal-disclosure",
	".self-identification",
	".social-share",
	".share-buttons",
	".social-links",
	".cookie-banner",
	".cookie-consent",
	".gdpr-notice",
}

// DetectPlatform names the board hosting a posting URL. A host matches a board when it is the
// board's domain or a subdomain of it.
func DetectPlatform(rawURL string) Platform {
	if b := lookupBoard(rawURL); b != nil {
		return b.platform
	}
	return PlatformUnknown
}

func lookupBoard(rawURL string) *board {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	for i := range boards {
		for _, h := range boards[i].hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return &boards[i]
			}
		}
	}
	return nil
}

func boardFor(p Platform) *board {
	for i := range boards {
		if boards[i].platform == p {
			return &boards[i]
		}
	}
	return nil
}

// PlatformContentSelectors lists the posting body selectors for p, most specific first.
// Unknown boards get the generic JobPostingSelectors.
func PlatformContentSelectors(p Platform) []string {
	if b := boardFor(p); b != nil {
		return b.content
	}
	return JobPostingSelectors()
}

// PlatformNoiseSelectors lists what to remove before reading a posting on p.
func PlatformNoiseSelectors(p Platform) []string {
	out := append([]string(nil), commonNoise...)
	if b := boardFor(p); b != nil {
		out = append(out, b.noise...)
	}
	return out
}

// workdayAPIURL maps a myworkdayjobs.com posting URL to its JSON endpoint. The first host label
// is the company and the first path segment the tenant. ok is false for other URLs.
func workdayAPIURL(u *url.URL) (apiURL, company string, ok bool) {
	host := strings.ToLower(u.Hostname())
	if !strings.HasSuffix(host, "myworkdayjobs.com") {
		return "", "", false
	}
	company = strings.Split(host, ".")[0]
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return "", "", false
	}
	tenant := parts[0]
	jobPath := strings.Join(parts[1:], "/")
	return "https://" + u.Host + "/wday/cxs/" + company + "/" + tenant + "/" + jobPath, company, true
}
