package users

import "strings"

// DomainClass buckets an email domain for identity scoring.
type DomainClass string

const (
	// DomainClassAcademic marks educational TLDs.
	DomainClassAcademic DomainClass = "academic"
	// DomainClassResearchOrg marks domains on the research-organization list.
	DomainClassResearchOrg DomainClass = "research_org"
	// DomainClassOther marks every remaining domain.
	DomainClassOther DomainClass = "other"
)

// academicTLDs are educational top-level suffixes recognized for the
// academic identity bonus.
var academicTLDs = []string{".edu", ".ac.uk", ".edu.au", ".edu.cn", ".ac.jp", ".edu.sg"}

// researchOrgDomains is the fixed allow-list of known research
// organizations.
var researchOrgDomains = map[string]struct{}{
	"openai.com":    {},
	"anthropic.com": {},
	"deepmind.com":  {},
	"google.com":    {},
	"microsoft.com": {},
	"meta.com":      {},
	"apple.com":     {},
	"amazon.com":    {},
	"ibm.com":       {},
	"nvidia.com":    {},
	"intel.com":     {},
	"adobe.com":     {},
	"baidu.com":     {},
	"tencent.com":   {},
	"alibaba.com":   {},
}

// ClassifyEmailDomain buckets the domain of an email address. An academic
// TLD wins over a research-org listing when both would match.
func ClassifyEmailDomain(email string) DomainClass {
	domain := emailDomain(email)
	if domain == "" {
		return DomainClassOther
	}
	for _, tld := range academicTLDs {
		if strings.HasSuffix(domain, tld) {
			return DomainClassAcademic
		}
	}
	if _, ok := researchOrgDomains[domain]; ok {
		return DomainClassResearchOrg
	}
	return DomainClassOther
}

// IsRecognizedDomain reports whether the email belongs to an academic
// institution or a known research organization.
func IsRecognizedDomain(email string) bool {
	return ClassifyEmailDomain(email) != DomainClassOther
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
