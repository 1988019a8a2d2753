package pass

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

// maxFieldLength caps every free-text profile field (in characters).
const maxFieldLength = 256

// CardProfile is the tenant-scoped business card a pass is generated for.
//
// It is supplied by the business-card store and passed by value so it cannot change while a
// pass is being built.
type CardProfile struct {
	TenantID    string `json:"tenantId"`
	CardSerial  string `json:"cardSerial"`
	Name        string `json:"name"`
	Nickname    string `json:"nickname,omitempty"`
	Company     string `json:"company,omitempty"`
	Title       string `json:"title,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	PublicURL   string `json:"publicURL"`
	ColorScheme string `json:"colorScheme,omitempty"`
}

// Normalized returns a copy of the profile with surrounding whitespace removed from every field.
func (p CardProfile) Normalized() CardProfile {
	return CardProfile{
		TenantID:    strings.TrimSpace(p.TenantID),
		CardSerial:  strings.TrimSpace(p.CardSerial),
		Name:        strings.TrimSpace(p.Name),
		Nickname:    strings.TrimSpace(p.Nickname),
		Company:     strings.TrimSpace(p.Company),
		Title:       strings.TrimSpace(p.Title),
		Phone:       strings.TrimSpace(p.Phone),
		Email:       strings.TrimSpace(p.Email),
		ImageURL:    strings.TrimSpace(p.ImageURL),
		PublicURL:   strings.TrimSpace(p.PublicURL),
		ColorScheme: strings.TrimSpace(p.ColorScheme),
	}
}

// Validate checks the profile before any network or crypto work is done.
// Returns a validation error describing the first problem found.
func (p CardProfile) Validate() error {
	p = p.Normalized()

	required := []struct {
		field string
		value string
	}{
		{"name", p.Name},
		{"cardSerial", p.CardSerial},
		{"tenantId", p.TenantID},
		{"publicURL", p.PublicURL},
	}
	for _, r := range required {
		if r.value == "" {
			return NewValidationError(fmt.Sprintf("%s is required", r.field))
		}
	}

	lengths := []struct {
		field string
		value string
	}{
		{"name", p.Name},
		{"nickname", p.Nickname},
		{"company", p.Company},
		{"title", p.Title},
		{"phone", p.Phone},
		{"email", p.Email},
		{"cardSerial", p.CardSerial},
		{"tenantId", p.TenantID},
		{"colorScheme", p.ColorScheme},
	}
	for _, l := range lengths {
		if utf8.RuneCountInString(l.value) > maxFieldLength {
			return NewValidationError(fmt.Sprintf("%s exceeds %d characters", l.field, maxFieldLength))
		}
	}

	if _, err := canonicalHTTPURL(p.PublicURL); err != nil {
		return WrapValidationError(err, "publicURL is invalid")
	}

	if p.ImageURL != "" {
		if _, err := canonicalHTTPURL(p.ImageURL); err != nil {
			return WrapValidationError(err, "imageUrl is invalid")
		}
	}

	if p.Email != "" {
		addr, err := mail.ParseAddress(p.Email)
		if err != nil || addr.Address != p.Email {
			return NewValidationError("email is invalid")
		}
	}

	return nil
}

// maxURLLength caps publicURL and imageUrl (in bytes, after percent-encoding).
const maxURLLength = 2048

// canonicalHTTPURL parses an absolute http or https URL and returns it in ASCII form:
// scheme and host lowercased, non-ASCII bytes in the path, query and fragment percent-encoded.
// Hosts must already be ASCII (punycode for internationalized names).
func canonicalHTTPURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url has no host")
	}
	if u.User != nil {
		return "", fmt.Errorf("url must not contain credentials")
	}
	if !isPrintableASCII(u.Host) {
		return "", fmt.Errorf("host must be ASCII (use the punycode form)")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = escapeNonASCII(u.RawQuery)

	// String escapes the path and fragment
	canonical := u.String()
	if !isPrintableASCII(canonical) {
		return "", fmt.Errorf("url contains characters that cannot be encoded")
	}
	if len(canonical) > maxURLLength {
		return "", fmt.Errorf("url is too long")
	}
	return canonical, nil
}

// escapeNonASCII percent-encodes bytes outside printable ASCII, leaving existing escapes as they are.
func escapeNonASCII(s string) string {
	if isPrintableASCII(s) {
		return s
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c > ' ' && c < 0x7f {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] >= 0x7f {
			return false
		}
	}
	return true
}
