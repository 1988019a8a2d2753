package pass

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

//go:embed templates/default.json
var defaultTemplateJSON []byte

// Colors holds the pass colors as CSS-style rgb() triples.
type Colors struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Label      string `json:"label"`
}

// Labels are the field labels used by the generic layout.
type Labels struct {
	Header    string `json:"header"`
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// Template is the static skeleton shared by every pass: identifiers, colors, labels and
// informational back-of-pass text. It is loaded once at startup and never mutated.
type Template struct {
	FormatVersion      int               `json:"formatVersion"`
	PassTypeIdentifier string            `json:"passTypeIdentifier"`
	TeamIdentifier     string            `json:"teamIdentifier"`
	OrganizationName   string            `json:"organizationName"`
	Description        string            `json:"description"`
	LogoText           string            `json:"logoText,omitempty"`
	Colors             Colors            `json:"colors"`
	ColorSchemes       map[string]Colors `json:"colorSchemes,omitempty"`
	Labels             Labels            `json:"labels"`
	BackFields         []Field           `json:"backFields,omitempty"`

	// WebServiceURL enables pass updates. When set every pass carries an authentication token.
	WebServiceURL string `json:"webServiceURL,omitempty"`
}

var rgbPattern = regexp.MustCompile(`^rgb\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*\)$`)

// DefaultTemplate returns the template bundled with the service.
func DefaultTemplate() (*Template, error) {
	return ParseTemplate(defaultTemplateJSON)
}

// LoadTemplate reads a JSON template from path.
// An empty path returns the bundled default template.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return DefaultTemplate()
	}

	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, WrapAssetError(err, "failed to open template directory")
	}
	defer root.Close()

	data, err := root.ReadFile(filepath.Base(path))
	if err != nil {
		return nil, WrapAssetError(err, "failed to read template")
	}

	return ParseTemplate(data)
}

// ParseTemplate decodes and validates a JSON template.
func ParseTemplate(data []byte) (*Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return nil, WrapAssetError(err, "failed to decode template")
	}

	if tpl.FormatVersion == 0 {
		tpl.FormatVersion = 1
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// WithIdentifiers returns a copy of the template using the given pass type and team
// identifiers. Empty values keep the template's own.
func (t *Template) WithIdentifiers(passTypeIdentifier, teamIdentifier string) *Template {
	c := t.clone()
	if passTypeIdentifier != "" {
		c.PassTypeIdentifier = passTypeIdentifier
	}
	if teamIdentifier != "" {
		c.TeamIdentifier = teamIdentifier
	}
	return c
}

// Validate checks the identifiers and colors the wallet platform requires.
func (t *Template) Validate() error {
	if t.FormatVersion != 1 {
		return NewAssetError(fmt.Sprintf("unsupported template formatVersion %d", t.FormatVersion))
	}
	if !strings.HasPrefix(t.PassTypeIdentifier, "pass.") {
		return NewAssetError("template passTypeIdentifier must start with \"pass.\"")
	}
	if t.TeamIdentifier == "" {
		return NewAssetError("template teamIdentifier is required")
	}
	if t.OrganizationName == "" {
		return NewAssetError("template organizationName is required")
	}
	if t.Description == "" {
		return NewAssetError("template description is required")
	}

	if err := t.Colors.validate(); err != nil {
		return WrapAssetError(err, "template colors are invalid")
	}
	for name, scheme := range t.ColorSchemes {
		if err := scheme.validate(); err != nil {
			return WrapAssetError(err, fmt.Sprintf("template color scheme %q is invalid", name))
		}
	}

	for _, f := range t.BackFields {
		if f.Key == "" {
			return NewAssetError("template back fields must have a key")
		}
	}
	return nil
}

// ColorsFor returns the named color scheme, falling back to the template colors for an
// empty or unknown name.
func (t *Template) ColorsFor(scheme string) Colors {
	if c, ok := t.ColorSchemes[strings.ToLower(scheme)]; ok {
		return c
	}
	return t.Colors
}

func (t *Template) clone() *Template {
	c := *t
	c.BackFields = append([]Field(nil), t.BackFields...)
	if t.ColorSchemes != nil {
		c.ColorSchemes = make(map[string]Colors, len(t.ColorSchemes))
		for k, v := range t.ColorSchemes {
			c.ColorSchemes[k] = v
		}
	}
	return &c
}

func (c Colors) validate() error {
	for _, v := range []string{c.Foreground, c.Background, c.Label} {
		if v != "" && !rgbPattern.MatchString(v) {
			return fmt.Errorf("color %q is not of the form rgb(r, g, b)", v)
		}
	}
	return nil
}
