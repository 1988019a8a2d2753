package pass

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/cardpass/pass-issuer/internal/crypto"
)

const (
	// BarcodeFormatQR is the only barcode format issued.
	BarcodeFormatQR = "PKBarcodeFormatQR"

	// BarcodeMessageEncoding is byte preserving for the ASCII URLs stored in the barcode.
	BarcodeMessageEncoding = "iso-8859-1"
)

// serialNamespace scopes serial numbers to this service.
var serialNamespace = uuid.MustParse("6f1c1d0e-8a4b-5c57-9d2e-0b7a4f3c2e19")

// Field is a single label/value pair on the pass.
type Field struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
	Value string `json:"value"`
}

// FieldSet holds the fields of the generic pass layout.
type FieldSet struct {
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

// Barcode is a barcode shown on the front of the pass.
type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// Descriptor is the pass.json document.
//
// Field names follow the wallet platform's pass format. Only the generic layout is supported.
type Descriptor struct {
	FormatVersion       int       `json:"formatVersion"`
	PassTypeIdentifier  string    `json:"passTypeIdentifier"`
	SerialNumber        string    `json:"serialNumber"`
	TeamIdentifier      string    `json:"teamIdentifier"`
	OrganizationName    string    `json:"organizationName"`
	Description         string    `json:"description"`
	LogoText            string    `json:"logoText,omitempty"`
	ForegroundColor     string    `json:"foregroundColor,omitempty"`
	BackgroundColor     string    `json:"backgroundColor,omitempty"`
	LabelColor          string    `json:"labelColor,omitempty"`
	Generic             FieldSet  `json:"generic"`
	Barcodes            []Barcode `json:"barcodes"`
	Barcode             *Barcode  `json:"barcode,omitempty"` // legacy key read by older devices
	WebServiceURL       string    `json:"webServiceURL,omitempty"`
	AuthenticationToken string    `json:"authenticationToken,omitempty"`
}

// SerialNumber returns the stable pass serial number for a tenant's card.
// The same (tenant, card) pair always yields the same serial, so re-issued passes replace the
// previous version on the device instead of being added alongside it.
func SerialNumber(tenantID, cardSerial string) string {
	return uuid.NewSHA1(serialNamespace, []byte(tenantID+"/"+cardSerial)).String()
}

// BuildDescriptor merges the template with the card profile.
//
// The profile is validated first: an invalid profile returns a validation error and no descriptor.
func BuildDescriptor(tpl *Template, profile CardProfile) (*Descriptor, error) {
	if tpl == nil {
		return nil, NewInternalError("pass template is nil")
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	p := profile.Normalized()

	// the barcode encoding only preserves ASCII, so the URL is stored percent-encoded
	publicURL, err := canonicalHTTPURL(p.PublicURL)
	if err != nil {
		return nil, WrapValidationError(err, "publicURL is invalid")
	}
	p.PublicURL = publicURL

	colors := tpl.ColorsFor(p.ColorScheme)

	d := &Descriptor{
		FormatVersion:      tpl.FormatVersion,
		PassTypeIdentifier: tpl.PassTypeIdentifier,
		SerialNumber:       SerialNumber(p.TenantID, p.CardSerial),
		TeamIdentifier:     tpl.TeamIdentifier,
		OrganizationName:   tpl.OrganizationName,
		Description:        tpl.Description,
		LogoText:           tpl.LogoText,
		ForegroundColor:    colors.Foreground,
		BackgroundColor:    colors.Background,
		LabelColor:         colors.Label,
		WebServiceURL:      tpl.WebServiceURL,
	}

	d.Generic.HeaderFields = []Field{{Key: "header", Label: tpl.Labels.Header, Value: headerLabel(p)}}
	d.Generic.PrimaryFields = []Field{{Key: "name", Label: tpl.Labels.Primary, Value: p.Name}}

	if role := roleLine(p.Title, p.Company); role != "" {
		d.Generic.SecondaryFields = []Field{{Key: "role", Label: tpl.Labels.Secondary, Value: role}}
	}

	if p.Phone != "" {
		d.Generic.AuxiliaryFields = append(d.Generic.AuxiliaryFields, Field{Key: "phone", Label: tpl.Labels.Phone, Value: p.Phone})
	}
	if p.Email != "" {
		d.Generic.AuxiliaryFields = append(d.Generic.AuxiliaryFields, Field{Key: "email", Label: tpl.Labels.Email, Value: p.Email})
	}

	d.Generic.BackFields = backFields(tpl, p)

	barcode := Barcode{
		Format:          BarcodeFormatQR,
		Message:         p.PublicURL,
		MessageEncoding: BarcodeMessageEncoding,
	}
	d.Barcodes = []Barcode{barcode}
	d.Barcode = &barcode

	return d, nil
}

// Encode returns the canonical JSON encoding of the descriptor (RFC 8785).
// The output is byte-for-byte identical for equal descriptors.
func (d *Descriptor) Encode() ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, WrapInternalError(err, "failed to encode pass descriptor")
	}
	canonical, err := crypto.CanonicalizeJSON(raw)
	if err != nil {
		return nil, WrapInternalError(err, "failed to canonicalize pass descriptor")
	}
	return canonical, nil
}

// headerLabel is the nickname, or the first word of the display name.
func headerLabel(p CardProfile) string {
	if p.Nickname != "" {
		return p.Nickname
	}
	if fields := strings.Fields(p.Name); len(fields) > 0 {
		return fields[0]
	}
	return p.Name
}

// roleLine joins title and company as "title | company", or returns whichever is present.
func roleLine(title, company string) string {
	switch {
	case title != "" && company != "":
		return title + " | " + company
	case title != "":
		return title
	default:
		return company
	}
}

func backFields(tpl *Template, p CardProfile) []Field {
	contact := []Field{
		{Key: "back-name", Label: "Name", Value: p.Name},
		{Key: "back-title", Label: "Title", Value: p.Title},
		{Key: "back-company", Label: "Company", Value: p.Company},
		{Key: "back-phone", Label: "Phone", Value: p.Phone},
		{Key: "back-email", Label: "Email", Value: p.Email},
		{Key: "back-url", Label: "Card", Value: p.PublicURL},
	}

	fields := make([]Field, 0, len(contact)+len(tpl.BackFields))
	for _, f := range contact {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return append(fields, tpl.BackFields...)
}
