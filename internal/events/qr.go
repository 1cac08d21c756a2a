package events

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// QRLabel reports whether the event came from a QR-code scan and, if so, the
// normalized source label. The referrer marker wins over the path marker.
func QRLabel(e *TrackingEvent) (string, bool) {
	if ref := strings.TrimSpace(e.Referrer); strings.HasPrefix(strings.ToLower(ref), QRReferrerPrefix) {
		return NormalizeQRLabel(ref[len(QRReferrerPrefix):]), true
	}

	if strings.HasPrefix(e.Path, QRPathPrefix) {
		rest := strings.TrimPrefix(e.Path, QRPathPrefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		return NormalizeQRLabel(rest), true
	}

	return "", false
}

// NormalizeQRLabel trims and case-folds a label so "Flyer-A" and "flyer-a " group together.
func NormalizeQRLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return UnlabeledQR
	}
	return cases.Fold().String(label)
}

// QRCatalog maps normalized QR labels to human display names.
type QRCatalog struct {
	names map[string]string
}

type qrCatalogFile struct {
	Codes []struct {
		Label string `yaml:"label"`
		Name  string `yaml:"name"`
	} `yaml:"codes"`
}

// LoadQRCatalog reads a YAML file of the form:
//
//	codes:
//	  - label: flyer-a
//	    name: Spring flyer (front desk)
//
// An empty path yields an empty catalog.
func LoadQRCatalog(path string) (*QRCatalog, error) {
	catalog := &QRCatalog{names: map[string]string{}}
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read qr catalog: %w", err)
	}
	return ParseQRCatalog(data)
}

// ParseQRCatalog parses catalog YAML content.
func ParseQRCatalog(data []byte) (*QRCatalog, error) {
	var file qrCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse qr catalog: %w", err)
	}

	catalog := &QRCatalog{names: make(map[string]string, len(file.Codes))}
	for _, code := range file.Codes {
		label := NormalizeQRLabel(code.Label)
		if name := strings.TrimSpace(code.Name); name != "" {
			catalog.names[label] = name
		}
	}
	return catalog, nil
}

// DisplayName returns the catalog name for label, or a title-cased form of the label.
func (c *QRCatalog) DisplayName(label string) string {
	if c != nil {
		if name, ok := c.names[label]; ok {
			return name
		}
	}
	return cases.Title(language.Und).String(strings.NewReplacer("-", " ", "_", " ").Replace(label))
}
