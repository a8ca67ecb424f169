package match

import "strings"

// Classifier tags normalized specialty names with a coarse clinical
// domain. It exists to stop cross-domain false matches: "cardiac
// surgery" and "orthopedic surgery" share a word but not a domain.
type Classifier struct {
	entries []DomainEntry
}

// NewClassifier builds a classifier from the embedded domain table.
func NewClassifier() (*Classifier, error) {
	entries, err := LoadDomainTable()
	if err != nil {
		return nil, err
	}
	return &Classifier{entries: entries}, nil
}

// NewClassifierWith builds a classifier over a caller-supplied table.
func NewClassifierWith(entries []DomainEntry) *Classifier {
	return &Classifier{entries: entries}
}

// Classify returns the first domain whose any keyword is a substring of
// the normalized name. Table order is significant and deterministic.
func (c *Classifier) Classify(normalized string) (string, bool) {
	for _, e := range c.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(normalized, kw) {
				return e.Tag, true
			}
		}
	}
	return "", false
}
