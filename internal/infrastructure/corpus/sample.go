package corpus

import (
	"bytes"
	"context"
	_ "embed"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
)

// SampleSource names the built-in fallback corpus
const SampleSource = "builtin:sample"

//go:embed sample_contacts.csv
var sampleContacts []byte

// Sample loads the built-in sample corpus used when no source can be read
func (l *Loader) Sample(ctx context.Context) (*contact.Corpus, *LoadReport, error) {
	c, report, err := l.Load(ctx, bytes.NewReader(sampleContacts), SampleSource)
	if err != nil {
		return nil, nil, err
	}
	report.UsedSample = true
	return c, report, nil
}
