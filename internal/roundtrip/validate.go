package roundtrip

import (
	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/message"
)

// Report the outcome of reading one document file
type Report struct {
	Path       string
	Format     string
	Version    int
	Labels     int
	Attributes int
	Warnings   []message.Entry
}

// ValidateFile reads path with the format named in the file, next receives every diagnostic
func ValidateFile(a *app.Application, path string, next message.Driver) (Report, error) {
	msg := message.NewCollector(next)
	r := Report{Path: path}

	doc, err := a.Open(path, "", msg)
	r.Warnings = msg.Entries(message.Warning)
	if err != nil {
		return r, err
	}
	r.Format = doc.StorageFormat
	r.Version = doc.Version
	r.Labels = doc.NbLabels()
	r.Attributes = doc.NbAttributes()
	return r, nil
}
