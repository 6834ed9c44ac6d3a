package document

import "github.com/helixml/harvest/domain/repository"

// WithURL filters by the "url" column.
func WithURL(url string) repository.Option {
	return repository.WithCondition("url", url)
}

// WithHost filters by the "host" column.
func WithHost(host string) repository.Option {
	return repository.WithCondition("host", host)
}
