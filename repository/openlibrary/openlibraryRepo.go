package openlibraryrepo

// BookMeta is what the lookup returns for catalog prefill.
type BookMeta struct {
	Title         string `json:"title"`
	Author        string `json:"author"`
	Publisher     string `json:"publisher,omitempty"`
	PublishedYear int    `json:"published_year,omitempty"`
}

type Repo interface {
	LookupISBN(isbn string) (*BookMeta, error)
}
