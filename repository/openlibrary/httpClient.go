package openlibraryrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"librarydesk/util/httpx"
)

var ErrNotFound = errors.New("openlibrary: isbn not found")

type httpRepo struct {
	baseURL string
	client  *http.Client
}

func NewHTTP() Repo {
	return &httpRepo{baseURL: "https://openlibrary.org", client: httpx.Client()}
}

func (r *httpRepo) LookupISBN(isbn string) (*BookMeta, error) {
	key := "ISBN:" + isbn
	u := fmt.Sprintf("%s/api/books?bibkeys=%s&format=json&jscmd=data",
		r.baseURL, url.QueryEscape(key))

	resp, err := r.client.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openlibrary lookup failed: %s", resp.Status)
	}

	var out map[string]struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Publishers []struct {
			Name string `json:"name"`
		} `json:"publishers"`
		PublishDate string `json:"publish_date"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	entry, ok := out[key]
	if !ok || entry.Title == "" {
		return nil, ErrNotFound
	}

	meta := &BookMeta{Title: entry.Title}
	if len(entry.Authors) > 0 {
		meta.Author = entry.Authors[0].Name
	}
	if len(entry.Publishers) > 0 {
		meta.Publisher = entry.Publishers[0].Name
	}
	meta.PublishedYear = parseYear(entry.PublishDate)
	return meta, nil
}

// parseYear pulls the year out of free-form dates like "May 2017" or "2017".
func parseYear(date string) int {
	for _, part := range strings.Fields(date) {
		part = strings.Trim(part, ",")
		if len(part) == 4 {
			if y, err := strconv.Atoi(part); err == nil && y > 0 {
				return y
			}
		}
	}
	return 0
}
