// Package feed fetches indicator pages from the Falcon Intel API.
package feed

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// OpQueryIndicators lists indicators with their full documents.
const OpQueryIndicators = "QueryIntelIndicatorEntities"

// Indicator is one IOC record. Raw holds the full document as returned by
// the API; ID and Marker are extracted from it.
type Indicator struct {
	ID     string
	Marker string
	Type   string
	Raw    json.RawMessage
}

// QueryParams are the parameters of one indicator query.
type QueryParams struct {
	Limit          int
	IncludeDeleted bool
	Sort           string
	Filter         string
}

// MarkerFilter returns the FQL filter selecting records after marker.
func MarkerFilter(marker string) string {
	return "_marker:>'" + strings.ReplaceAll(marker, "'", `\'`) + "'"
}

// WithMarker returns a copy of p filtered to records after marker.
func (p QueryParams) WithMarker(marker string) QueryParams {
	p.Filter = MarkerFilter(marker)
	return p
}

func (p QueryParams) values() url.Values {
	return url.Values{
		"limit":           {strconv.Itoa(p.Limit)},
		"include_deleted": {strconv.FormatBool(p.IncludeDeleted)},
		"sort":            {p.Sort},
		"filter":          {p.Filter},
	}
}

// Request is one call to the authenticated request executor. When Cursor is
// set it is followed verbatim and Params are ignored.
type Request struct {
	Operation string
	Params    QueryParams
	Cursor    string
}

// APIMessage is one entry of the response "errors" list.
type APIMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the decoded result of one executor call.
type Response struct {
	Endpoint   string
	StatusCode int
	Resources  []json.RawMessage
	Errors     []APIMessage
	Header     http.Header
}

// NextPage returns the pagination continuation signal, "" on the last page.
func (r *Response) NextPage() string {
	if r.Header == nil {
		return ""
	}
	return strings.TrimSpace(r.Header.Get("Next-Page"))
}

// Page is one validated page of indicators.
type Page struct {
	Records    []Indicator
	NextCursor string
}

// HasMore reports whether the API signalled another page for the same query.
func (p Page) HasMore() bool {
	return p.NextCursor != ""
}
