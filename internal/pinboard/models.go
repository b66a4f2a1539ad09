package pinboard

import "fmt"

// TimeFormat is the layout of Pinboard's dt parameter and time field.
const TimeFormat = "2006-01-02T15:04:05Z"

// ResultAlreadyExists is returned by posts/add with replace=no when the URL
// is already bookmarked.
const ResultAlreadyExists = "item already exists"

const resultDone = "done"

// Post is an entry of the posts/all response.
type Post struct {
	Href        string `json:"href"`
	Description string `json:"description"`
	Extended    string `json:"extended"`
	Hash        string `json:"hash"`
	Time        string `json:"time"`
	Shared      string `json:"shared"`
	ToRead      string `json:"toread"`
	Tags        string `json:"tags"`
}

type resultResponse struct {
	ResultCode string `json:"result_code"`
}

// ResultError is returned when posts/add answers with a result code other
// than success or "item already exists".
type ResultError struct {
	URL  string
	Code string
}

func (e *ResultError) Error() string {
	return fmt.Sprintf("pinboard rejected %s: %s", e.URL, e.Code)
}
