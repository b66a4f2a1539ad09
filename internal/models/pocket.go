package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PocketRetrieveRequest is the JSON body of POST /v3/get.
type PocketRetrieveRequest struct {
	ConsumerKey string `json:"consumer_key"`
	AccessToken string `json:"access_token"`
	DetailType  string `json:"detailType"`
	State       string `json:"state"`
	Sort        string `json:"sort"`
	Offset      int    `json:"offset"`
	Count       int    `json:"count"`
	Total       string `json:"total"`
	Since       *int64 `json:"since,omitempty"`
}

// PocketRetrieveResponse is the body returned by /v3/get. List is kept raw:
// Pocket sends an object keyed by item id, `[]` when there is nothing, and
// occasionally omits it entirely.
type PocketRetrieveResponse struct {
	Status int             `json:"status"`
	List   json.RawMessage `json:"list"`
	Total  *FlexInt        `json:"total"`
	Error  *string         `json:"error,omitempty"`
}

// PocketItem is one entry of the /v3/get list. Required fields are pointers
// so that an absent key can be told apart from an empty value.
type PocketItem struct {
	ItemID        string               `json:"item_id,omitempty"`
	ResolvedID    string               `json:"resolved_id,omitempty"`
	GivenURL      string               `json:"given_url,omitempty"`
	GivenTitle    string               `json:"given_title,omitempty"`
	ResolvedURL   *string              `json:"resolved_url,omitempty"`
	ResolvedTitle *string              `json:"resolved_title,omitempty"`
	TimeAdded     *EpochSeconds        `json:"time_added,omitempty"`
	TimeUpdated   *EpochSeconds        `json:"time_updated,omitempty"`
	Status        string               `json:"status,omitempty"`
	Tags          map[string]PocketTag `json:"tags,omitempty"`
}

// PocketTag is a tag attached to a Pocket item.
type PocketTag struct {
	ItemID string `json:"item_id"`
	Tag    string `json:"tag"`
}

// ID returns item_id, falling back to resolved_id.
func (i PocketItem) ID() string {
	if i.ItemID != "" {
		return i.ItemID
	}
	return i.ResolvedID
}

// TagNames returns the keys of the item's tag map.
func (i PocketItem) TagNames() []string {
	names := make([]string, 0, len(i.Tags))
	for name := range i.Tags {
		names = append(names, name)
	}
	return names
}

// FlexInt decodes an integer that Pocket may send either as a number or as
// a quoted string.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	v, err := parseFlexInt(data)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", data, err)
	}
	*n = FlexInt(v)
	return nil
}

// MarshalJSON emits the string form, as Pocket does.
func (n FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(n)))
}

// EpochSeconds is a Unix timestamp in seconds, quoted or not.
type EpochSeconds int64

func (s *EpochSeconds) UnmarshalJSON(data []byte) error {
	v, err := parseFlexInt(data)
	if err != nil {
		return fmt.Errorf("invalid epoch seconds %s: %w", data, err)
	}
	*s = EpochSeconds(v)
	return nil
}

func (s EpochSeconds) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(s), 10))
}

// Time returns s as a UTC time.
func (s EpochSeconds) Time() time.Time {
	return time.Unix(int64(s), 0).UTC()
}

// NewEpochSeconds converts t, dropping sub-second precision.
func NewEpochSeconds(t time.Time) EpochSeconds {
	return EpochSeconds(t.Unix())
}

func parseFlexInt(data []byte) (int64, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		return strconv.ParseInt(s, 10, 64)
	}
	return strconv.ParseInt(string(data), 10, 64)
}
