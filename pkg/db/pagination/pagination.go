package pagination

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
)

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=20" validate:"gte=1,lte=100"`
}

type Cursor struct {
	ID string `json:"id,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) string {
	b, err := json.Marshal(data)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}
	return &cursor, nil
}

// AfterID parses the cursor of a snowflake-keyed listing. A missing or
// malformed token starts from the beginning.
func AfterID(pageToken string) int64 {
	if pageToken == "" {
		return 0
	}
	cursor, err := DecodeCursor(pageToken)
	if err != nil || cursor == nil {
		return 0
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
