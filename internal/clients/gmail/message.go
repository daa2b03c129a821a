package gmail

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Uint64String decodes the numeric ids the Gmail API serializes as
// JSON strings ("historyId": "123456").
type Uint64String uint64

func (u *Uint64String) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		// some endpoints return the value as a bare number
		var n uint64
		if numErr := json.Unmarshal(b, &n); numErr == nil {
			*u = Uint64String(n)
			return nil
		}
		return err
	}

	n, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing uint64 %s: %v", str, err)
	}
	*u = Uint64String(n)
	return nil
}

type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type MessagePayload struct {
	Headers []Header `json:"headers"`
}

// Message is the metadata-only view returned by format=metadata fetches.
type Message struct {
	ID        string         `json:"id"`
	HistoryID Uint64String   `json:"historyId"`
	LabelIDs  []string       `json:"labelIds"`
	Payload   MessagePayload `json:"payload"`
}

func (m *Message) Header(name string) string {
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
