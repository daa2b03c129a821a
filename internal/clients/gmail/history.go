package gmail

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

type historyMessageAdded struct {
	Message Message `json:"message"`
}

type historyEntry struct {
	ID            Uint64String          `json:"id"`
	MessagesAdded []historyMessageAdded `json:"messagesAdded"`
}

type listHistoryResponse struct {
	History       []historyEntry `json:"history"`
	NextPageToken string         `json:"nextPageToken"`
}

// AddedMessage is one message referenced by a messageAdded history entry.
type AddedMessage struct {
	ID        string
	HistoryID uint64
	LabelIDs  []string
}

// ListAddedMessages walks the incremental history starting after
// startHistoryID and returns every message referenced by a messageAdded
// entry in the given folder. The same message id may appear more than
// once; callers deduplicate.
func (c *Client) ListAddedMessages(accessToken string, startHistoryID uint64, labelID string) ([]AddedMessage, error) {

	var added []AddedMessage
	pageToken := ""

	for {
		params := url.Values{}
		params.Set("startHistoryId", strconv.FormatUint(startHistoryID, 10))
		params.Set("historyTypes", "messageAdded")
		if labelID != "" {
			params.Set("labelId", labelID)
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := c.sendRequest("GET", apiBase+"/users/me/history?"+params.Encode(), accessToken, "", nil)
		if err != nil {
			return nil, err
		}

		var resp listHistoryResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("error decoding JSON response: %v", err)
		}

		for _, entry := range resp.History {
			for _, ma := range entry.MessagesAdded {
				added = append(added, AddedMessage{
					ID:        ma.Message.ID,
					HistoryID: uint64(ma.Message.HistoryID),
					LabelIDs:  ma.Message.LabelIDs,
				})
			}
		}

		if resp.NextPageToken == "" {
			return added, nil
		}
		pageToken = resp.NextPageToken
	}
}
