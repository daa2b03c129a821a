package gmail

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type watchRequest struct {
	TopicName           string   `json:"topicName"`
	LabelIDs            []string `json:"labelIds,omitempty"`
	LabelFilterBehavior string   `json:"labelFilterBehavior,omitempty"`
}

type watchResponse struct {
	HistoryID  Uint64String `json:"historyId"`
	Expiration Uint64String `json:"expiration"` // epoch millis
}

// WatchResult is a freshly created push registration: the cursor to diff
// from and the instant the provider will stop pushing.
type WatchResult struct {
	HistoryID  uint64
	Expiration time.Time
}

// Watch registers the mailbox for push notifications to the pub/sub topic,
// filtered to the given labels.
func (c *Client) Watch(accessToken, topic string, labelIDs []string) (WatchResult, error) {

	reqBody, err := json.Marshal(watchRequest{
		TopicName:           topic,
		LabelIDs:            labelIDs,
		LabelFilterBehavior: "include",
	})
	if err != nil {
		return WatchResult{}, err
	}

	body, err := c.sendRequest("POST", apiBase+"/users/me/watch", accessToken,
		"application/json", bytes.NewReader(reqBody))
	if err != nil {
		return WatchResult{}, err
	}

	var resp watchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return WatchResult{}, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return WatchResult{
		HistoryID:  uint64(resp.HistoryID),
		Expiration: time.UnixMilli(int64(resp.Expiration)),
	}, nil
}

// Stop unregisters the mailbox push subscription.
func (c *Client) Stop(accessToken string) error {
	_, err := c.sendRequest("POST", apiBase+"/users/me/stop", accessToken, "", nil)
	return err
}
