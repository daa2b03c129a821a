package gmail

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// MaxBatchSize is the ceiling the Gmail batch endpoint enforces per call.
const MaxBatchSize = 100

// GetMetadataBatch fetches header-only metadata (Subject, From) for up to
// MaxBatchSize message ids in one round trip. Each item resolves
// independently: ids whose embedded response failed are returned in
// failed, never as an error for the whole batch.
func (c *Client) GetMetadataBatch(accessToken string, messageIDs []string) (messages []Message, failed []string, err error) {

	if len(messageIDs) == 0 {
		return nil, nil, nil
	}
	if len(messageIDs) > MaxBatchSize {
		return nil, nil, fmt.Errorf("batch size %d exceeds limit of %d", len(messageIDs), MaxBatchSize)
	}

	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(context.Background()); err != nil {
			return nil, nil, err
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for i, id := range messageIDs {
		partHeader := textproto.MIMEHeader{}
		partHeader.Set("Content-Type", "application/http")
		partHeader.Set("Content-ID", fmt.Sprintf("<item-%d>", i))

		part, err := writer.CreatePart(partHeader)
		if err != nil {
			return nil, nil, err
		}

		fmt.Fprintf(part, "GET /gmail/v1/users/me/messages/%s?format=metadata&metadataHeaders=Subject&metadataHeaders=From HTTP/1.1\r\n\r\n", id)
	}

	if err := writer.Close(); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest("POST", batchBase, &buf)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "multipart/mixed; boundary="+writer.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("batch request failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing batch content type: %v", err)
	}

	reader := multipart.NewReader(resp.Body, params["boundary"])
	for i := 0; ; i++ {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return messages, failed, fmt.Errorf("error reading batch part: %v", err)
		}

		id := ""
		if i < len(messageIDs) {
			id = messageIDs[i]
		}

		message, partErr := parseBatchPart(part)
		if partErr != nil {
			failed = append(failed, id)
			continue
		}
		messages = append(messages, *message)
	}

	return messages, failed, nil
}

func parseBatchPart(part io.Reader) (*Message, error) {

	embedded, err := http.ReadResponse(bufio.NewReader(part), nil)
	if err != nil {
		return nil, fmt.Errorf("error reading embedded response: %v", err)
	}
	defer embedded.Body.Close()

	body, err := io.ReadAll(embedded.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading embedded body: %v", err)
	}

	if embedded.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedded request failed with status %v, body: %v", embedded.StatusCode, string(body))
	}

	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}
	return &message, nil
}
