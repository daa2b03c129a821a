package gmail

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func responseFromFile(path string) (*http.Response, error) {
	file, err := os.ReadFile(path)

	return &http.Response{
		StatusCode: 200,
		Body:       io.NopCloser(bytes.NewBuffer(file)),
	}, err
}

func Test_Watch_ParsesHistoryIDAndExpiration(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://gmail.googleapis.com/gmail/v1/users/me/watch" &&
			req.Header.Get("Authorization") == "Bearer access-token"
	})).Return(responseFromFile("testdata/watch.json"))

	client := NewClient()
	client.SetHTTPClient(mockClient)

	result, err := client.Watch("access-token", "projects/p/topics/t", []string{"INBOX"})

	assert.NoError(err)
	assert.Equal(uint64(1234567), result.HistoryID)
	assert.Equal(int64(1735689600000), result.Expiration.UnixMilli())
}

func Test_ListAddedMessages_FlattensHistoryEntries(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.Query().Get("startHistoryId") == "100" &&
			req.URL.Query().Get("historyTypes") == "messageAdded" &&
			req.URL.Query().Get("labelId") == "INBOX"
	})).Return(responseFromFile("testdata/list_history.json"))

	client := NewClient()
	client.SetHTTPClient(mockClient)

	added, err := client.ListAddedMessages("access-token", 100, "INBOX")

	assert.NoError(err)
	assert.Len(added, 3) // msg-1 appears twice, dedup is the caller's job
	assert.Equal("msg-1", added[0].ID)
	assert.Equal(uint64(101), added[0].HistoryID)
}

func batchResponse(parts ...string) *http.Response {

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, part := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Type", "application/http")
		w, _ := writer.CreatePart(header)
		fmt.Fprint(w, part)
	}
	_ = writer.Close()

	return &http.Response{
		StatusCode: 200,
		Header: http.Header{
			"Content-Type": []string{"multipart/mixed; boundary=" + writer.Boundary()},
		},
		Body: io.NopCloser(&buf),
	}
}

func embeddedOK(body string) string {
	return fmt.Sprintf("HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
		len(body), body)
}

func embeddedNotFound() string {
	return "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
}

func Test_GetMetadataBatch_PartialFailureReturnsFailedIDs(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == "https://gmail.googleapis.com/batch/gmail/v1"
	})).Return(batchResponse(
		embeddedOK(`{"id":"msg-1","historyId":"101","payload":{"headers":[{"name":"Subject","value":"Offer"},{"name":"From","value":"hr@example.com"}]}}`),
		embeddedNotFound(),
	), nil)

	client := NewClient()
	client.SetHTTPClient(mockClient)

	messages, failed, err := client.GetMetadataBatch("access-token", []string{"msg-1", "msg-gone"})

	assert.NoError(err)
	assert.Len(messages, 1)
	assert.Equal("Offer", messages[0].Header("Subject"))
	assert.Equal("hr@example.com", messages[0].Header("From"))
	assert.Equal([]string{"msg-gone"}, failed)
}

func Test_GetMetadataBatch_RejectsOversizedBatch(t *testing.T) {

	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("msg-%d", i)
	}

	client := NewClient()
	_, _, err := client.GetMetadataBatch("access-token", ids)

	assert.Error(t, err)
}

func Test_GetMetadataBatch_EmptyInputIsNoop(t *testing.T) {

	mockClient := &mockHTTPClient{}
	client := NewClient()
	client.SetHTTPClient(mockClient)

	messages, failed, err := client.GetMetadataBatch("access-token", nil)

	assert.NoError(t, err)
	assert.Empty(t, messages)
	assert.Empty(t, failed)
	mockClient.AssertNotCalled(t, "Do", mock.Anything)
}
