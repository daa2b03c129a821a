package services

import (
	"testing"

	"github.com/compahunt/mailsync/internal/clients/gmail"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockHistoryClient struct {
	mock.Mock
}

func (m *mockHistoryClient) ListAddedMessages(accessToken string, startHistoryID uint64, labelID string) ([]gmail.AddedMessage, error) {
	args := m.Called(accessToken, startHistoryID, labelID)
	added, _ := args.Get(0).([]gmail.AddedMessage)
	return added, args.Error(1)
}

func (m *mockHistoryClient) GetMetadataBatch(accessToken string, messageIDs []string) ([]gmail.Message, []string, error) {
	args := m.Called(accessToken, messageIDs)
	fetched, _ := args.Get(0).([]gmail.Message)
	failed, _ := args.Get(1).([]string)
	return fetched, failed, args.Error(2)
}

func inboxMessage(id string, historyID uint64, subject string) gmail.Message {
	msg := gmail.Message{ID: id, HistoryID: gmail.Uint64String(historyID)}
	msg.Payload.Headers = []gmail.Header{
		{Name: "Subject", Value: subject},
		{Name: "From", Value: "hr@example.com"},
	}
	return msg
}

func Test_HistoryDiff_DeduplicatesRepeatedMessageIDs(t *testing.T) {

	client := &mockHistoryClient{}
	client.On("ListAddedMessages", "token", uint64(100), "INBOX").Return([]gmail.AddedMessage{
		{ID: "msg-1", HistoryID: 101, LabelIDs: []string{"INBOX"}},
		{ID: "msg-1", HistoryID: 102, LabelIDs: []string{"INBOX"}},
		{ID: "msg-2", HistoryID: 103, LabelIDs: []string{"INBOX"}},
	}, nil)
	client.On("GetMetadataBatch", "token", []string{"msg-1", "msg-2"}).Return([]gmail.Message{
		inboxMessage("msg-1", 101, "Offer"),
		inboxMessage("msg-2", 103, "Rejection"),
	}, nil, nil)

	service := NewHistoryService(client, "INBOX")
	summaries := service.Diff("token", 100, 105)

	assert.Len(t, summaries, 2)
	assert.Equal(t, "Offer", summaries[0].Subject)
	assert.Equal(t, "hr@example.com", summaries[0].Sender)
	client.AssertExpectations(t)
}

func Test_HistoryDiff_IgnoresMessagesOutsideWatchedFolder(t *testing.T) {

	client := &mockHistoryClient{}
	client.On("ListAddedMessages", "token", uint64(100), "INBOX").Return([]gmail.AddedMessage{
		{ID: "msg-spam", HistoryID: 101, LabelIDs: []string{"SPAM"}},
	}, nil)

	service := NewHistoryService(client, "INBOX")
	summaries := service.Diff("token", 100, 105)

	assert.Empty(t, summaries)
	client.AssertNotCalled(t, "GetMetadataBatch", mock.Anything, mock.Anything)
}

func Test_HistoryDiff_PartialBatchFailureKeepsSurvivors(t *testing.T) {

	client := &mockHistoryClient{}
	client.On("ListAddedMessages", "token", uint64(100), "INBOX").Return([]gmail.AddedMessage{
		{ID: "msg-1", HistoryID: 101, LabelIDs: []string{"INBOX"}},
		{ID: "msg-2", HistoryID: 102, LabelIDs: []string{"INBOX"}},
	}, nil)
	client.On("GetMetadataBatch", "token", []string{"msg-1", "msg-2"}).Return([]gmail.Message{
		inboxMessage("msg-2", 102, "Interview"),
	}, []string{"msg-1"}, nil)

	service := NewHistoryService(client, "INBOX")
	summaries := service.Diff("token", 100, 105)

	assert.Len(t, summaries, 1)
	assert.Equal(t, "msg-2", summaries[0].ID)
}

func Test_HistoryDiff_ListFailureDegradesToEmptyResult(t *testing.T) {

	client := &mockHistoryClient{}
	client.On("ListAddedMessages", "token", uint64(100), "INBOX").
		Return(nil, errors.New("history expired"))

	service := NewHistoryService(client, "INBOX")
	summaries := service.Diff("token", 100, 105)

	assert.Empty(t, summaries)
}
