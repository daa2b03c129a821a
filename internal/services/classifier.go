package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

// AIService turns raw email text into a structured change set.
type AIService struct {
	aiClient aiClient
}

func NewAIService(aiClient aiClient) *AIService {
	return &AIService{aiClient: aiClient}
}

// ClassifyEmail asks the model whether the email concerns a tracked job
// application and what it changes. The model answers with JSON matching
// models.ChangeSet; anything else is an error, not a guess.
func (a *AIService) ClassifyEmail(ctx context.Context, subject, sender, body string) (models.ChangeSet, error) {

	response, err := a.aiClient.GenerateResponse(ctx, classificationRequest(subject, sender, body))
	if err != nil {
		return models.ChangeSet{}, err
	}

	log.Debugf("got classification response of %d chars for email %q", len(response), subject)

	var changeSet models.ChangeSet
	if err = json.Unmarshal([]byte(stripCodeFences(response)), &changeSet); err != nil {
		return models.ChangeSet{}, errors.Wrapf(err, "unexpected classification response %q", response)
	}
	return changeSet, nil
}

func classificationRequest(subject, sender, body string) (request string) {

	request = "Email subject: " + subject
	request += " Sender: " + sender
	request += " Body: " + body
	request += " You analyze emails for a job application tracker. Decide whether this email relates to a job" +
		" application and which fields of the application it changes (status, location, title, description," +
		" remoteness, experience_level, job_type). If the email schedules an interview, fill proposedInterview." +
		` Answer with JSON only, in the form {"isJobRelated":bool,"vacancyId":string,` +
		`"changes":[{"fieldName":string,"oldValue":string,"newValue":string,"changeType":"UPDATED"}],` +
		`"proposedInterview":{"scheduledAt":RFC3339,"duration":minutes,"type":string,"location":string,` +
		`"meetingLink":string,"interviewerName":string,"interviewerEmail":string,"notes":string} or null}`
	return request
}

// stripCodeFences removes the markdown fences some models wrap JSON in.
func stripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
