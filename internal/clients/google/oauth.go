package google

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const tokenEndpoint = "https://oauth2.googleapis.com/token"

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// OAuthClient exchanges refresh tokens for fresh access tokens against
// the provider's token endpoint.
type OAuthClient struct {
	httpClient   HTTPClient
	clientID     string
	clientSecret string
}

func NewOAuthClient(clientID, clientSecret string) *OAuthClient {
	return &OAuthClient{
		httpClient:   &http.Client{},
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (c *OAuthClient) SetHTTPClient(client HTTPClient) {
	c.httpClient = client
}

// TokenResponse is the provider's answer to a refresh grant.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
	TokenType   string `json:"token_type"`
}

func (c *OAuthClient) RefreshToken(refreshToken string) (TokenResponse, error) {

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequest("POST", tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenResponse{}, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return TokenResponse{}, fmt.Errorf("token refresh failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	var tokenResponse TokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return TokenResponse{}, fmt.Errorf("error decoding JSON response: %v", err)
	}

	return tokenResponse, nil
}
