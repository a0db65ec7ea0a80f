package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quickchat/internal/domain"
)

const sessionTokenHeader = "token"

// API es el cliente HTTP de /api. Es stateless: el token viaja por llamada.
type API struct {
	baseURL string
	client  *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

func (a *API) BaseURL() string {
	return a.baseURL
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AuthResponse struct {
	UserData domain.User `json:"userData"`
	Token    string      `json:"token"`
	Message  string      `json:"message"`
}

type ProfileUpdate struct {
	FullName   string `json:"fullName"`
	Bio        string `json:"bio"`
	ProfilePic string `json:"profilePic,omitempty"`
}

type Contacts struct {
	Users          []domain.User  `json:"users"`
	UnseenMessages map[string]int `json:"unseenMessages"`
}

func (a *API) CheckAuth(ctx context.Context, token string) (domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	err := a.do(ctx, http.MethodGet, "/api/auth/check", token, nil, &out)
	return out.User, err
}

func (a *API) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

// SendOTP devuelve el email normalizado por el servidor.
func (a *API) SendOTP(ctx context.Context, email string) (string, error) {
	var out struct {
		Email string `json:"email"`
	}
	err := a.do(ctx, http.MethodPost, "/api/auth/send-otp", "", map[string]string{"email": email}, &out)
	return out.Email, err
}

func (a *API) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	var out struct {
		VerificationToken string `json:"verificationToken"`
	}
	err := a.do(ctx, http.MethodPost, "/api/auth/verify-otp", "", map[string]string{
		"email": email,
		"otp":   otp,
	}, &out)
	return out.VerificationToken, err
}

func (a *API) Signup(ctx context.Context, pending PendingSignup, bio, verificationToken string) (AuthResponse, error) {
	var out AuthResponse
	err := a.do(ctx, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"fullName":          pending.FullName,
		"email":             pending.Email,
		"password":          pending.Password,
		"bio":               bio,
		"verificationToken": verificationToken,
	}, &out)
	return out, err
}

func (a *API) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) (domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	err := a.do(ctx, http.MethodPut, "/api/auth/update-profile", token, update, &out)
	return out.User, err
}

func (a *API) Contacts(ctx context.Context, token string) (Contacts, error) {
	var out Contacts
	err := a.do(ctx, http.MethodGet, "/api/messages/users", token, nil, &out)
	return out, err
}

func (a *API) Conversation(ctx context.Context, token, otherID string) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	err := a.do(ctx, http.MethodGet, "/api/messages/"+otherID, token, nil, &out)
	return out.Messages, err
}

func (a *API) MarkSeen(ctx context.Context, token, messageID string) error {
	return a.do(ctx, http.MethodPut, "/api/messages/mark/"+messageID, token, nil, nil)
}

func (a *API) SendMessage(ctx context.Context, token, receiverID, text, image string) (domain.Message, error) {
	var out struct {
		NewMessage domain.Message `json:"newMessage"`
	}
	err := a.do(ctx, http.MethodPost, "/api/messages/send/"+receiverID, token, map[string]string{
		"text":  text,
		"image": image,
	}, &out)
	return out.NewMessage, err
}

func (a *API) do(ctx context.Context, method, path, token string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(sessionTokenHeader, token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response: %s", strings.TrimSpace(string(respBody)))}
	}
	if !env.Success || resp.StatusCode >= 400 {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
