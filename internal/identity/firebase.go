package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/shota3227/ludi/pkg/config"
)

const identityToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"

type adminClient interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type accountLister func(ctx context.Context) ([]Account, error)

// FirebaseProvider talks to Firebase Authentication. Admin operations use the
// Admin SDK; password sign-in and sign-up go through the Identity Toolkit
// REST API with the project's web API key.
type FirebaseProvider struct {
	admin   adminClient
	list    accountLister
	http    *http.Client
	apiKey  string
	baseURL string
}

// NewFirebaseProvider initializes the Admin SDK from the configured
// credentials, falling back to application default credentials.
func NewFirebaseProvider(ctx context.Context, cfg config.IdentityConfig) (*FirebaseProvider, error) {
	if cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("firebase project id required")
	}
	if cfg.FirebaseAPIKey == "" {
		return nil, fmt.Errorf("firebase api key required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.FirebaseCredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.FirebaseCredentialsJSON)))
	case cfg.FirebaseCredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}

	timeout := cfg.FirebaseHTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FirebaseProvider{
		admin:   client,
		list:    iterateUsers(client),
		http:    &http.Client{Timeout: timeout},
		apiKey:  cfg.FirebaseAPIKey,
		baseURL: identityToolkitBaseURL,
	}, nil
}

func iterateUsers(client *auth.Client) accountLister {
	return func(ctx context.Context) ([]Account, error) {
		var out []Account
		iter := client.Users(ctx, "")
		for {
			record, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return out, nil
			}
			if err != nil {
				// a half-read listing must never be mistaken for the full set
				return nil, fmt.Errorf("list firebase users: %w", err)
			}
			out = append(out, Account{AuthID: record.UID, Email: record.Email})
		}
	}
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return p.passwordCall(ctx, "accounts:signInWithPassword", email, password)
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return p.passwordCall(ctx, "accounts:signUp", email, password)
}

func (p *FirebaseProvider) CurrentUser(ctx context.Context, idToken string) (*Account, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidToken
	}
	token, err := p.admin.VerifyIDToken(ctx, idToken)
	if err != nil {
		if auth.IsIDTokenExpired(err) || auth.IsIDTokenInvalid(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	record, err := p.admin.GetUser(ctx, token.UID)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get firebase user: %w", err)
	}
	return &Account{AuthID: record.UID, Email: record.Email}, nil
}

func (p *FirebaseProvider) CreateUser(ctx context.Context, email, password string) (*Account, error) {
	params := (&auth.UserToCreate{}).
		Email(NormalizeEmail(email)).
		Password(password).
		EmailVerified(true)
	record, err := p.admin.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create firebase user: %w", err)
	}
	return &Account{AuthID: record.UID, Email: record.Email}, nil
}

func (p *FirebaseProvider) ListUsers(ctx context.Context) ([]Account, error) {
	accounts, err := p.list(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []Account{}
	}
	return accounts, nil
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type passwordResponse struct {
	LocalID string `json:"localId"`
	Email   string `json:"email"`
	IDToken string `json:"idToken"`
}

type toolkitError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *FirebaseProvider) passwordCall(ctx context.Context, method, email, password string) (*Session, error) {
	body, err := json.Marshal(passwordRequest{
		Email:             NormalizeEmail(email),
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s?key=%s", strings.TrimRight(p.baseURL, "/"), method, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var tkErr toolkitError
		_ = json.NewDecoder(resp.Body).Decode(&tkErr)
		return nil, classifyToolkitError(method, resp.StatusCode, tkErr.Error.Message)
	}

	var out passwordResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode identity toolkit response: %w", err)
	}
	if out.LocalID == "" || out.IDToken == "" {
		return nil, fmt.Errorf("identity toolkit %s: incomplete response", method)
	}
	return &Session{
		Account: Account{AuthID: out.LocalID, Email: out.Email},
		IDToken: out.IDToken,
	}, nil
}

// classifyToolkitError maps Identity Toolkit error messages. Messages may carry
// a suffix such as "WEAK_PASSWORD : Password should be at least 6 characters".
func classifyToolkitError(method string, status int, message string) error {
	code, _, _ := strings.Cut(message, " ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_EMAIL":
		return ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	default:
		return fmt.Errorf("identity toolkit %s: status %d: %s", method, status, message)
	}
}
