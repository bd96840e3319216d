// Package static provides a Validator backed by a single shared secret,
// which is how the quiz grader authenticates submitters.
package static

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"strings"

	"github.com/lmartins/quizchain/pkg/auth"
)

type validatorConfig struct {
	// Secret is the exact credential value expected by this validator.
	Secret string `json:"secret"`

	// Subject is returned as claims.Subject.
	Subject string `json:"subject,omitempty"`

	// Email is returned as claims.Email and used as the default
	// submitter identity.
	Email string `json:"email,omitempty"`
}

type validator struct {
	cfg validatorConfig
}

// NewValidatorFromJSON accepts either a JSON object
// {"secret":"...","email":"..."} or a bare JSON string holding the secret.
func NewValidatorFromJSON(raw json.RawMessage) (auth.Validator, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, errors.New("static auth: missing config")
	}

	var cfg validatorConfig
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &cfg.Secret); err != nil {
			return nil, errors.New("static auth: invalid config: " + err.Error())
		}
	} else {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.New("static auth: invalid config: " + err.Error())
		}
	}

	cfg.Secret = strings.TrimSpace(cfg.Secret)
	if cfg.Secret == "" {
		return nil, errors.New("static auth: secret is required")
	}
	cfg.Subject = strings.TrimSpace(cfg.Subject)
	if cfg.Subject == "" {
		cfg.Subject = "static"
	}

	return &validator{cfg: cfg}, nil
}

// NewValidator builds a validator directly from config values, for callers
// that already hold the secret outside JSON form.
func NewValidator(secret, subject, email string) (auth.Validator, error) {
	b, _ := json.Marshal(validatorConfig{Secret: secret, Subject: subject, Email: email})
	return NewValidatorFromJSON(b)
}

func (v *validator) Validate(secret string) (*auth.Claims, error) {
	given := strings.TrimSpace(secret)
	if subtle.ConstantTimeCompare([]byte(given), []byte(v.cfg.Secret)) != 1 {
		return nil, errors.New("invalid secret")
	}
	return &auth.Claims{
		Subject: v.cfg.Subject,
		Email:   v.cfg.Email,
	}, nil
}

func init() {
	auth.RegisterProvider("static", NewValidatorFromJSON)
}
