package webshare

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/GehirnInc/crypt/md5_crypt"
	"wsaddon/internal/domain"
)

// PasswordDigest is sha1_hex(md5crypt(password, "$1$"+salt)), the form the
// login endpoint expects instead of the plaintext password.
func PasswordDigest(password, salt string) (string, error) {
	crypted, err := md5_crypt.New().Generate([]byte(password), []byte("$1$"+salt))
	if err != nil {
		return "", fmt.Errorf("md5crypt: %w", err)
	}
	sum := sha1.Sum([]byte(crypted))
	return hex.EncodeToString(sum[:]), nil
}

// Login exchanges credentials for a session token. It is never retried.
// Rejections by the host wrap domain.ErrBadCredentials; transport failures
// wrap domain.ErrAuthUnavailable.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if !creds.Complete() {
		return domain.Session{}, domain.ErrMissingCredentials
	}
	logger := c.logger.With(slog.String("user", creds.MaskedUsername()))

	payload, err := c.post(ctx, "salt", url.Values{"username_or_email": {creds.Username}})
	if err != nil {
		logger.Warn("webshare salt request failed", slog.String("error", err.Error()))
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrAuthUnavailable, err)
	}
	salt, err := parseSalt(payload)
	if err != nil {
		logger.Info("webshare salt rejected", slog.String("error", err.Error()))
		return domain.Session{}, classifyAuthError(err)
	}

	digest, err := PasswordDigest(creds.Password, salt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrAuthUnavailable, err)
	}

	payload, err = c.post(ctx, "login", url.Values{
		"username_or_email": {creds.Username},
		"password":          {digest},
		"keep_logged_in":    {"1"},
	})
	if err != nil {
		logger.Warn("webshare login request failed", slog.String("error", err.Error()))
		return domain.Session{}, fmt.Errorf("%w: %w", domain.ErrAuthUnavailable, err)
	}
	token, err := parseLogin(payload)
	if err != nil {
		logger.Info("webshare login rejected", slog.String("error", err.Error()))
		return domain.Session{}, classifyAuthError(err)
	}
	logger.Debug("webshare login succeeded")
	return domain.Session{Token: token}, nil
}

func classifyAuthError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, errMissingField) {
		return fmt.Errorf("%w: %w", domain.ErrBadCredentials, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrAuthUnavailable, err)
}
