package wsclient

import (
	"fmt"

	"github.com/nats-io/jwt/v2"
	"github.com/pkg/errors"
)

// SignAuthJWT builds a generic JWT signed with the given nkey seed and
// returns the encoded token, suitable for Config.AuthJWT: the client mints
// its own auth cookie value before dialing. It sets only the subject; any
// expiry comes from the supplied claims.
func SignAuthJWT(subject string, claims *jwt.GenericClaims, seed []byte) (string, error) {
	if claims == nil {
		claims = &jwt.GenericClaims{}
	}
	claims.Subject = subject
	kp, err := nkeysFromSeed(seed)
	if err != nil {
		return "", errors.Wrap(err, "wsclient: parsing auth seed")
	}
	token, err := claims.Encode(kp)
	if err != nil {
		return "", errors.Wrap(err, "wsclient: signing auth jwt")
	}
	return token, nil
}

// authCookieFragment renders the Config.AuthJWT token as a single Cookie
// header value fragment ("name=value"), joined with any other configured
// cookies the same way the handshake joins every cookie (spec §4.1).
func authCookieFragment(cfg *Config) string {
	if cfg.AuthJWT == "" {
		return ""
	}
	return fmt.Sprintf("%s=%s", cfg.AuthCookieName, cfg.AuthJWT)
}
