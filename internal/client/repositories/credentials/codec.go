// Package credentials persists the session credential as three independent
// keys (access token, refresh token, expiry in epoch milliseconds). Two
// backends are provided: SQLite through the metadata repository and Redis.
//
// A partially written credential (missing key, unparsable expiry) loads as
// absent, never as an error.
package credentials

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/client/models"
	"github.com/dmitrijs2005/erpadmin/internal/common"
)

// storeKeys lists the persisted keys in a fixed order.
var storeKeys = []string{
	common.AccessTokenKey,
	common.RefreshTokenKey,
	common.TokenExpiresAtKey,
}

func encode(c models.Credential) map[string]string {
	return map[string]string{
		common.AccessTokenKey:    c.AccessToken,
		common.RefreshTokenKey:   c.RefreshToken,
		common.TokenExpiresAtKey: strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10),
	}
}

// decode rebuilds a credential from raw values; ok is false when any key is
// missing, the access token is empty or the expiry is not an integer.
func decode(values map[string]string) (models.Credential, bool) {
	access, ok := values[common.AccessTokenKey]
	if !ok || access == "" {
		return models.Credential{}, false
	}
	refresh, ok := values[common.RefreshTokenKey]
	if !ok {
		return models.Credential{}, false
	}
	raw, ok := values[common.TokenExpiresAtKey]
	if !ok {
		return models.Credential{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return models.Credential{}, false
	}
	return models.Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.UnixMilli(ms),
	}, true
}
