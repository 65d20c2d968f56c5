package nirasdk

import (
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// ShortUUIDLen is the length of an unpadded url-safe base64 uuid.
const ShortUUIDLen = 22

// ShortUUID encodes a canonical uuid into the 22 character form used in asset urls.
func ShortUUID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(u[:]), nil
}

// ExpandShortUUID is the inverse of ShortUUID.
func ExpandShortUUID(short string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(short)
	if err != nil {
		return "", ErrInvalidAssetRef
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return "", ErrInvalidAssetRef
	}
	return u.String(), nil
}

// ParseAssetRef accepts an asset url or a bare short uuid and returns the short uuid.
func ParseAssetRef(ref string) (string, error) {
	ref = strings.TrimSuffix(strings.TrimSpace(ref), "/")
	if len(ref) < ShortUUIDLen {
		return "", ErrInvalidAssetRef
	}
	short := ref[len(ref)-ShortUUIDLen:]
	if _, err := ExpandShortUUID(short); err != nil {
		return "", err
	}
	return short, nil
}
