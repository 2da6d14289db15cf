package mediaservice

import (
	"encoding/json"
	"strings"
	"time"
)

// Ref points at an object in the bucket. Key is the stable storage key; URL and ExpiresAt are
// filled in once the key has been signed. A Ref read back from a client or an old record may
// carry only a URL, in which case it is already resolved and never signed again.
type Ref struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// ParseRef turns a stored or submitted string into a Ref.
func ParseRef(s string) Ref {
	if s == "" {
		return Ref{}
	}
	if strings.Contains(s, "://") {
		return Ref{URL: s}
	}
	return Ref{Key: s}
}

func KeyRef(key string) Ref {
	return Ref{Key: key}
}

func (r Ref) IsZero() bool {
	return r.Key == "" && r.URL == ""
}

// Resolved reports whether r can be served as is at now. A URL without a key cannot be
// re-signed, so it counts as resolved regardless of expiry.
func (r Ref) Resolved(now time.Time) bool {
	if r.URL == "" {
		return false
	}
	if r.Key == "" || r.ExpiresAt.IsZero() {
		return true
	}
	return now.Before(r.ExpiresAt)
}

// Stored is the value persisted in the database: the key when there is one.
func (r Ref) Stored() string {
	if r.Key != "" {
		return r.Key
	}
	return r.URL
}

func (r Ref) String() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Key
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = ParseRef(s)
	return nil
}
