package core

import "context"

// MasternodeKey entitles its holder to cast votes. Keys are validated
// against an allow-list and held in memory only; persistence belongs to
// the platform keychain.
type MasternodeKey struct {
	Key string `json:"key"`
	IP  string `json:"ip"`
}

type MasternodeService interface {
	Register(ctx context.Context, key, ip string) (*MasternodeKey, error)
	Keys(ctx context.Context) []*MasternodeKey
}
