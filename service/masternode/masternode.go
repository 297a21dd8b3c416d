package masternode

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	"github.com/zyedidia/generic/mapset"
)

var (
	ErrInvalidKey = errors.New("masternode key not in allow-list")
	ErrInvalidIP  = errors.New("invalid masternode ip")
)

type Config struct {
	AllowedKeys []string `valid:"required"`
}

func New(logger *slog.Logger, cfg Config) core.MasternodeService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	allowed := mapset.New[string]()
	for _, key := range cfg.AllowedKeys {
		allowed.Put(key)
	}

	return &service{
		allowed: allowed,
		logger:  logger.With("service", "masternode"),
	}
}

// service keeps registered keys in memory only; the keychain of the
// client app owns persistence.
type service struct {
	allowed mapset.Set[string]
	logger  *slog.Logger

	mux  sync.Mutex
	keys []*core.MasternodeKey
}

// Register validates key against the allow-list and records it with its
// ip. Registering the same key twice returns the stored entry.
func (s *service) Register(ctx context.Context, key, ip string) (*core.MasternodeKey, error) {
	if !s.allowed.Has(key) {
		return nil, ErrInvalidKey
	}

	if !govalidator.IsIP(ip) {
		return nil, ErrInvalidIP
	}

	s.mux.Lock()
	defer s.mux.Unlock()

	for _, k := range s.keys {
		if k.Key == key {
			return k, nil
		}
	}

	k := &core.MasternodeKey{Key: key, IP: ip}
	s.keys = append(s.keys, k)
	s.logger.Info("masternode key registered", "ip", ip)

	return k, nil
}

func (s *service) Keys(ctx context.Context) []*core.MasternodeKey {
	s.mux.Lock()
	defer s.mux.Unlock()

	out := make([]*core.MasternodeKey, len(s.keys))
	copy(out, s.keys)
	return out
}
