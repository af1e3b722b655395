package peerlist

import (
	"context"
	"errors"
	"time"

	"example.com/peerwire/lib/core/adapter/cache"
	"example.com/peerwire/lib/core/adapter/clock"
	"example.com/peerwire/lib/core/adapter/peerlist"
	"example.com/peerwire/lib/core/adapter/persistentmetadata"
	"example.com/peerwire/lib/core/domain"
	"example.com/peerwire/lib/logger"
)

var l_peerlist = logger.Named("peerlist")

const (
	DefaultExpiry = 30 * time.Minute
	kHosts        = "hosts"
)

var (
	errCacheExpired = errors.New("cache expired")
	ErrNoHosts      = errors.New("no hosts")
)

type Service interface {
	GetHosts(ctx context.Context) ([]domain.Host, error)
}

// Impl asks PeerList for hosts and remembers the answer, in memory through
// Cache and across runs through PersistentMetadata.
type Impl struct {
	Cache              cache.Cache
	PersistentMetadata persistentmetadata.PersistentMetadata
	PeerList           peerlist.PeerRepo
	Clock              clock.Clock
	// Expiry bounds how old persisted hosts may be; zero means DefaultExpiry.
	Expiry time.Duration
	// Namespace separates torrents sharing one store, usually the hex info hash.
	Namespace string
}

var (
	_ Service           = Impl{}
	_ peerlist.PeerRepo = Impl{}
)

type hostsWithTimestamp struct {
	Hosts []domain.Host
	Time  time.Time
}

// GetPeers lets Impl stand in for the tracker it wraps.
func (impl Impl) GetPeers(ctx context.Context) ([]domain.Host, error) {
	return impl.GetHosts(ctx)
}

func (impl Impl) GetHosts(ctx context.Context) ([]domain.Host, error) {
	l := logger.Ctx(l_peerlist, ctx).Sugar()

	hosts, err := impl.getHostsFromCache()
	if err == nil {
		l.Infow("using persisted hosts", "count", len(hosts))
		return hosts, nil
	}
	l.Debugw("no usable persisted hosts", "err", err)

	hosts, err = impl.getHostsFromAnnounce(ctx)
	if err != nil {
		return nil, err
	}
	if err := impl.setHostsToCache(hosts); err != nil {
		l.Warnw("cannot persist hosts", "err", err)
	}
	return hosts, nil
}

func (impl Impl) storeKey() string {
	if impl.Namespace == "" {
		return kHosts
	}
	return kHosts + ":" + impl.Namespace
}

func (impl Impl) expiry() time.Duration {
	if impl.Expiry > 0 {
		return impl.Expiry
	}
	return DefaultExpiry
}

func (impl Impl) getHostsFromCache() ([]domain.Host, error) {
	type key string
	v, err := impl.Cache.Cached(key("hosts"), func() (interface{}, error) {
		var persistHost hostsWithTimestamp
		if err := impl.PersistentMetadata.Get(impl.storeKey(), &persistHost); err != nil {
			return nil, err
		}
		cacheExpTime := persistHost.Time.Add(impl.expiry())
		if !impl.Clock.Now().Before(cacheExpTime) || len(persistHost.Hosts) == 0 {
			return nil, errCacheExpired
		}
		return persistHost.Hosts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Host), nil
}

func (impl Impl) getHostsFromAnnounce(ctx context.Context) ([]domain.Host, error) {
	type key string
	v, err := impl.Cache.Cached(key("announce"), func() (interface{}, error) {
		hosts, err := impl.PeerList.GetPeers(ctx)
		if err != nil {
			return nil, err
		}
		if len(hosts) == 0 {
			return nil, ErrNoHosts
		}
		return hosts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Host), nil
}

func (impl Impl) setHostsToCache(hosts []domain.Host) error {
	return impl.PersistentMetadata.Put(impl.storeKey(), hostsWithTimestamp{
		Hosts: hosts,
		Time:  impl.Clock.Now(),
	})
}
