package storeconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/MarcGrol/flowershop/lib/myhttpclient"
	"github.com/MarcGrol/flowershop/lib/mylog"
	"github.com/MarcGrol/flowershop/services/region"
)

// Snapshot is one consistent view on the remote delivery configuration
type Snapshot struct {
	OffDays        []string
	RegionSettings region.Settings
	// Fallback tells that at least one part is a hardcoded default
	Fallback bool
}

//go:generate mockgen -source=storeconfig.go -package storeconfig -destination storeconfig_mock.go Provider
type Provider interface {
	Fetch(c context.Context) Snapshot
}

type remoteProvider struct {
	baseURL string
	client  myhttpclient.HTTPSender
	logger  mylog.Logger
}

func NewRemoteProvider(baseURL string, client myhttpclient.HTTPSender) Provider {
	return &remoteProvider{
		baseURL: baseURL,
		client:  client,
		logger:  mylog.New("storeconfig"),
	}
}

// Fetch never fails: errors and cancellations fall back to the defaults
func (p *remoteProvider) Fetch(c context.Context) Snapshot {
	snapshot := Snapshot{}

	offDays, err := p.fetchOffDays(c)
	if err != nil {
		p.logger.Log(c, "", mylog.SeverityWarn, "Using no off-days: %s", err)
		offDays = []string{}
		snapshot.Fallback = true
	}
	snapshot.OffDays = offDays

	settings, err := p.fetchRegionSettings(c)
	if err != nil {
		p.logger.Log(c, "", mylog.SeverityWarn, "Using default region settings: %s", err)
		settings = region.DefaultSettings()
		snapshot.Fallback = true
	}
	snapshot.RegionSettings = settings

	return snapshot
}

func (p *remoteProvider) fetchOffDays(c context.Context) ([]string, error) {
	offDays := []string{}
	err := p.get(c, "/delivery/off-days", &offDays)
	if err != nil {
		return nil, err
	}
	sort.Strings(offDays)
	return offDays, nil
}

func (p *remoteProvider) fetchRegionSettings(c context.Context) (region.Settings, error) {
	settings := region.Settings{}
	err := p.get(c, "/delivery/region-settings", &settings)
	if err != nil {
		return region.Settings{}, err
	}
	if settings.DisabledDistricts == nil {
		settings.DisabledDistricts = []string{}
	}
	if settings.DisabledNeighborhoodsByDistrict == nil {
		settings.DisabledNeighborhoodsByDistrict = map[string][]string{}
	}
	return settings, nil
}

func (p *remoteProvider) get(c context.Context, path string, response any) error {
	if p.baseURL == "" {
		return fmt.Errorf("no store configuration url")
	}
	if c.Err() != nil {
		return c.Err()
	}

	status, body, err := p.client.Send(c, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("error fetching %s: %w", path, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("error fetching %s: status %d", path, status)
	}

	err = json.Unmarshal(body, response)
	if err != nil {
		return fmt.Errorf("error parsing %s: %s", path, err)
	}
	return nil
}
