package step

import (
	"time"

	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/appstoreconnect"

	"github.com/bitrise-steplib/steps-spaceship/devportal"
)

// Report is the content of the exported resource report.
type Report struct {
	TeamID               string             `json:"team_id"`
	RegisteredDevices    []DeviceEntry      `json:"registered_devices,omitempty"`
	Apps                 []AppEntry         `json:"apps,omitempty"`
	Devices              []DeviceEntry      `json:"devices,omitempty"`
	Certificates         []CertificateEntry `json:"certificates,omitempty"`
	ProvisioningProfiles []ProfileEntry     `json:"provisioning_profiles,omitempty"`
}

// AppEntry ...
type AppEntry struct {
	ID         string                           `json:"id"`
	Name       string                           `json:"name"`
	BundleID   string                           `json:"bundle_id"`
	Platform   appstoreconnect.BundleIDPlatform `json:"platform"`
	IsWildcard bool                             `json:"wildcard"`
	Features   []string                         `json:"features,omitempty"`
}

// DeviceEntry ...
type DeviceEntry struct {
	ID     string                      `json:"id"`
	Name   string                      `json:"name"`
	UDID   string                      `json:"udid"`
	Class  appstoreconnect.DeviceClass `json:"class,omitempty"`
	Model  string                      `json:"model,omitempty"`
	Status appstoreconnect.Status      `json:"status"`
}

// CertificateEntry ...
type CertificateEntry struct {
	ID             string                          `json:"id"`
	Name           string                          `json:"name"`
	Type           string                          `json:"type"`
	Kind           appstoreconnect.CertificateType `json:"kind,omitempty"`
	Owner          string                          `json:"owner,omitempty"`
	SerialNumber   string                          `json:"serial_number"`
	ExpirationDate *time.Time                      `json:"expiration_date,omitempty"`
}

// ProfileEntry ...
type ProfileEntry struct {
	ID                 string                      `json:"id"`
	UUID               string                      `json:"uuid"`
	Name               string                      `json:"name"`
	BundleID           string                      `json:"bundle_id"`
	Type               appstoreconnect.ProfileType `json:"type"`
	DistributionMethod string                      `json:"distribution_method"`
	Active             bool                        `json:"active"`
	ExpirationDate     *time.Time                  `json:"expiration_date,omitempty"`
}

func newAppEntries(apps []devportal.App) []AppEntry {
	var entries []AppEntry
	for _, app := range apps {
		entries = append(entries, AppEntry{
			ID:         app.ID,
			Name:       app.Name,
			BundleID:   app.BundleID,
			Platform:   app.BundleIDPlatform(),
			IsWildcard: app.IsWildcard,
			Features:   app.EnabledFeatures,
		})
	}
	return entries
}

func newDeviceEntries(devices []devportal.Device) []DeviceEntry {
	var entries []DeviceEntry
	for _, device := range devices {
		entries = append(entries, DeviceEntry{
			ID:     device.ID,
			Name:   device.Name,
			UDID:   device.UDID,
			Class:  device.DeviceClass(),
			Model:  device.Model,
			Status: device.AppStoreConnectStatus(),
		})
	}
	return entries
}

func newCertificateEntries(certificates []devportal.Certificate) []CertificateEntry {
	var entries []CertificateEntry
	for _, certificate := range certificates {
		// Push and service certificates have no App Store Connect counterpart.
		kind, _ := certificate.CertificateType()
		entries = append(entries, CertificateEntry{
			ID:             certificate.ID,
			Name:           certificate.Name,
			Type:           certificate.TypeString,
			Kind:           kind,
			Owner:          certificate.OwnerName,
			SerialNumber:   certificate.SerialNumber,
			ExpirationDate: knownDate(certificate.ExpirationDate()),
		})
	}
	return entries
}

func newProfileEntries(profiles []devportal.ProvisioningProfile) []ProfileEntry {
	var entries []ProfileEntry
	for _, profile := range profiles {
		entries = append(entries, ProfileEntry{
			ID:                 profile.ID,
			UUID:               profile.UUID,
			Name:               profile.Name,
			BundleID:           profile.BundleID(),
			Type:               profile.ProfileType(),
			DistributionMethod: profile.DistributionMethod,
			Active:             profile.IsActive(),
			ExpirationDate:     knownDate(profile.ExpirationDate()),
		})
	}
	return entries
}

func knownDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
