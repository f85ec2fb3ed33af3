package devportal

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	gotime "time"

	"github.com/bitrise-io/go-xcode/profileutil"
	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/appstoreconnect"
	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/time"
)

// DistributionMethods ...
const (
	DistributionDevelopment = "limited"
	DistributionAppStore    = "store"
	DistributionAdHoc       = "adhoc"
	DistributionInHouse     = "inhouse"
	DistributionDirect      = "direct"
)

// ProvisioningProfile ...
type ProvisioningProfile struct {
	ID                 string     `json:"provisioningProfileId"`
	UUID               string     `json:"UUID"`
	Name               string     `json:"name"`
	Status             string     `json:"status"`
	Type               string     `json:"type"`
	DistributionMethod string     `json:"distributionMethod"`
	Platform           string     `json:"proProPlatform"`
	Expires            *time.Time `json:"dateExpire"` // nil if the portal sent no date
	AppID              App        `json:"appId"`
	CertificateCount   int        `json:"certificateCount"`
	DeviceCount        int        `json:"deviceCount"`

	// Content is only filled by ProfileClient.ListWithContent.
	Content []byte `json:"-"`
}

// BundleID ...
func (p ProvisioningProfile) BundleID() string {
	return p.AppID.BundleID
}

// ExpirationDate ...
func (p ProvisioningProfile) ExpirationDate() gotime.Time {
	if p.Expires == nil {
		return gotime.Time{}
	}
	return gotime.Time(*p.Expires)
}

// IsActive ...
func (p ProvisioningProfile) IsActive() bool {
	return strings.EqualFold(p.Status, "active")
}

// ProfileType maps the distribution method and platform to the App Store Connect API profile type.
func (p ProvisioningProfile) ProfileType() appstoreconnect.ProfileType {
	platform := strings.ToLower(p.Platform)
	switch {
	case platform == "mac":
		switch p.DistributionMethod {
		case DistributionAppStore:
			return appstoreconnect.MacAppStore
		case DistributionDirect:
			return appstoreconnect.MacAppDirect
		default:
			return appstoreconnect.MacAppDevelopment
		}
	case platform == "tvos":
		switch p.DistributionMethod {
		case DistributionAppStore:
			return appstoreconnect.TvOSAppStore
		case DistributionAdHoc:
			return appstoreconnect.TvOSAppAdHoc
		case DistributionInHouse:
			return appstoreconnect.TvOSAppInHouse
		default:
			return appstoreconnect.TvOSAppDevelopment
		}
	default:
		switch p.DistributionMethod {
		case DistributionAppStore:
			return appstoreconnect.IOSAppStore
		case DistributionAdHoc:
			return appstoreconnect.IOSAppAdHoc
		case DistributionInHouse:
			return appstoreconnect.IOSAppInHouse
		default:
			return appstoreconnect.IOSAppDevelopment
		}
	}
}

// ProfileContent ...
type ProfileContent struct {
	Raw  []byte
	Info profileutil.ProvisioningProfileInfoModel
}

// ProfileClient manages provisioning profiles.
type ProfileClient struct {
	client *Client
}

// NewProfileClient ...
func NewProfileClient(client *Client) *ProfileClient {
	return &ProfileClient{client: client}
}

// Client returns the session the collection is bound to.
func (c *ProfileClient) Client() *Client {
	return c.client
}

type listProfilesRequest struct {
	PagingOptions
	IncludeInactiveProfiles bool `url:"includeInactiveProfiles"`
	OnlyCountLists          bool `url:"onlyCountLists"`
}

// List returns every provisioning profile of the selected team, including the inactive ones.
func (c *ProfileClient) List(ctx context.Context) ([]ProvisioningProfile, error) {
	profiles, err := listAll(func(paging PagingOptions) ([]ProvisioningProfile, error) {
		var resp struct {
			Profiles []ProvisioningProfile `json:"provisioningProfiles"`
		}
		req := listProfilesRequest{
			PagingOptions:           paging,
			IncludeInactiveProfiles: true,
			OnlyCountLists:          true,
		}
		if err := c.client.portalRequest(ctx, "account/ios/profile/listProvisioningProfiles.action", req, true, &resp); err != nil {
			return nil, err
		}
		return resp.Profiles, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list provisioning profiles: %w", err)
	}
	return profiles, nil
}

type xcodeProfile struct {
	ID                 string      `plist:"provisioningProfileId"`
	UUID               string      `plist:"UUID"`
	Name               string      `plist:"name"`
	Status             string      `plist:"status"`
	Type               string      `plist:"type"`
	DistributionMethod string      `plist:"distributionMethod"`
	Platform           string      `plist:"proProPlatform"`
	DateExpire         gotime.Time `plist:"dateExpire"`
	EncodedProfile     []byte      `plist:"encodedProfile"`
	AppID              struct {
		ID         string `plist:"appIdId"`
		Name       string `plist:"name"`
		Identifier string `plist:"identifier"`
		Prefix     string `plist:"prefix"`
	} `plist:"appId"`
}

func (p xcodeProfile) toProvisioningProfile() ProvisioningProfile {
	var expires *time.Time
	if !p.DateExpire.IsZero() {
		t := time.Time(p.DateExpire)
		expires = &t
	}

	return ProvisioningProfile{
		ID:                 p.ID,
		UUID:               p.UUID,
		Name:               p.Name,
		Status:             p.Status,
		Type:               p.Type,
		DistributionMethod: p.DistributionMethod,
		Platform:           p.Platform,
		Expires:            expires,
		AppID: App{
			ID:       p.AppID.ID,
			Name:     p.AppID.Name,
			BundleID: p.AppID.Identifier,
			Prefix:   p.AppID.Prefix,
		},
		Content: p.EncodedProfile,
	}
}

// ListWithContent lists the provisioning profiles through the Xcode developer services API, which
// returns the profile content too.
func (c *ProfileClient) ListWithContent(ctx context.Context) ([]ProvisioningProfile, error) {
	params := map[string]interface{}{
		"includeInactiveProfiles": true,
		"onlyCountLists":          true,
	}

	var resp struct {
		Profiles []xcodeProfile `plist:"provisioningProfiles"`
	}
	if err := c.client.xcodeRequest(ctx, "ios/listProvisioningProfiles.action", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to list provisioning profiles: %w", err)
	}

	profiles := make([]ProvisioningProfile, 0, len(resp.Profiles))
	for _, profile := range resp.Profiles {
		profiles = append(profiles, profile.toProvisioningProfile())
	}
	return profiles, nil
}

// Find returns the profile with the given name, or nil if there is none.
func (c *ProfileClient) Find(ctx context.Context, name string) (*ProvisioningProfile, error) {
	profiles, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		if profile.Name == name {
			return &profile, nil
		}
	}
	return nil, nil
}

// FindByBundleID returns the profiles of the given App ID.
func (c *ProfileClient) FindByBundleID(ctx context.Context, bundleID string) ([]ProvisioningProfile, error) {
	profiles, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	var matching []ProvisioningProfile
	for _, profile := range profiles {
		if profile.BundleID() == bundleID {
			matching = append(matching, profile)
		}
	}
	return matching, nil
}

// Download fetches and parses the profile.
func (c *ProfileClient) Download(ctx context.Context, profile ProvisioningProfile) (ProfileContent, error) {
	raw := profile.Content
	if len(raw) == 0 {
		params := url.Values{}
		params.Set("provisioningProfileId", profile.ID)

		var err error
		raw, err = c.client.download(ctx, "account/ios/profile/downloadProfileContent", params)
		if err != nil {
			return ProfileContent{}, fmt.Errorf("failed to download provisioning profile (%s): %w", profile.Name, err)
		}
	}

	pkcs, err := profileutil.ProvisioningProfileFromContent(raw)
	if err != nil {
		return ProfileContent{}, fmt.Errorf("failed to parse pkcs7 from profile content (%s): %w", profile.Name, err)
	}

	info, err := profileutil.NewProvisioningProfileInfo(*pkcs)
	if err != nil {
		return ProfileContent{}, fmt.Errorf("failed to parse profile info from pkcs7 content (%s): %w", profile.Name, err)
	}

	return ProfileContent{Raw: raw, Info: info}, nil
}

// CreateProfileOpts ...
type CreateProfileOpts struct {
	Name               string
	DistributionMethod string
	AppID              string
	CertificateIDs     []string
	DeviceIDs          []string
}

type createProfileRequest struct {
	Name             string   `url:"provisioningProfileName"`
	AppIDID          string   `url:"appIdId"`
	DistributionType string   `url:"distributionType"`
	CertificateIDs   []string `url:"certificateIds,comma"`
	DeviceIDs        []string `url:"deviceIds,omitempty"`
}

// Create creates a new provisioning profile. App Store and In House profiles must not list devices.
func (c *ProfileClient) Create(ctx context.Context, opts CreateProfileOpts) (ProvisioningProfile, error) {
	if len(opts.CertificateIDs) == 0 {
		return ProvisioningProfile{}, fmt.Errorf("failed to create provisioning profile (%s): no certificates given", opts.Name)
	}

	req := createProfileRequest{
		Name:             opts.Name,
		AppIDID:          opts.AppID,
		DistributionType: opts.DistributionMethod,
		CertificateIDs:   opts.CertificateIDs,
	}
	if opts.DistributionMethod != DistributionAppStore && opts.DistributionMethod != DistributionInHouse {
		req.DeviceIDs = opts.DeviceIDs
	}

	var resp struct {
		Profile ProvisioningProfile `json:"provisioningProfile"`
	}
	if err := c.client.portalRequest(ctx, "account/ios/profile/createProvisioningProfile.action", req, true, &resp); err != nil {
		return ProvisioningProfile{}, fmt.Errorf("failed to create provisioning profile (%s): %w", opts.Name, err)
	}

	return resp.Profile, nil
}

// Delete ...
func (c *ProfileClient) Delete(ctx context.Context, profile ProvisioningProfile) error {
	req := struct {
		ID string `url:"provisioningProfileId"`
	}{ID: profile.ID}

	if err := c.client.portalRequest(ctx, "account/ios/profile/deleteProvisioningProfile.action", req, true, nil); err != nil {
		return fmt.Errorf("failed to delete provisioning profile (%s): %w", profile.Name, err)
	}
	return nil
}
