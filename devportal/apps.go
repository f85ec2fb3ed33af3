package devportal

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/appstoreconnect"
)

// App is an App ID registered on the Developer Portal.
type App struct {
	ID              string   `json:"appIdId"`
	Name            string   `json:"name"`
	Platform        string   `json:"appIdPlatform"`
	Prefix          string   `json:"prefix"`
	BundleID        string   `json:"identifier"`
	IsWildcard      bool     `json:"isWildCard"`
	DevPushEnabled  bool     `json:"isDevPushEnabled"`
	ProdPushEnabled bool     `json:"isProdPushEnabled"`
	EnabledFeatures []string `json:"enabledFeatures,omitempty"`
}

// BundleIDPlatform ...
func (a App) BundleIDPlatform() appstoreconnect.BundleIDPlatform {
	switch strings.ToLower(a.Platform) {
	case "mac":
		return appstoreconnect.MacOS
	default:
		return appstoreconnect.IOS
	}
}

// AppClient manages App IDs.
type AppClient struct {
	client *Client
}

// NewAppClient ...
func NewAppClient(client *Client) *AppClient {
	return &AppClient{client: client}
}

// Client returns the session the collection is bound to.
func (c *AppClient) Client() *Client {
	return c.client
}

// List returns every App ID of the selected team.
func (c *AppClient) List(ctx context.Context) ([]App, error) {
	apps, err := listAll(func(paging PagingOptions) ([]App, error) {
		var resp struct {
			AppIDs []App `json:"appIds"`
		}
		if err := c.client.portalRequest(ctx, "account/ios/identifiers/listAppIds.action", paging, true, &resp); err != nil {
			return nil, err
		}
		return resp.AppIDs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return apps, nil
}

// Find returns the App ID with the given bundle ID, or nil if there is none.
func (c *AppClient) Find(ctx context.Context, bundleID string) (*App, error) {
	apps, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, app := range apps {
		if app.BundleID == bundleID {
			return &app, nil
		}
	}
	return nil, nil
}

// CreateAppOpts ...
type CreateAppOpts struct {
	Name     string
	BundleID string
}

type createAppRequest struct {
	Name          string `url:"name"`
	Identifier    string `url:"identifier"`
	Type          string `url:"type"`
	GameCenter    string `url:"gameCenter,omitempty"`
	InAppPurchase string `url:"inAppPurchase,omitempty"`
}

// Create registers a new App ID. A bundle ID ending with '*' creates a wildcard App ID.
func (c *AppClient) Create(ctx context.Context, opts CreateAppOpts) (App, error) {
	req := createAppRequest{
		Name:       opts.Name,
		Identifier: opts.BundleID,
		Type:       "explicit",
	}
	if strings.HasSuffix(opts.BundleID, "*") {
		req.Type = "wildcard"
	} else {
		req.GameCenter = "on"
		req.InAppPurchase = "on"
	}

	var resp struct {
		AppID App `json:"appId"`
	}
	if err := c.client.portalRequest(ctx, "account/ios/identifiers/addAppId.action", req, true, &resp); err != nil {
		return App{}, fmt.Errorf("failed to create app (%s): %w", opts.BundleID, err)
	}

	return resp.AppID, nil
}

// Delete removes the App ID with the given ID.
func (c *AppClient) Delete(ctx context.Context, appID string) error {
	req := struct {
		AppIDID string `url:"appIdId"`
	}{AppIDID: appID}

	if err := c.client.portalRequest(ctx, "account/ios/identifiers/deleteAppId.action", req, true, nil); err != nil {
		return fmt.Errorf("failed to delete app (%s): %w", appID, err)
	}
	return nil
}
