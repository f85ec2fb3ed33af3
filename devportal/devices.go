package devportal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bitrise-io/go-xcode/devportalservice"
	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/appstoreconnect"
)

// Device is a registered test device.
type Device struct {
	ID       string `json:"deviceId"`
	Name     string `json:"name"`
	UDID     string `json:"deviceNumber"`
	Platform string `json:"devicePlatform"`
	Status   string `json:"status"`
	Class    string `json:"deviceClass"`
	Model    string `json:"model,omitempty"`
}

// AppStoreConnectStatus maps the portal's status code ("c": current, "r": removed).
func (d Device) AppStoreConnectStatus() appstoreconnect.Status {
	if d.Status == "c" {
		return appstoreconnect.Enabled
	}
	return appstoreconnect.Disabled
}

// DeviceClass ...
func (d Device) DeviceClass() appstoreconnect.DeviceClass {
	switch strings.ToLower(d.Class) {
	case "iphone":
		return appstoreconnect.Iphone
	case "ipad":
		return appstoreconnect.Ipad
	case "ipod":
		return appstoreconnect.Ipod
	case "watch":
		return appstoreconnect.AppleWatch
	case "tvos", "appletv":
		return appstoreconnect.AppleTV
	case "mac":
		return appstoreconnect.Mac
	default:
		return appstoreconnect.DeviceClass(strings.ToUpper(d.Class))
	}
}

// DeviceClient manages test devices.
type DeviceClient struct {
	client *Client
}

// NewDeviceClient ...
func NewDeviceClient(client *Client) *DeviceClient {
	return &DeviceClient{client: client}
}

// Client returns the session the collection is bound to.
func (c *DeviceClient) Client() *Client {
	return c.client
}

type listDevicesRequest struct {
	PagingOptions
	IncludeRemovedDevices bool `url:"includeRemovedDevices"`
}

// List returns the enabled devices of the selected team.
func (c *DeviceClient) List(ctx context.Context) ([]Device, error) {
	devices, err := listAll(func(paging PagingOptions) ([]Device, error) {
		var resp struct {
			Devices []Device `json:"devices"`
		}
		req := listDevicesRequest{PagingOptions: paging}
		if err := c.client.portalRequest(ctx, "account/ios/device/listDevices.action", req, true, &resp); err != nil {
			return nil, err
		}
		return resp.Devices, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Find returns the device with the given UDID, or nil if it is not registered.
func (c *DeviceClient) Find(ctx context.Context, udid string) (*Device, error) {
	devices, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	return findDevice(devices, udid), nil
}

type addDeviceRequest struct {
	DeviceNumber string `url:"deviceNumber"`
	Name         string `url:"name"`
	Register     string `url:"register"`
}

// Create registers a new device.
func (c *DeviceClient) Create(ctx context.Context, name, udid string) (Device, error) {
	req := addDeviceRequest{
		DeviceNumber: udid,
		Name:         name,
		Register:     "single",
	}

	var resp struct {
		Device Device `json:"device"`
	}
	if err := c.client.portalRequest(ctx, "account/ios/device/addDevice.action", req, true, &resp); err != nil {
		var respErr UnexpectedResponseError
		if errors.As(err, &respErr) {
			return Device{}, appstoreconnect.DeviceRegistrationError{Reason: respErr.Error()}
		}
		return Device{}, fmt.Errorf("failed to register device (%s): %w", udid, err)
	}

	return resp.Device, nil
}

// RegisterTestDevices registers the test devices which are not yet on the portal and returns the new ones.
// Devices rejected by the portal are skipped.
func (c *DeviceClient) RegisterTestDevices(ctx context.Context, testDevices []devportalservice.TestDevice) ([]Device, error) {
	if len(testDevices) == 0 {
		return nil, nil
	}

	devices, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	var registered []Device
	for _, testDevice := range testDevices {
		if findDevice(devices, testDevice.DeviceID) != nil {
			c.client.logger.Debugf("Device already registered: %s (%s)", testDevice.Title, testDevice.DeviceID)
			continue
		}

		device, err := c.Create(ctx, testDevice.Title, testDevice.DeviceID)
		if err != nil {
			var registrationErr appstoreconnect.DeviceRegistrationError
			if errors.As(err, &registrationErr) {
				c.client.logger.Warnf("Failed to register device %s (%s): %s", testDevice.Title, testDevice.DeviceID, registrationErr.Reason)
				continue
			}
			return registered, err
		}

		c.client.logger.Printf("Registered device: %s (%s)", device.Name, device.UDID)
		registered = append(registered, device)
		devices = append(devices, device)
	}

	return registered, nil
}

func findDevice(devices []Device, udid string) *Device {
	for _, device := range devices {
		if devportalservice.IsEqualUDID(device.UDID, udid) {
			return &device
		}
	}
	return nil
}
