package devportal

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"net/url"
	gotime "time"

	"github.com/bitrise-io/go-xcode/certificateutil"
	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/appstoreconnect"
	"github.com/bitrise-io/go-xcode/v2/autocodesign/devportalclient/time"
)

// CertificateTypeID is the portal's identifier of a certificate type.
type CertificateTypeID string

// CertificateTypeIDs ...
const (
	DevelopmentCertificate     CertificateTypeID = "5QPB9NHCEI"
	ProductionCertificate      CertificateTypeID = "R58UK2EWSO"
	InHouseCertificate         CertificateTypeID = "9RQEK7MSXA"
	DevelopmentPushCertificate CertificateTypeID = "BKLRAVXMGM"
	ProductionPushCertificate  CertificateTypeID = "3BQKVH9I2X"
	PassbookCertificate        CertificateTypeID = "Y3B2F3TYSI"
	WebsitePushCertificate     CertificateTypeID = "3T2ZP62QW8"
	VoIPPushCertificate        CertificateTypeID = "E5D663CMZW"
	ApplePayCertificate        CertificateTypeID = "4APLUP237T"
)

// AllCertificateTypeIDs lists the certificate types queried when no type is given.
var AllCertificateTypeIDs = []CertificateTypeID{
	DevelopmentCertificate,
	ProductionCertificate,
	InHouseCertificate,
	DevelopmentPushCertificate,
	ProductionPushCertificate,
	PassbookCertificate,
	WebsitePushCertificate,
	VoIPPushCertificate,
	ApplePayCertificate,
}

// Certificate is a signing or service certificate issued by the portal.
type Certificate struct {
	ID           string            `json:"certificateId"`
	RequestID    string            `json:"certRequestId"`
	Name         string            `json:"name"`
	Status       string            `json:"statusString"`
	TypeID       CertificateTypeID `json:"certificateTypeDisplayId"`
	TypeString   string            `json:"typeString"`
	OwnerType    string            `json:"ownerType"`
	OwnerName    string            `json:"ownerName"`
	OwnerID      string            `json:"ownerId"`
	SerialNumber string            `json:"serialNum"`
	Expires      *time.Time        `json:"expirationDate"` // nil if the portal sent no date
	CanDownload  bool              `json:"canDownload"`
	CanRevoke    bool              `json:"canRevoke"`
}

// ExpirationDate ...
func (c Certificate) ExpirationDate() gotime.Time {
	if c.Expires == nil {
		return gotime.Time{}
	}
	return gotime.Time(*c.Expires)
}

// CertificateType returns the App Store Connect API equivalent of the certificate's type, if there is one.
func (c Certificate) CertificateType() (appstoreconnect.CertificateType, bool) {
	switch c.TypeID {
	case DevelopmentCertificate:
		return appstoreconnect.IOSDevelopment, true
	case ProductionCertificate, InHouseCertificate:
		return appstoreconnect.IOSDistribution, true
	default:
		return "", false
	}
}

// CertificateContent ...
type CertificateContent struct {
	Raw  []byte
	Info certificateutil.CertificateInfoModel
}

// CertificateClient manages certificates.
type CertificateClient struct {
	client *Client
}

// NewCertificateClient ...
func NewCertificateClient(client *Client) *CertificateClient {
	return &CertificateClient{client: client}
}

// Client returns the session the collection is bound to.
func (c *CertificateClient) Client() *Client {
	return c.client
}

type listCertificatesRequest struct {
	PagingOptions
	Types []CertificateTypeID `url:"types,comma"`
}

// List returns the certificates of the given types, or of every known type if none is given.
func (c *CertificateClient) List(ctx context.Context, types ...CertificateTypeID) ([]Certificate, error) {
	if len(types) == 0 {
		types = AllCertificateTypeIDs
	}

	certificates, err := listAll(func(paging PagingOptions) ([]Certificate, error) {
		var resp struct {
			CertRequests []Certificate `json:"certRequests"`
		}
		req := listCertificatesRequest{PagingOptions: paging, Types: types}
		if err := c.client.portalRequest(ctx, "account/ios/certificate/listCertRequests.action", req, true, &resp); err != nil {
			return nil, err
		}
		return resp.CertRequests, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return certificates, nil
}

// Find returns the certificate with the given ID, or nil if there is none.
func (c *CertificateClient) Find(ctx context.Context, id string) (*Certificate, error) {
	certificates, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, certificate := range certificates {
		if certificate.ID == id {
			return &certificate, nil
		}
	}
	return nil, nil
}

// Download fetches and parses the certificate.
func (c *CertificateClient) Download(ctx context.Context, certificate Certificate) (CertificateContent, error) {
	params := url.Values{}
	params.Set("certificateId", certificate.ID)
	params.Set("type", string(certificate.TypeID))

	raw, err := c.client.download(ctx, "account/ios/certificate/downloadCertificateContent.action", params)
	if err != nil {
		return CertificateContent{}, fmt.Errorf("failed to download certificate (%s): %w", certificate.ID, err)
	}

	cert, err := parseCertificate(raw)
	if err != nil {
		return CertificateContent{}, fmt.Errorf("failed to parse certificate (%s): %w", certificate.ID, err)
	}

	return CertificateContent{
		Raw:  raw,
		Info: certificateutil.NewCertificateInfo(*cert, nil),
	}, nil
}

type createCertificateRequest struct {
	Type       CertificateTypeID `url:"type"`
	CSRContent string            `url:"csrContent"`
	AppIDID    string            `url:"appIdId,omitempty"`
}

// Create submits a certificate signing request. Push certificates need the App ID they belong to.
func (c *CertificateClient) Create(ctx context.Context, typeID CertificateTypeID, csr string, appID string) (Certificate, error) {
	req := createCertificateRequest{
		Type:       typeID,
		CSRContent: csr,
		AppIDID:    appID,
	}

	var resp struct {
		CertRequest Certificate `json:"certRequest"`
	}
	if err := c.client.portalRequest(ctx, "account/ios/certificate/submitCertificateRequest.action", req, true, &resp); err != nil {
		return Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	return resp.CertRequest, nil
}

// Revoke ...
func (c *CertificateClient) Revoke(ctx context.Context, certificate Certificate) error {
	req := struct {
		CertificateID string            `url:"certificateId"`
		Type          CertificateTypeID `url:"type"`
	}{
		CertificateID: certificate.ID,
		Type:          certificate.TypeID,
	}

	if err := c.client.portalRequest(ctx, "account/ios/certificate/revokeCertificate.action", req, true, nil); err != nil {
		return fmt.Errorf("failed to revoke certificate (%s): %w", certificate.ID, err)
	}
	return nil
}

func parseCertificate(raw []byte) (*x509.Certificate, error) {
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("-----BEGIN")) {
		return certificateutil.CeritifcateFromPemContent(raw)
	}
	return x509.ParseCertificate(raw)
}
