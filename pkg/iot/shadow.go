package iot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/smithy-go"
	"github.com/go-resty/resty/v2"

	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/json"
)

// SigningName is the SigV4 service name of the device data endpoint
const SigningName = "iotdevicegateway"

const (
	headerContentSHA256 = "X-Amz-Content-Sha256"
	headerErrorType     = "X-Amzn-Errortype"
)

// GetThingShadowInput selects the shadow to read. An empty ShadowName means the
// classic shadow.
type GetThingShadowInput struct {
	ThingName  string
	ShadowName string
}

// GetThingShadowOutput carries the raw shadow document
type GetThingShadowOutput struct {
	Payload []byte
}

// UpdateThingShadowInput carries the document to write
type UpdateThingShadowInput struct {
	ThingName  string
	ShadowName string
	Payload    []byte
}

// UpdateThingShadowOutput carries the document the service returned
type UpdateThingShadowOutput struct {
	Payload []byte
}

// ShadowClientConfig configures a ShadowClient
type ShadowClientConfig struct {
	// Endpoint overrides the data endpoint; defaults to DefaultDataEndpoint(Region)
	Endpoint          string
	Region            string
	Credentials       aws.CredentialsProvider
	Timeout           time.Duration
	ConnectionTimeout time.Duration
}

// ShadowClient talks to the device shadow REST API with SigV4-signed requests.
type ShadowClient struct {
	http     *resty.Client
	signer   *v4.Signer
	creds    aws.CredentialsProvider
	region   string
	endpoint string
}

// NewShadowClient creates a shadow client. Requests are never retried.
func NewShadowClient(cfg ShadowClientConfig) (*ShadowClient, error) {
	if cfg.Region == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "please set the AWS region")
	}
	if cfg.Credentials == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "shadow client requires credentials")
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultDataEndpoint(cfg.Region)
	}

	c := &ShadowClient{
		signer:   v4.NewSigner(),
		creds:    cfg.Credentials,
		region:   cfg.Region,
		endpoint: endpoint,
	}

	dialer := &net.Dialer{Timeout: defaultTimeout(cfg.ConnectionTimeout)}
	c.http = resty.New().
		SetBaseURL(endpoint).
		SetTimeout(defaultTimeout(cfg.Timeout)).
		SetTransport(&http.Transport{
			Proxy:       http.ProxyFromEnvironment,
			DialContext: dialer.DialContext,
		}).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetPreRequestHook(c.sign)

	return c, nil
}

// Endpoint returns the data endpoint requests are sent to
func (c *ShadowClient) Endpoint() string {
	return c.endpoint
}

// GetThingShadow reads a shadow document. A missing shadow is returned as a
// backend error with code ResourceNotFoundException.
func (c *ShadowClient) GetThingShadow(ctx context.Context, params *GetThingShadowInput) (*GetThingShadowOutput, error) {
	if params == nil || params.ThingName == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "thing name is required")
	}

	req := c.request(ctx, params.ThingName, params.ShadowName, nil)
	resp, err := req.Get("/things/{thingName}/shadow")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "shadow request failed")
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}
	return &GetThingShadowOutput{Payload: resp.Body()}, nil
}

// UpdateThingShadow writes a shadow document and returns the service's reply
func (c *ShadowClient) UpdateThingShadow(ctx context.Context, params *UpdateThingShadowInput) (*UpdateThingShadowOutput, error) {
	if params == nil || params.ThingName == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "thing name is required")
	}

	req := c.request(ctx, params.ThingName, params.ShadowName, params.Payload).
		SetHeader("Content-Type", "application/json")
	resp, err := req.Post("/things/{thingName}/shadow")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "shadow request failed")
	}
	if err := responseError(resp); err != nil {
		return nil, err
	}
	return &UpdateThingShadowOutput{Payload: resp.Body()}, nil
}

func (c *ShadowClient) request(ctx context.Context, thingName, shadowName string, body []byte) *resty.Request {
	sum := sha256.Sum256(body)
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("thingName", thingName).
		SetHeader(headerContentSHA256, hex.EncodeToString(sum[:]))
	if shadowName != "" {
		req.SetQueryParam("name", shadowName)
	}
	if body != nil {
		req.SetBody(body)
	}
	return req
}

// sign runs after resty builds the raw request and before it is sent
func (c *ShadowClient) sign(_ *resty.Client, r *http.Request) error {
	ctx := r.Context()
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to retrieve credentials")
	}
	return c.signer.SignHTTP(ctx, creds, r, r.Header.Get(headerContentSHA256), SigningName, c.region, time.Now().UTC())
}

type errorBody struct {
	Message string `json:"message"`
}

var statusCodes = map[int]string{
	http.StatusBadRequest:            "InvalidRequestException",
	http.StatusUnauthorized:          "UnauthorizedException",
	http.StatusForbidden:             "ForbiddenException",
	http.StatusNotFound:              "ResourceNotFoundException",
	http.StatusMethodNotAllowed:      "MethodNotAllowedException",
	http.StatusConflict:              "ConflictException",
	http.StatusRequestEntityTooLarge: "RequestEntityTooLargeException",
	http.StatusUnsupportedMediaType:  "UnsupportedDocumentEncodingException",
	http.StatusTooManyRequests:       "ThrottlingException",
	http.StatusServiceUnavailable:    "ServiceUnavailableException",
}

// responseError converts a non-2xx response into a smithy API error so callers
// classify it the same way as registry SDK errors.
func responseError(resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	code := resp.Header().Get(headerErrorType)
	if i := strings.IndexByte(code, ':'); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		code = statusCodes[status]
	}
	if code == "" {
		code = "InternalFailureException"
	}

	var body errorBody
	if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Message == "" {
		body.Message = fmt.Sprintf("shadow request returned status %d", status)
	}

	fault := smithy.FaultClient
	if status >= 500 {
		fault = smithy.FaultServer
	}
	return &smithy.GenericAPIError{Code: code, Message: body.Message, Fault: fault}
}
