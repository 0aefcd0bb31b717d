package iot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iot"
	"github.com/aws/aws-sdk-go-v2/service/iot/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/iotcore/pkg/config"
	"github.com/ajitpratap0/iotcore/pkg/errors"
	"github.com/ajitpratap0/iotcore/pkg/metrics"
)

func testOptions(url string) config.IoTCoreOptions {
	return config.IoTCoreOptionsFromMap(map[string]string{
		config.OptionURL:       url,
		config.OptionRegion:    "eu-central-1",
		config.OptionAccessKey: "AKIAEXAMPLE",
		config.OptionSecretKey: "secret",
	})
}

func TestNewClientsUsesEndpointOverride(t *testing.T) {
	var calls int
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		switch {
		case r.URL.Path == "/things":
			query = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"things":[{"thingName":"sensor-1","thingArn":"arn:aws:iot:eu-central-1:1:thing/sensor-1","version":3}]}`))
		case strings.HasPrefix(r.URL.Path, "/things/sensor-1/shadow"):
			_, _ = w.Write([]byte(`{"state":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	clients, err := NewClients(context.Background(), testOptions(srv.URL), config.TimeoutConfig{Request: 5 * time.Second})
	require.NoError(t, err)

	out, err := clients.Registry.ListThings(context.Background(), &iot.ListThingsInput{MaxResults: aws.Int32(MaxResults)})
	require.NoError(t, err)
	require.Len(t, out.Things, 1)
	assert.Equal(t, "sensor-1", aws.ToString(out.Things[0].ThingName))
	assert.Equal(t, int64(3), out.Things[0].Version)
	assert.Nil(t, out.NextToken)
	assert.Contains(t, query, "maxResults=250")

	shadow, err := clients.Shadow.GetThingShadow(context.Background(), &GetThingShadowInput{ThingName: "sensor-1"})
	require.NoError(t, err)
	assert.Equal(t, `{"state":{}}`, string(shadow.Payload))
	assert.Equal(t, 2, calls)
}

func TestNewClientsDoesNotRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("X-Amzn-ErrorType", "ThrottlingException")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"Rate exceeded"}`))
	}))
	defer srv.Close()

	clients, err := NewClients(context.Background(), testOptions(srv.URL), config.TimeoutConfig{})
	require.NoError(t, err)

	_, err = clients.Registry.CreateThing(context.Background(), &iot.CreateThingInput{ThingName: aws.String("sensor-1")})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, IsBackendError(err))
	assert.Equal(t, "ThrottlingException", ErrorCode(err))
	assert.Equal(t, metrics.StatusBackendError, ClassifyStatus(err))
}

func TestNewClientsValidatesOptions(t *testing.T) {
	opts := testOptions("")
	opts.Region = ""

	_, err := NewClients(context.Background(), opts, config.TimeoutConfig{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestWrapBackend(t *testing.T) {
	assert.Nil(t, WrapBackend(nil, "list things"))

	backend := WrapBackend(&types.ResourceNotFoundException{Message: aws.String("thing not found")}, "list things")
	assert.True(t, errors.IsType(backend, errors.ErrorTypeBackend))
	assert.True(t, IsNotFound(backend))

	internal := WrapBackend(assert.AnError, "list things")
	assert.True(t, errors.IsType(internal, errors.ErrorTypeInternal))
	assert.Equal(t, metrics.StatusError, ClassifyStatus(internal))
	assert.Equal(t, metrics.StatusSuccess, ClassifyStatus(nil))
}
