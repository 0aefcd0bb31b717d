package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/iotcore/pkg/config"
)

// IntegrationTestSuite runs tests against a fresh FakeIoT per test.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time

	// Fake is recreated before every test
	Fake *FakeIoT
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()
}

// SetupTest starts a new fake registry
func (s *IntegrationTestSuite) SetupTest() {
	s.Fake = NewFakeIoT(s.T())
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// Config returns a connector configuration pointing at the fake registry.
func (s *IntegrationTestSuite) Config(tableType string, extra map[string]string) *config.BaseConfig {
	return FakeConfig(s.Fake, tableType, extra)
}

// FakeConfig builds a connector configuration for f.
func FakeConfig(f *FakeIoT, tableType string, extra map[string]string) *config.BaseConfig {
	cfg := config.NewBaseConfig("iot_"+tableType, "iotcore")
	cfg.Timeouts.Request = 5 * time.Second
	cfg.Security.Credentials = map[string]string{
		config.OptionURL:       f.URL(),
		config.OptionRegion:    f.Region,
		config.OptionAccessKey: "AKIAEXAMPLE",
		config.OptionSecretKey: "secret",
		config.OptionTableType: tableType,
	}
	for k, v := range extra {
		cfg.Security.Credentials[k] = v
	}
	return cfg
}

// IntegrationTest skips t in short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
