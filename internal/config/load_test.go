package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tacusci/logging/v2"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
)

type LoadConfigTestSuite struct {
	suite.Suite
	configResolver   configdef.Resolver
	fs               afero.Fs
	path             string
	configFile       afero.File
	userConfigDirRef func() (string, error)
}

func (suite *LoadConfigTestSuite) SetupSuite() {
	logging.CurrentLoggingLevel = logging.SilentLevel
	suite.fs = afero.NewMemMapFs()
	suite.configResolver = DefaultResolver()

	// use in memory FS in implementation for tests
	fs = suite.fs
	suite.userConfigDirRef = userConfigDir
	userConfigDir = func() (string, error) { return "test", nil }
}

func (suite *LoadConfigTestSuite) TearDownSuite() {
	fs = afero.NewOsFs()
	userConfigDir = suite.userConfigDirRef
	logging.CurrentLoggingLevel = logging.WarnLevel
}

func (suite *LoadConfigTestSuite) SetupTest() {
	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), suite.fs.MkdirAll(filepath.Dir(path), os.ModeDir|os.ModePerm))
	suite.path = path

	configFile, err := suite.fs.Create(path)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), configFile)

	suite.configFile = configFile

	// can be overridden this so reset it back before
	// each test to ensure that it's an opt in thing per
	// individual test
	suite.overwriteTestConfig(
		`{
			"debug": true,
			"camera": {
				"title": "Front Door",
				"address": "/dev/video0",
				"backend": "mock",
				"width": 320,
				"height": 240,
				"format": "gray",
				"buffer_size": 2
			},
			"trigger": {"terminal": true},
			"display": {"enabled": true, "headless": true}
		}`,
	)
}

func (suite *LoadConfigTestSuite) overwriteTestConfig(config string) {
	require.NoError(suite.T(), suite.configFile.Truncate(0))
	_, err := suite.configFile.Seek(0, 0)
	require.NoError(suite.T(), err)
	_, err = suite.configFile.WriteString(config)
	assert.NoError(suite.T(), err)
}

func (suite *LoadConfigTestSuite) TearDownTest() {
	require.NoError(suite.T(), suite.configFile.Close())
	suite.fs.Remove(suite.path)
}

func (suite *LoadConfigTestSuite) TestResolveConfigPathFromUserConfigDir() {
	assert.Equal(suite.T(), filepath.Join("test", "tacusci", "dragondoorbell", "config.json"), suite.path)
}

func (suite *LoadConfigTestSuite) TestResolveConfigPathFromEnv() {
	os.Setenv("DRAGON_DOORBELL_CONFIG", "elsewhere/doorbell.yaml")
	defer os.Unsetenv("DRAGON_DOORBELL_CONFIG")

	path, err := resolveConfigPath()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "elsewhere/doorbell.yaml", path)
}

func (suite *LoadConfigTestSuite) TestResolveConfigPathFailure() {
	userConfigDir = func() (string, error) { return "", errors.New("no home") }
	defer func() { userConfigDir = func() (string, error) { return "test", nil } }()

	_, err := suite.configResolver.Resolve()
	assert.EqualError(suite.T(), err, "unable to resolve config.json location: no home")
}

func (suite *LoadConfigTestSuite) TestLoadConfigFillsDefaults() {
	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)

	assert.True(suite.T(), config.Debug)
	assert.Equal(suite.T(), configdef.Camera{
		Title:      "Front Door",
		Address:    "/dev/video0",
		Backend:    "mock",
		Width:      320,
		Height:     240,
		Format:     "gray",
		BufferSize: 2,
	}, config.Camera)
	assert.Equal(suite.T(), configdef.Display{
		Enabled:               true,
		Headless:              true,
		Title:                 "Front Door",
		KeyPollIntervalMillis: 10,
	}, config.Display)
	assert.Equal(suite.T(), 20, config.Trigger.Button.PollIntervalMillis)
	assert.Equal(suite.T(), 30, config.Forward.TimeoutSeconds)
}

func (suite *LoadConfigTestSuite) TestLoadConfigFailsToParse() {
	suite.overwriteTestConfig(`{"debug" true}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)
	assert.EqualError(suite.T(), err, "parsing configuration error: invalid character 't' after object key")
}

func (suite *LoadConfigTestSuite) TestLoadConfigFailsValidation() {
	suite.overwriteTestConfig(`{"camera": {"title": "Front Door", "address": "0", "backend": "gstreamer"}}`)

	config, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	require.Empty(suite.T(), config)
	assert.EqualError(suite.T(), err, `Validation error in field "Backend" of type "string" using validator "one_of=opencv,mock"`)
}

func (suite *LoadConfigTestSuite) TestLoadConfigFromYAML() {
	os.Setenv("DRAGON_DOORBELL_CONFIG", "test/doorbell.yml")
	defer os.Unsetenv("DRAGON_DOORBELL_CONFIG")
	require.NoError(suite.T(), afero.WriteFile(suite.fs, "test/doorbell.yml", []byte(`
camera:
  title: Back Gate
  address: rtsp://gate.local/stream
forward:
  kind: websocket
  url: ws://hub.local/rings
`), 0666))
	defer suite.fs.Remove("test/doorbell.yml")

	config, err := suite.configResolver.Resolve()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Back Gate", config.Camera.Title)
	assert.Equal(suite.T(), "opencv", config.Camera.Backend)
	assert.Equal(suite.T(), 640, config.Camera.Width)
	assert.Equal(suite.T(), "jpeg", config.Camera.Format)
	assert.Equal(suite.T(), "websocket", config.Forward.Kind)
	assert.Equal(suite.T(), "ws://hub.local/rings", config.Forward.URL)
}

func (suite *LoadConfigTestSuite) TestLoadConfigMissingFile() {
	require.NoError(suite.T(), suite.fs.Remove(suite.path))

	_, err := suite.configResolver.Resolve()
	require.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, os.ErrNotExist))
}

func TestLoadConfigTestSuite(t *testing.T) {
	suite.Run(t, &LoadConfigTestSuite{})
}
