package config

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/yuuki0xff/frametrace/info"
)

// Directory Layout
//   $dir/config.json   - settings of the server. optional.
//   $dir/servers.json  - running servers. written by "server run".

type Config struct {
	dir      string
	Settings Settings
	Servers  Servers
	wantSave bool
	v        *viper.Viper
}

func NewConfig(dir string) *Config {
	if dir == "" {
		dir = info.DefaultConfigDir
	}

	return &Config{
		dir:     dir,
		Servers: *NewServers(),
	}
}

func (c *Config) Dir() string {
	return c.dir
}

// Viper returns the settings source. It is nil until Load is called.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// Load reads the settings and the server list.
// Missing files are not an error. Environment variables override config.json.
func (c *Config) Load() error {
	v := newViper(c.settingsPath())
	if _, err := os.Stat(c.settingsPath()); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read %s", c.settingsPath())
		}
	}
	c.v = v
	if err := c.Reload(); err != nil {
		return err
	}

	if _, err := os.Stat(c.serversPath()); os.IsNotExist(err) {
		c.Servers = *NewServers()
	} else {
		js, err := ioutil.ReadFile(c.serversPath())
		if err != nil {
			return err
		}
		if err := json.Unmarshal(js, &c.Servers); err != nil {
			return errors.Wrapf(err, "invalid %s", c.serversPath())
		}
		if c.Servers.ApiServer == nil {
			c.Servers.ApiServer = map[ServerID]*ApiServerConfig{}
		}
	}
	return nil
}

// Reload decodes the settings again. Call it after binding flags to Viper().
func (c *Config) Reload() error {
	s := DefaultSettings()
	if err := c.v.Unmarshal(&s); err != nil {
		return errors.Wrap(err, "invalid settings")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

func (c *Config) WantSave() {
	c.wantSave = true
}

// Save writes the server list.
func (c *Config) Save() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		if err := os.MkdirAll(c.dir, os.ModePerm); err != nil {
			return err
		}
	}

	js, err := json.Marshal(c.Servers)
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(c.serversPath(), js, os.ModePerm^0111); err != nil {
		return err
	}
	c.wantSave = false
	return nil
}

func (c *Config) SaveIfWant() error {
	if c.wantSave {
		return c.Save()
	}
	return nil
}

func (c Config) settingsPath() string {
	return path.Join(c.dir, "config.json")
}

func (c Config) serversPath() string {
	return path.Join(c.dir, "servers.json")
}
