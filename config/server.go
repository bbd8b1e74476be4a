package config

import "time"

type ServerID int64
type Servers struct {
	ApiServer map[ServerID]*ApiServerConfig `json:"api_server"`
}

// configuration for the tracing API server.
type ApiServerConfig struct {
	ServerID ServerID  `json:"server_id"`
	Version  int       `json:"version"`
	Addr     string    `json:"addr"`
	PID      int       `json:"pid"`
	Started  time.Time `json:"started"`
}

func NewServers() *Servers {
	return &Servers{
		ApiServer: map[ServerID]*ApiServerConfig{},
	}
}

// First returns the server with the smallest id.
func (s *Servers) First() (*ApiServerConfig, bool) {
	var found *ApiServerConfig
	var foundID ServerID
	for id, srv := range s.ApiServer {
		if found == nil || id < foundID {
			found = srv
			foundID = id
		}
	}
	return found, found != nil
}
