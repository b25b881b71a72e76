package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		values      map[string]string
		wantAddress string
		wantStorage string
	}{
		{
			name:        "defaults",
			wantAddress: "localhost:8080",
			wantStorage: "memory",
		},
		{
			name:        "postgres",
			values:      map[string]string{"run_address": ":9090", "database_uri": "postgres://u:p@localhost/db"},
			wantAddress: ":9090",
			wantStorage: "postgres",
		},
		{
			name:        "sqlite",
			values:      map[string]string{"data_path": "/tmp/sandbox.db"},
			wantAddress: "localhost:8080",
			wantStorage: "sqlite",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}

			cfg := Load(v)

			assert.Equal(t, tt.wantAddress, cfg.Server.RunAddress)
			assert.Equal(t, tt.wantStorage, cfg.StorageKind())
			assert.Equal(t, EnvLocal, cfg.Env)
		})
	}
}
