package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	allowed := []string{"-a", "-d", "-s"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "separate values",
			args: []string{"-a", ":3000", "-x", "1", "-d", "postgres://db"},
			want: []string{"-a", ":3000", "-d", "postgres://db"},
		},
		{
			name: "equals form",
			args: []string{"-s=topsecret", "--other=1"},
			want: []string{"-s=topsecret"},
		},
		{
			name: "unknown flags and positionals ignored",
			args: []string{"-x", "1", "--y=2", "positional"},
			want: []string{},
		},
		{
			name: "flag without value at end",
			args: []string{"-s"},
			want: []string{"-s"},
		},
		{
			name: "flag followed by another flag keeps no value",
			args: []string{"-a", "-d", "dsn"},
			want: []string{"-a", "-d", "dsn"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "short", args: []string{"cmd", "-c", "server.json"}, want: "server.json"},
		{name: "long with equals", args: []string{"cmd", "-config=alt.json", "-a", ":3000"}, want: "alt.json"},
		{name: "absent", args: []string{"cmd", "-a", ":3000"}, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			assert.Equal(t, tt.want, ConfigFileFlag())
		})
	}
}
