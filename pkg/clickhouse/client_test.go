package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ClientConfig
		scheme    string
		wantQuery map[string]string
		absent    []string
	}{
		{
			name: "native with timeouts",
			cfg: ClientConfig{
				Host: "ch", Port: 9000, Database: "derivbot", User: "bot", Password: "p@ss",
				DialTimeout: 5 * time.Second, ReadTimeout: 10 * time.Second,
			},
			scheme:    "clickhouse",
			wantQuery: map[string]string{"dial_timeout": "5s", "read_timeout": "10s"},
			absent:    []string{"async_insert", "max_execution_time"},
		},
		{
			name: "http with async insert",
			cfg: ClientConfig{
				Host: "ch", Port: 8123, Database: "derivbot", User: "default",
				UseHTTP: true, AsyncInsert: true, WaitForAsync: true, MaxExecTime: 30 * time.Second,
			},
			scheme: "http",
			wantQuery: map[string]string{
				"async_insert": "1", "wait_for_async_insert": "1", "max_execution_time": "30",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(buildDSN(tt.cfg))
			if err != nil {
				t.Fatalf("parse dsn: %v", err)
			}
			if u.Scheme != tt.scheme {
				t.Errorf("scheme = %q, want %q", u.Scheme, tt.scheme)
			}
			if u.Path != "/derivbot" {
				t.Errorf("path = %q", u.Path)
			}
			if pw, _ := u.User.Password(); pw != tt.cfg.Password {
				t.Errorf("password = %q", pw)
			}
			q := u.Query()
			for k, v := range tt.wantQuery {
				if q.Get(k) != v {
					t.Errorf("%s = %q, want %q", k, q.Get(k), v)
				}
			}
			for _, k := range tt.absent {
				if q.Has(k) {
					t.Errorf("unexpected %s in dsn", k)
				}
			}
		})
	}
}
